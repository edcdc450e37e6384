package middleware

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/benvon/agenda-scheduler/internal/request"
)

const (
	// DefaultRateLimit applies when no rate is configured
	DefaultRateLimit = "10-S"

	rateLimitPrefix = "scheduler_ratelimit"
)

// RateLimit returns middleware backed by ulule/limiter with a Redis store.
// rate uses the limiter format, e.g. "10-S" or "1000-H".
func RateLimit(redisClient *redis.Client, rate string) (func(http.Handler) http.Handler, error) {
	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, err
	}
	return rateLimitWithStore(store, rate)
}

func rateLimitWithStore(store limiter.Store, rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	mw := stdlibmw.NewMiddleware(limiter.New(store, parsed), stdlibmw.WithKeyGetter(rateLimitKey))
	return mw.Handler, nil
}

// rateLimitKey limits authenticated callers per user and everyone else per IP
func rateLimitKey(r *http.Request) string {
	if id, ok := request.UserID(r); ok {
		return "user:" + id.String()
	}
	return "ip:" + request.ClientIP(r)
}
