package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

const defaultPollInterval = 100 * time.Millisecond

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client is the subset of *redis.Client the locker needs
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker serializes schedule generation for a user-week across
// processes using SET NX with a per-holder token.
type RedisLocker struct {
	client       Client
	pollInterval time.Duration
}

// Option configures a RedisLocker
type Option func(*RedisLocker)

// WithPollInterval sets how often a blocked Acquire retries
func WithPollInterval(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// NewRedisLocker creates a locker backed by the given client
func NewRedisLocker(client Client, opts ...Option) *RedisLocker {
	l := &RedisLocker{client: client, pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ scheduling.Locker = (*RedisLocker)(nil)

// Acquire blocks until key is held or ctx is done. The lock expires after
// ttl even if the holder dies without releasing it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", scheduling.ErrLockHeld, key)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Connect parses a Redis URL and verifies the server is reachable
func Connect(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
