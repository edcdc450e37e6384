package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout is the default request timeout
	DefaultRequestTimeout = 30 * time.Second

	timeoutBody = `{"success":false,"error":"Service Unavailable","message":"request timed out"}`
)

// Timeout bounds handler execution. Generation requests that outlive it
// are answered with a JSON 503 while the handler's context is cancelled.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
