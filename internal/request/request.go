// Package request carries per-request values between middleware and handlers.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

type userKey struct{}

// UserContextKey returns the context key used for the user. Exposed for tests that inject non-user values.
func UserContextKey() any { return userKey{} }

// ClientIP returns the caller's address without a port. The first valid
// X-Forwarded-For entry wins, then X-Real-IP, then the connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithUser returns a context with the user attached.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user from the request context, or nil if missing or wrong type.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey{}).(*models.User)
	return u
}

// UserID returns the authenticated user's id.
func UserID(r *http.Request) (uuid.UUID, bool) {
	u := UserFromContext(r)
	if u == nil {
		return uuid.Nil, false
	}
	return u.ID, true
}
