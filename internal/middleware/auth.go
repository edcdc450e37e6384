package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	logpkg "github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/request"
)

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*models.Identity, error)
}

// Auth creates authentication middleware that validates JWT tokens and
// resolves the caller to a local user, creating it on first sight.
func Auth(users database.UserRepositoryInterface, verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, tokenString)
			if err != nil {
				logger.Info("token_verification_failed", zap.String("error", logpkg.SanitizeError(err)))
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			user, err := resolveUser(ctx, users, claims, logger)
			if err != nil {
				logger.Error("failed_to_resolve_user",
					zap.String("provider_id", logpkg.SanitizeUserID(claims.Subject)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load user", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func resolveUser(ctx context.Context, users database.UserRepositoryInterface, claims *models.Identity, logger *zap.Logger) (*models.User, error) {
	user, err := users.GetByProviderID(ctx, claims.Subject)
	if errors.Is(err, models.ErrNotFound) {
		sub := claims.Subject
		user = &models.User{
			ID:                uuid.New(),
			Email:             claims.Email,
			ProviderID:        &sub,
			Name:              claims.DisplayName(),
			SchedulingEnabled: true,
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		logger.Info("user_created", zap.String("user_id", user.ID.String()))
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if claims.Email != "" && user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
		user.Name = claims.DisplayName()
		changed = true
	}
	if changed {
		if err := users.Update(ctx, user); err != nil {
			// Stale profile fields do not block the request
			logger.Warn("failed_to_update_user_profile",
				zap.String("user_id", user.ID.String()),
				zap.String("error", logpkg.SanitizeError(err)),
			)
		}
	}
	return user, nil
}
