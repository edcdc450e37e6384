package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger checks that a dependency is reachable
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// RedisPinger is the part of a Redis client the health check uses
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthChecker handles health check requests
type HealthChecker struct {
	db    Pinger
	redis RedisPinger
	queue Pinger
}

// NewHealthChecker creates a health checker that only checks the database
func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db}
}

// NewHealthCheckerWithDeps creates a health checker for every backing service.
// A nil redis or queue is reported as not configured.
func NewHealthCheckerWithDeps(db Pinger, redisClient RedisPinger, queue Pinger) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient, queue: queue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)
		record := func(name string, err error) {
			if err != nil {
				response.Status = "unhealthy"
				checks[name] = "unhealthy: " + err.Error()
				return
			}
			checks[name] = "healthy"
		}

		record("database", h.db.HealthCheck(ctx))
		if h.redis != nil {
			record("redis", h.redis.Ping(ctx).Err())
		} else {
			checks["redis"] = "not configured"
		}
		if h.queue != nil {
			record("rabbitmq", h.queue.HealthCheck(ctx))
		} else {
			checks["rabbitmq"] = "not configured"
		}

		response.Checks = checks
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
