package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/app"
	"github.com/benvon/agenda-scheduler/internal/auth"
	"github.com/benvon/agenda-scheduler/internal/config"
	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/handlers"
	"github.com/benvon/agenda-scheduler/internal/lock"
	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/middleware"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/telemetry"
)

const serviceName = "agenda-scheduler-api"

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireAuth(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.ComponentAPI, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Tracing: propagators are installed even when export is disabled
	tracingEnabled := cfg.OTELEnabled && cfg.OTELEndpoint != ""
	if cfg.OTELEnabled && !tracingEnabled {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
	}
	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Options{
		Enabled:     tracingEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
		Component:   logger.ComponentAPI,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.String("error", logger.SanitizeError(err)))
		tracingEnabled = false
	} else {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.String("error", logger.SanitizeError(err)))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Redis backs both rate limiting and the per-user generation locks
	redisClient, err := lock.Connect(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.String("error", logger.SanitizeError(err)))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	jobQueue := connectQueue(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	cadence, err := config.LoadCadence(cfg.CadenceConfigPath)
	if err != nil {
		zapLogger.Fatal("failed_to_load_cadence", zap.String("error", logger.SanitizeError(err)))
	}
	calendar := cadence.Calendar()
	zapLogger.Info("cadence_loaded",
		zap.String("week_start_day", cadence.WeekStartDay.String()),
		zap.Duration("lock_lead_time", cadence.LockLeadTime),
		zap.Duration("change_window", cadence.ChangeWindow),
	)

	repos := app.NewRepositories(db)
	controller := app.NewController(repos, cadence, lock.NewRedisLocker(redisClient), cfg.LockTTL, zapLogger)

	verifier := auth.NewVerifier(auth.NewJWKSManager(cfg.JWKSCacheTTL), cfg.OIDCIssuer, cfg.OIDCAudience, cfg.OIDCJWKSURL)

	// Initialize handlers
	availabilityHandler := handlers.NewAvailabilityHandler(repos.Availability, controller, jobQueue, calendar, zapLogger)
	agendaHandler := handlers.NewAgendaHandler(repos.Settings, zapLogger)
	scheduleHandler := handlers.NewScheduleHandler(controller, repos.Slots, jobQueue, calendar, zapLogger)
	slotHandler := handlers.NewSlotHandler(repos.Slots, controller, zapLogger)
	weekHandler := handlers.NewWeekHandler(controller, calendar, zapLogger)
	userHandler := handlers.NewUserHandler()
	healthChecker := handlers.NewHealthCheckerWithDeps(db, redisClient, jobQueue)

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.String("error", logger.SanitizeError(err)))
	}
	authMW := middleware.Auth(repos.Users, verifier, zapLogger)

	// Setup router
	r := mux.NewRouter()

	// Middleware registered first is the outermost wrapper
	zapLogger.Info("setting_up_middleware")

	// 0. OpenTelemetry tracing (if enabled)
	if tracingEnabled {
		r.Use(otelmux.Middleware(serviceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	// 1. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 2. CORS
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.CORSAllowedOrigins), true, 3600))
	// 3. Request size limits
	r.Use(middleware.MaxRequestSize(int64(cfg.MaxRequestSize), zapLogger))
	// 4. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType(zapLogger))
	// 5. Request timeout
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	// 6. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 7. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")
	handlers.NewOpenAPIHandler().RegisterRoutes(r)

	// API v1 routes, all authenticated and rate limited
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	protected := func(prefix string) *mux.Router {
		sub := apiRouter.PathPrefix(prefix).Subrouter()
		sub.Use(authMW)
		sub.Use(rateLimitMW)
		return sub
	}
	availabilityHandler.RegisterRoutes(protected("/availability"))
	agendaHandler.RegisterRoutes(protected("/agenda"))
	scheduleHandler.RegisterRoutes(protected("/schedule"))
	slotHandler.RegisterRoutes(protected("/slots"))
	weekHandler.RegisterRoutes(protected("/weeks"))
	userHandler.RegisterRoutes(protected("/users"))

	// Catch-all OPTIONS handler; CORS middleware has already set the headers
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	dlqGC := queue.NewGarbageCollector(jobQueue, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", cfg.DLQGCInterval),
		zap.Duration("retention", cfg.DLQRetention),
	)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker
// startup. It exits the process when every attempt fails.
func connectQueue(url string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	const maxDelay = 30 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.String("error", logger.SanitizeError(err)),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.String("error", logger.SanitizeError(lastErr)),
	)
	return nil
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
