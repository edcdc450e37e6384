package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/app"
	"github.com/benvon/agenda-scheduler/internal/config"
	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/lock"
	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/telemetry"
	"github.com/benvon/agenda-scheduler/internal/workers"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	noCadence := flag.Bool("no-cadence", false, "Only consume jobs; do not enqueue due week locks")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.ComponentWorker, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.Bool("cadence_scheduler", !*noCadence),
	)

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Options{
		Enabled:     cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName: "agenda-scheduler-worker",
		Endpoint:    cfg.OTELEndpoint,
		Component:   logger.ComponentWorker,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.String("error", logger.SanitizeError(err)))
	} else {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				zapLogger.Warn("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	// Initialize database connection
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

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.String("error", logger.SanitizeError(err)))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	cadence, err := config.LoadCadence(cfg.CadenceConfigPath)
	if err != nil {
		zapLogger.Fatal("failed_to_load_cadence", zap.String("error", logger.SanitizeError(err)))
	}

	controller := app.NewController(app.NewRepositories(db), cadence, lock.NewRedisLocker(redisClient), cfg.LockTTL, zapLogger)
	scheduleWorker := workers.NewScheduleWorker(controller, jobQueue, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.String("error", logger.SanitizeError(err)))
	}
	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := scheduleWorker.ProcessJob(ctx, msg); err != nil {
					job := msg.GetJob()
					zapLogger.Error("failed_to_process_job",
						zap.String("error", logger.SanitizeError(err)),
						zap.String("job_id", job.ID.String()),
						zap.String("job_type", string(job.Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.String("error", logger.SanitizeError(err)))
			}
		}
	}()

	if !*noCadence {
		scheduler := workers.NewCadenceScheduler(jobQueue, controller, zapLogger, cfg.CadenceInterval)
		go func() {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("cadence_scheduler_stopped_with_error", zap.Error(err))
			}
		}()
	}

	dlqGC := queue.NewGarbageCollector(jobQueue, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("worker_shutting_down")
	cancel()
	zapLogger.Info("worker_stopped")
}
