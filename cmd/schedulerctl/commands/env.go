// Package commands implements the schedulerctl subcommands.
package commands

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/app"
	"github.com/benvon/agenda-scheduler/internal/config"
	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/lock"
	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// Debug turns on debug logging for every command
var Debug bool

// env holds the connections a command opened. Close releases them in
// reverse order.
type env struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *database.DB
	cadence    scheduling.Cadence
	controller *scheduling.Controller
	closers    []func() error
}

type envOptions struct {
	// controller builds the lifecycle controller over the database
	controller bool
	// localLock uses an in-process locker instead of Redis
	localLock bool
}

func openEnv(opts envOptions) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.ComponentCLI, Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg, log: log}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	e.db = db
	e.closers = append(e.closers, db.Close)

	e.cadence, err = config.LoadCadence(cfg.CadenceConfigPath)
	if err != nil {
		e.Close()
		return nil, err
	}

	if !opts.controller {
		return e, nil
	}

	var locker scheduling.Locker
	if opts.localLock {
		locker = scheduling.NewMemoryLocker()
	} else {
		redisClient, err := lock.Connect(cfg.RedisURL)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		e.closers = append(e.closers, redisClient.Close)
		locker = lock.NewRedisLocker(redisClient)
	}

	e.controller = app.NewController(app.NewRepositories(db), e.cadence, locker, cfg.LockTTL, log)
	return e, nil
}

// openQueue dials RabbitMQ for commands that hand work to the worker
func (e *env) openQueue() (*queue.RabbitMQQueue, error) {
	q, err := queue.NewRabbitMQQueue(e.cfg.RabbitMQURL, e.log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	e.closers = append(e.closers, q.Close)
	return q, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close connection: %v\n", err)
		}
	}
	e.closers = nil
	_ = logger.Sync(e.log)
}

// resolveWeek parses a --week flag. An empty value means the next week to
// be planned as of now.
func resolveWeek(calendar scheduling.WeekCalendar, raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return calendar.NextWeekStart(now), nil
	}
	return calendar.ParseWeekStart(raw)
}
