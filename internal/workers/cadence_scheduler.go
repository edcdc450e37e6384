package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// LockPlanner reports which weeks are due for their final lock
type LockPlanner interface {
	Cadence() scheduling.Cadence
	DueWeeks(ctx context.Context) ([]time.Time, error)
}

var _ LockPlanner = (*scheduling.Controller)(nil)

// CadenceScheduler enqueues lock jobs for weeks whose lock time has come
type CadenceScheduler struct {
	jobQueue queue.JobQueue
	planner  LockPlanner
	logger   *zap.Logger
	interval time.Duration

	mu       sync.Mutex
	enqueued map[time.Time]bool
}

// NewCadenceScheduler creates a new cadence scheduler
func NewCadenceScheduler(jobQueue queue.JobQueue, planner LockPlanner, log *zap.Logger, interval time.Duration) *CadenceScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &CadenceScheduler{
		jobQueue: jobQueue,
		planner:  planner,
		logger:   log,
		interval: interval,
		enqueued: make(map[time.Time]bool),
	}
}

// Start checks for due weeks immediately and then every interval until ctx is cancelled
func (s *CadenceScheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.ScheduleLockJobs(ctx); err != nil {
			s.logger.Warn("failed_to_schedule_lock_jobs", zap.String("error", logger.SanitizeError(err)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScheduleLockJobs enqueues one lock job per due week. A week is enqueued
// once per process; the lock itself is idempotent.
func (s *CadenceScheduler) ScheduleLockJobs(ctx context.Context) (int, error) {
	due, err := s.planner.DueWeeks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get due weeks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[time.Time]bool, len(due))
	scheduled := 0
	for _, weekStart := range due {
		current[weekStart] = true
		if s.enqueued[weekStart] {
			continue
		}
		if err := s.createLockJob(ctx, weekStart); err != nil {
			s.logger.Warn("failed_to_enqueue_lock_job",
				zap.String("week_start", weekStart.Format(scheduling.DateLayout)),
				zap.String("error", logger.SanitizeError(err)),
			)
			continue
		}
		s.enqueued[weekStart] = true
		scheduled++
	}

	// Weeks that are no longer due have been locked and generated
	for weekStart := range s.enqueued {
		if !current[weekStart] {
			delete(s.enqueued, weekStart)
		}
	}

	if scheduled > 0 {
		s.logger.Info("scheduled_lock_jobs", zap.Int("week_count", scheduled))
	}
	return scheduled, nil
}

func (s *CadenceScheduler) createLockJob(ctx context.Context, weekStart time.Time) error {
	job := queue.NewJob(queue.JobTypeLockWeek, weekStart, nil)

	// Locking is pointless once the change window has ended
	notAfter := s.planner.Cadence().ChangeWindowEndsAt(weekStart)
	job.NotAfter = &notAfter

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue lock job: %w", err)
	}
	return nil
}
