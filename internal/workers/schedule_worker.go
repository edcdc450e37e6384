package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

const defaultContentionDelay = 30 * time.Second

// WeekService is the part of the lifecycle controller jobs drive
type WeekService interface {
	GenerateWeek(ctx context.Context, req scheduling.GenerateRequest) (*scheduling.GenerationResult, error)
	Lock(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error)
}

var _ WeekService = (*scheduling.Controller)(nil)

// ScheduleWorker processes schedule generation and week lock jobs
type ScheduleWorker struct {
	service         WeekService
	jobQueue        queue.JobQueue // For re-enqueueing jobs with delays
	logger          *zap.Logger
	contentionDelay time.Duration
}

// NewScheduleWorker creates a new schedule worker
func NewScheduleWorker(service WeekService, jobQueue queue.JobQueue, log *zap.Logger) *ScheduleWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScheduleWorker{
		service:         service,
		jobQueue:        jobQueue,
		logger:          log,
		contentionDelay: defaultContentionDelay,
	}
}

// ProcessJob processes a job based on its type
func (w *ScheduleWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if !job.ShouldProcess() {
		w.logger.Debug("job_not_ready",
			zap.String("job_id", job.ID.String()),
			zap.Any("not_before", job.NotBefore),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("failed_to_requeue_job", zap.String("error", logger.SanitizeError(nackErr)))
		}
		return nil
	}

	var (
		result *scheduling.GenerationResult
		err    error
	)
	switch job.Type {
	case queue.JobTypeGenerateWeek:
		result, err = w.service.GenerateWeek(ctx, scheduling.GenerateRequest{
			UserIDs:         job.UserIDs,
			WeekStart:       job.WeekStart,
			ForceRegenerate: job.Force,
		})
	case queue.JobTypeLockWeek:
		result, err = w.service.Lock(ctx, job.WeekStart, job.Force)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			w.logger.Warn("failed_to_nack_unknown_job", zap.String("error", logger.SanitizeError(nackErr)))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err != nil {
		return w.handleJobError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}

	w.logger.Info("job_processed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("week_start", job.WeekStart.Format(scheduling.DateLayout)),
		zap.Int("slots_generated", result.SlotsGenerated),
		zap.Int("unscheduled", result.Unscheduled),
		zap.Bool("already_generated", result.AlreadyGenerated),
	)
	return nil
}

// handleJobError decides between dropping, delaying and retrying a failed job
func (w *ScheduleWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("error", logger.SanitizeError(err)),
	}

	// The week has moved on; retrying can never succeed
	if isPermanent(err) {
		w.logger.Warn("job_rejected", fields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("failed_to_nack_job", zap.String("error", logger.SanitizeError(nackErr)))
		}
		return fmt.Errorf("job rejected: %w", err)
	}

	// Another generation holds the lock for this scope; try again later
	if errors.Is(err, scheduling.ErrLockHeld) || errors.Is(err, scheduling.ErrLockNotDue) {
		if job.CanRetry() && w.jobQueue != nil {
			notBefore := time.Now().Add(w.contentionDelay)
			delayed := *job
			delayed.NotBefore = &notBefore
			delayed.RetryCount = job.RetryCount + 1

			if ackErr := msg.Ack(); ackErr != nil {
				w.logger.Warn("failed_to_ack_job_before_reenqueue", zap.String("error", logger.SanitizeError(ackErr)))
			}
			if enqueueErr := w.jobQueue.Enqueue(ctx, &delayed); enqueueErr != nil {
				return fmt.Errorf("job delayed, failed to re-enqueue: %w", enqueueErr)
			}
			w.logger.Info("job_delayed", append(fields, zap.Time("not_before", notBefore))...)
			return nil
		}
	}

	if job.CanRetry() {
		job.IncrementRetry()
		w.logger.Warn("job_failed_will_retry", append(fields,
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
		)...)
		if nackErr := msg.Nack(true); nackErr != nil {
			w.logger.Warn("failed_to_nack_job", zap.String("error", logger.SanitizeError(nackErr)))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	w.logger.Error("job_failed_max_retries", fields...)
	if nackErr := msg.Nack(false); nackErr != nil {
		w.logger.Warn("failed_to_nack_job", zap.String("error", logger.SanitizeError(nackErr)))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

func isPermanent(err error) bool {
	return errors.Is(err, scheduling.ErrWeekClosed) ||
		errors.Is(err, scheduling.ErrWeekNotLocked) ||
		errors.Is(err, scheduling.ErrInvalidWeekStart)
}
