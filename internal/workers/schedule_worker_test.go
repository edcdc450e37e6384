package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

func TestScheduleWorker_ProcessJob_GenerateWeek(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	var got scheduling.GenerateRequest
	service := &mockWeekService{
		generateFunc: func(ctx context.Context, req scheduling.GenerateRequest) (*scheduling.GenerationResult, error) {
			got = req
			return &scheduling.GenerationResult{WeekStart: req.WeekStart, SlotsGenerated: 2}, nil
		},
	}
	worker := NewScheduleWorker(service, &mockJobQueue{}, nil)

	job := queue.NewJob(queue.JobTypeGenerateWeek, testWeek, []uuid.UUID{userID})
	job.Force = true
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if !msg.acked {
		t.Error("Expected message to be acked")
	}
	if !got.WeekStart.Equal(testWeek) || !got.ForceRegenerate || len(got.UserIDs) != 1 || got.UserIDs[0] != userID {
		t.Errorf("GenerateWeek called with %+v", got)
	}
}

func TestScheduleWorker_ProcessJob_LockWeek(t *testing.T) {
	t.Parallel()

	var lockedWeek time.Time
	service := &mockWeekService{
		lockFunc: func(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error) {
			lockedWeek = weekStart
			if force {
				t.Error("Expected lock without force")
			}
			return &scheduling.GenerationResult{WeekStart: weekStart}, nil
		},
	}
	worker := NewScheduleWorker(service, &mockJobQueue{}, nil)
	msg := &mockMessage{job: queue.NewJob(queue.JobTypeLockWeek, testWeek, nil)}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if !msg.acked {
		t.Error("Expected message to be acked")
	}
	if !lockedWeek.Equal(testWeek) {
		t.Errorf("Lock called for %s, want %s", lockedWeek, testWeek)
	}
}

func TestScheduleWorker_ProcessJob_UnknownType(t *testing.T) {
	t.Parallel()

	worker := NewScheduleWorker(&mockWeekService{}, &mockJobQueue{}, nil)
	msg := &mockMessage{job: queue.NewJob(queue.JobType("bogus"), testWeek, nil)}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("Expected error for unknown job type")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("Expected nack without requeue, got nacked=%v requeue=%v", msg.nacked, msg.requeue)
	}
}

func TestScheduleWorker_ProcessJob_NotReady(t *testing.T) {
	t.Parallel()

	called := false
	service := &mockWeekService{
		lockFunc: func(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error) {
			called = true
			return &scheduling.GenerationResult{}, nil
		},
	}
	worker := NewScheduleWorker(service, &mockJobQueue{}, nil)
	job := queue.NewJob(queue.JobTypeLockWeek, testWeek, nil)
	notBefore := time.Now().Add(time.Hour)
	job.NotBefore = &notBefore
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if called {
		t.Error("Expected job not to run before NotBefore")
	}
	if !msg.nacked || !msg.requeue {
		t.Error("Expected message to be requeued")
	}
}

func TestScheduleWorker_HandleJobError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		retryCount   int
		wantErr      bool
		wantAcked    bool
		wantRequeue  bool
		wantNacked   bool
		wantEnqueued int
	}{
		{
			name:       "closed week goes to DLQ",
			err:        fmt.Errorf("lock: %w", scheduling.ErrWeekClosed),
			wantErr:    true,
			wantNacked: true,
		},
		{
			name:       "unlocked week goes to DLQ",
			err:        &scheduling.GenerationError{WeekStart: testWeek, Err: scheduling.ErrWeekNotLocked},
			wantErr:    true,
			wantNacked: true,
		},
		{
			name:         "lock contention is delayed",
			err:          &scheduling.GenerationError{WeekStart: testWeek, Err: scheduling.ErrLockHeld},
			wantAcked:    true,
			wantEnqueued: 1,
		},
		{
			name:         "early lock is delayed",
			err:          scheduling.ErrLockNotDue,
			wantAcked:    true,
			wantEnqueued: 1,
		},
		{
			name:        "transient error is retried",
			err:         errors.New("connection reset"),
			wantErr:     true,
			wantNacked:  true,
			wantRequeue: true,
		},
		{
			name:       "exhausted retries go to DLQ",
			err:        errors.New("connection reset"),
			retryCount: 3,
			wantErr:    true,
			wantNacked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jobQueue := &mockJobQueue{}
			service := &mockWeekService{
				lockFunc: func(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error) {
					return nil, tt.err
				},
			}
			worker := NewScheduleWorker(service, jobQueue, nil)
			job := queue.NewJob(queue.JobTypeLockWeek, testWeek, nil)
			job.RetryCount = tt.retryCount
			msg := &mockMessage{job: job}

			err := worker.ProcessJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acked != tt.wantAcked {
				t.Errorf("acked = %v, want %v", msg.acked, tt.wantAcked)
			}
			if msg.nacked != tt.wantNacked {
				t.Errorf("nacked = %v, want %v", msg.nacked, tt.wantNacked)
			}
			if msg.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", msg.requeue, tt.wantRequeue)
			}
			jobs := jobQueue.jobs()
			if len(jobs) != tt.wantEnqueued {
				t.Fatalf("enqueued %d jobs, want %d", len(jobs), tt.wantEnqueued)
			}
			if tt.wantEnqueued > 0 {
				if jobs[0].NotBefore == nil || !jobs[0].NotBefore.After(time.Now()) {
					t.Error("Expected delayed job to carry a future NotBefore")
				}
				if jobs[0].RetryCount != tt.retryCount+1 {
					t.Errorf("delayed RetryCount = %d, want %d", jobs[0].RetryCount, tt.retryCount+1)
				}
				if jobs[0].ID != job.ID {
					t.Error("Expected delayed job to keep its ID")
				}
			}
		})
	}
}

func TestScheduleWorker_DelayedReenqueueFailure(t *testing.T) {
	t.Parallel()

	jobQueue := &mockJobQueue{
		enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			return errors.New("broker down")
		},
	}
	service := &mockWeekService{
		lockFunc: func(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error) {
			return nil, scheduling.ErrLockHeld
		},
	}
	worker := NewScheduleWorker(service, jobQueue, nil)
	msg := &mockMessage{job: queue.NewJob(queue.JobTypeLockWeek, testWeek, nil)}

	if err := worker.ProcessJob(context.Background(), msg); err == nil {
		t.Error("Expected error when the delayed job cannot be enqueued")
	}
}
