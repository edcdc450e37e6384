package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

var testWeek = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	mu          sync.Mutex
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	enqueued    []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *mockJobQueue) jobs() []*queue.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*queue.Job(nil), m.enqueued...)
}

// Ensure mock implements interface
var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockMessage records how a job was settled
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockWeekService is a mock implementation of WeekService
type mockWeekService struct {
	generateFunc func(ctx context.Context, req scheduling.GenerateRequest) (*scheduling.GenerationResult, error)
	lockFunc     func(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error)
}

func (m *mockWeekService) GenerateWeek(ctx context.Context, req scheduling.GenerateRequest) (*scheduling.GenerationResult, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &scheduling.GenerationResult{WeekStart: req.WeekStart}, nil
}

func (m *mockWeekService) Lock(ctx context.Context, weekStart time.Time, force bool) (*scheduling.GenerationResult, error) {
	if m.lockFunc != nil {
		return m.lockFunc(ctx, weekStart, force)
	}
	return &scheduling.GenerationResult{WeekStart: weekStart}, nil
}

var _ WeekService = (*mockWeekService)(nil)

// mockLockPlanner is a mock implementation of LockPlanner
type mockLockPlanner struct {
	dueWeeksFunc func(ctx context.Context) ([]time.Time, error)
}

func (m *mockLockPlanner) Cadence() scheduling.Cadence {
	return scheduling.DefaultCadence()
}

func (m *mockLockPlanner) DueWeeks(ctx context.Context) ([]time.Time, error) {
	if m.dueWeeksFunc != nil {
		return m.dueWeeksFunc(ctx)
	}
	return nil, nil
}

var _ LockPlanner = (*mockLockPlanner)(nil)
