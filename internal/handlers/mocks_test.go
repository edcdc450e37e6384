package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/request"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

var (
	testWeek     = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	testCalendar = scheduling.NewWeekCalendar(time.Wednesday, time.UTC)
	errBoom      = errors.New("boom")
)

// mockAvailabilityRepo is a mock implementation of AvailabilityRepository
type mockAvailabilityRepo struct {
	submitFunc func(ctx context.Context, a *models.WeeklyAvailability) error
	getFunc    func(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error)
	submitted  []*models.WeeklyAvailability
}

func (m *mockAvailabilityRepo) Submit(ctx context.Context, a *models.WeeklyAvailability) error {
	if m.submitFunc != nil {
		if err := m.submitFunc(ctx, a); err != nil {
			return err
		}
	} else {
		a.Revision = len(m.submitted) + 1
	}
	m.submitted = append(m.submitted, a)
	return nil
}

func (m *mockAvailabilityRepo) GetAvailability(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, weekStart)
	}
	return nil, nil
}

var _ AvailabilityRepository = (*mockAvailabilityRepo)(nil)

// mockPlanner is a mock of the lifecycle controller
type mockPlanner struct {
	phase         models.WeekPhase
	stateErr      error
	previewFunc   func(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*scheduling.GenerationResult, error)
	requestChange func(ctx context.Context, userID, slotID uuid.UUID, reason string) (*models.ChangeRequest, error)
}

func (m *mockPlanner) State(ctx context.Context, weekStart time.Time) (*models.WeekCycleState, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	return &models.WeekCycleState{
		WeekCycle: models.WeekCycle{WeekStart: weekStart},
		Phase:     m.phase,
	}, nil
}

func (m *mockPlanner) Preview(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*scheduling.GenerationResult, error) {
	if m.previewFunc != nil {
		return m.previewFunc(ctx, userID, weekStart)
	}
	return &scheduling.GenerationResult{WeekStart: weekStart}, nil
}

func (m *mockPlanner) RequestChange(ctx context.Context, userID, slotID uuid.UUID, reason string) (*models.ChangeRequest, error) {
	if m.requestChange != nil {
		return m.requestChange(ctx, userID, slotID, reason)
	}
	return &models.ChangeRequest{ID: uuid.New(), SlotID: slotID, UserID: userID, Reason: reason, Status: models.ChangeRequestOpen}, nil
}

var (
	_ SchedulePlanner = (*mockPlanner)(nil)
	_ ChangeRequester = (*mockPlanner)(nil)
)

// mockSlotRepo is a mock of the slot repository
type mockSlotRepo struct {
	slots          []models.ScheduleSlot
	unscheduled    []models.UnscheduledTask
	err            error
	updateFunc     func(ctx context.Context, id, userID uuid.UUID, next models.SlotStatus) (*models.ScheduleSlot, error)
	requestedUsers []uuid.UUID
}

func (m *mockSlotRepo) GetWeekSlots(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time) ([]models.ScheduleSlot, error) {
	m.requestedUsers = userIDs
	return m.slots, m.err
}

func (m *mockSlotRepo) ListUnscheduled(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]models.UnscheduledTask, error) {
	return m.unscheduled, m.err
}

func (m *mockSlotRepo) UpdateStatus(ctx context.Context, id, userID uuid.UUID, next models.SlotStatus) (*models.ScheduleSlot, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, userID, next)
	}
	return &models.ScheduleSlot{ID: id, UserID: userID, Status: next}, nil
}

var (
	_ ScheduleReader             = (*mockSlotRepo)(nil)
	_ database.SlotStatusUpdater = (*mockSlotRepo)(nil)
)

// mockSettingsRepo is a mock implementation of AgendaSettingsRepository
type mockSettingsRepo struct {
	stored    *models.GlobalAgendaSettings
	getErr    error
	upsertErr error
}

func (m *mockSettingsRepo) GetAgendaSettings(ctx context.Context, userID uuid.UUID) (*models.GlobalAgendaSettings, error) {
	return m.stored, m.getErr
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, s *models.GlobalAgendaSettings) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.stored = s
	return nil
}

var _ AgendaSettingsRepository = (*mockSettingsRepo)(nil)

// mockJobs records enqueued jobs
type mockJobs struct {
	mu   sync.Mutex
	err  error
	jobs []*queue.Job
}

func (m *mockJobs) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

var _ JobEnqueuer = (*mockJobs)(nil)

// mockPinger is a mock dependency for health checks
type mockPinger struct {
	err error
}

func (m *mockPinger) HealthCheck(ctx context.Context) error {
	return m.err
}

// mockRedis answers PING with a fixed error
type mockRedis struct {
	err error
}

func (m *mockRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "ping")
	if m.err != nil {
		cmd.SetErr(m.err)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

var (
	_ Pinger      = (*mockPinger)(nil)
	_ RedisPinger = (*mockRedis)(nil)
)

type routeRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

// serve routes a request through a router with the handler mounted at prefix
func serve(t *testing.T, h routeRegistrar, prefix string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix(prefix).Subrouter())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// authedRequest builds a request carrying the user in its context
func authedRequest(method, path string, body any, user *models.User) *http.Request {
	req := newTestRequest(method, path, body)
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	return req
}

// newTestRequest creates a test request with a JSON body
func newTestRequest(method, path string, body any) *http.Request {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com", SchedulingEnabled: true}
}

// decodeEnvelope decodes the success envelope and unmarshals its data into out
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, out any) map[string]any {
	t.Helper()
	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope["data"], out); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
	}
	flat := make(map[string]any, len(envelope))
	for k, v := range envelope {
		var val any
		_ = json.Unmarshal(v, &val)
		flat[k] = val
	}
	return flat
}
