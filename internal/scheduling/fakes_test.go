package scheduling

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// testWeek starts on Wednesday 2026-03-04; Monday is day 5, Tuesday day 6.
var testWeek = date(2026, 3, 4)

const (
	monday  = 5
	tuesday = 6
)

func availableOn(userID uuid.UUID, windows map[int][2]models.ClockTime) *models.WeeklyAvailability {
	a := &models.WeeklyAvailability{
		ID:          uuid.New(),
		UserID:      userID,
		WeekStart:   testWeek,
		SubmittedAt: testWeek.Add(-48 * time.Hour),
	}
	for day, w := range windows {
		a.Days[day] = models.DayAvailability{Available: true, OpenStart: w[0], OpenEnd: w[1]}
	}
	return a
}

func personalTask(owner uuid.UUID, minutes int) models.Task {
	return models.Task{ID: uuid.New(), OwnerID: owner, DurationMinutes: minutes, WeekStart: testWeek, Status: models.TaskStatusPending}
}

func collaborativeTask(owner, leader uuid.UUID, minutes int) models.Task {
	t := personalTask(owner, minutes)
	t.LeaderID = &leader
	return t
}

type fakeAvailability struct {
	mu      sync.Mutex
	byUser  map[uuid.UUID]*models.WeeklyAvailability
	listErr error
}

func newFakeAvailability(items ...*models.WeeklyAvailability) *fakeAvailability {
	f := &fakeAvailability{byUser: make(map[uuid.UUID]*models.WeeklyAvailability)}
	for _, a := range items {
		f.byUser[a.UserID] = a
	}
	return f
}

func (f *fakeAvailability) GetAvailability(_ context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byUser[userID]
	if !ok || !a.WeekStart.Equal(weekStart) {
		return nil, nil
	}
	return a, nil
}

func (f *fakeAvailability) ListSubmittedUsers(_ context.Context, weekStart time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []uuid.UUID
	for id, a := range f.byUser {
		if a.WeekStart.Equal(weekStart) {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, compareUUID)
	return out, nil
}

type fakeTasks struct {
	tasks []models.Task
}

func (f *fakeTasks) PersonalTasks(_ context.Context, userID uuid.UUID, weekStart time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.OwnerID == userID && t.OrganizationID == nil && t.WeekStart.Equal(weekStart) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) OrganizationTasks(_ context.Context, userID uuid.UUID, orgIDs []uuid.UUID, weekStart time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.OwnerID == userID && t.OrganizationID != nil && slices.Contains(orgIDs, *t.OrganizationID) && t.WeekStart.Equal(weekStart) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) OwnersLedBy(_ context.Context, userID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, t := range f.tasks {
		if t.IsCollaborative() && *t.LeaderID == userID && t.WeekStart.Equal(weekStart) && !slices.Contains(out, t.OwnerID) {
			out = append(out, t.OwnerID)
		}
	}
	return out, nil
}

type fakeSettings map[uuid.UUID]*models.GlobalAgendaSettings

func (f fakeSettings) GetAgendaSettings(_ context.Context, userID uuid.UUID) (*models.GlobalAgendaSettings, error) {
	return f[userID], nil
}

type fakeSlots struct {
	mu          sync.Mutex
	rows        []models.ScheduleSlot
	unscheduled []models.UnscheduledTask
	replaceErr  error
	replaces    int
}

func (f *fakeSlots) GetWeekSlots(_ context.Context, userIDs []uuid.UUID, weekStart time.Time) ([]models.ScheduleSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScheduleSlot
	for _, s := range f.rows {
		if slices.Contains(userIDs, s.UserID) && s.WeekStart.Equal(weekStart) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSlots) ReplaceWeekSlots(_ context.Context, userIDs []uuid.UUID, weekStart time.Time, slots []models.ScheduleSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaces++

	kept := make(map[uuid.UUID]bool)
	for _, s := range f.rows {
		if s.WeekStart.Equal(weekStart) && s.Status.Committed() {
			kept[s.TaskID] = true
		}
	}
	f.rows = slices.DeleteFunc(f.rows, func(s models.ScheduleSlot) bool {
		if !s.WeekStart.Equal(weekStart) || s.Status != models.SlotStatusPending || kept[s.TaskID] {
			return false
		}
		if slices.Contains(userIDs, s.UserID) {
			return true
		}
		return s.IsCollaborative && s.CollaboratorID != nil && slices.Contains(userIDs, *s.CollaboratorID)
	})
	f.rows = append(f.rows, slots...)
	return nil
}

func (f *fakeSlots) RecordUnscheduled(_ context.Context, _ []uuid.UUID, _ time.Time, tasks []models.UnscheduledTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unscheduled = slices.Clone(tasks)
	return nil
}

func (f *fakeSlots) GetSlot(_ context.Context, id uuid.UUID) (*models.ScheduleSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			s := f.rows[i]
			return &s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeSlots) snapshot() []models.ScheduleSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rows)
}

var errStoreDown = errors.New("store unavailable")

var (
	_ AvailabilityStore = (*fakeAvailability)(nil)
	_ TaskSource        = (*fakeTasks)(nil)
	_ SettingsStore     = fakeSettings(nil)
	_ SlotStore         = (*fakeSlots)(nil)
	_ SlotLookup        = (*fakeSlots)(nil)
)
