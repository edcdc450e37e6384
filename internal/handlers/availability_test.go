package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/queue"
)

func weekdaysRequest() AvailabilityRequest {
	days := make([]DayRequest, 7)
	for i := range days {
		if i < 5 {
			days[i] = DayRequest{Available: true, OpenStart: "09:00", OpenEnd: "17:00"}
		}
	}
	return AvailabilityRequest{Days: days, PreferredHoursPerDay: 6}
}

func newAvailabilityHandler(repo *mockAvailabilityRepo, phase models.WeekPhase, jobs *mockJobs) *AvailabilityHandler {
	h := NewAvailabilityHandler(repo, &mockPlanner{phase: phase}, jobs, testCalendar, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestSubmitAvailability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		phase      models.WeekPhase
		path       string
		body       any
		wantStatus int
		wantStored bool
	}{
		{
			name:       "first submission while collecting",
			phase:      models.WeekPhaseCollecting,
			path:       "/availability/2026-03-04",
			body:       weekdaysRequest(),
			wantStatus: http.StatusCreated,
			wantStored: true,
		},
		{
			name:       "submission while previews are served",
			phase:      models.WeekPhasePreviewAvailable,
			path:       "/availability/2026-03-04",
			body:       weekdaysRequest(),
			wantStatus: http.StatusCreated,
			wantStored: true,
		},
		{
			name:       "rejected once locked",
			phase:      models.WeekPhaseLockedFinal,
			path:       "/availability/2026-03-04",
			body:       weekdaysRequest(),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "rejected when closed",
			phase:      models.WeekPhaseClosed,
			path:       "/availability/2026-03-04",
			body:       weekdaysRequest(),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "week start on the wrong weekday",
			phase:      models.WeekPhaseCollecting,
			path:       "/availability/2026-03-05",
			body:       weekdaysRequest(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "six days",
			phase:      models.WeekPhaseCollecting,
			path:       "/availability/2026-03-04",
			body:       AvailabilityRequest{Days: make([]DayRequest, 6)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "malformed clock time",
			phase: models.WeekPhaseCollecting,
			path:  "/availability/2026-03-04",
			body: func() AvailabilityRequest {
				req := weekdaysRequest()
				req.Days[0].OpenStart = "9am"
				return req
			}(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "window closes before it opens",
			phase: models.WeekPhaseCollecting,
			path:  "/availability/2026-03-04",
			body: func() AvailabilityRequest {
				req := weekdaysRequest()
				req.Days[2] = DayRequest{Available: true, OpenStart: "17:00", OpenEnd: "09:00"}
				return req
			}(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "available day without a window",
			phase: models.WeekPhaseCollecting,
			path:  "/availability/2026-03-04",
			body: func() AvailabilityRequest {
				req := weekdaysRequest()
				req.Days[1] = DayRequest{Available: true}
				return req
			}(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "preferred hours above a day",
			phase: models.WeekPhaseCollecting,
			path:  "/availability/2026-03-04",
			body: func() AvailabilityRequest {
				req := weekdaysRequest()
				req.PreferredHoursPerDay = 25
				return req
			}(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			phase:      models.WeekPhaseCollecting,
			path:       "/availability/2026-03-04",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockAvailabilityRepo{}
			jobs := &mockJobs{}
			h := newAvailabilityHandler(repo, tt.phase, jobs)

			w := serve(t, h, "/availability", authedRequest(http.MethodPut, tt.path, tt.body, testUser()))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if stored := len(repo.submitted) == 1; stored != tt.wantStored {
				t.Errorf("Expected stored=%v, got %d submissions", tt.wantStored, len(repo.submitted))
			}
			if len(jobs.jobs) != 0 {
				t.Errorf("Expected no jobs, got %d", len(jobs.jobs))
			}
		})
	}
}

func TestSubmitAvailability_StoresDays(t *testing.T) {
	t.Parallel()

	repo := &mockAvailabilityRepo{}
	h := newAvailabilityHandler(repo, models.WeekPhaseCollecting, &mockJobs{})
	user := testUser()

	w := serve(t, h, "/availability", authedRequest(http.MethodPut, "/availability/2026-03-04", weekdaysRequest(), user))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	a := repo.submitted[0]
	if a.UserID != user.ID {
		t.Errorf("Expected user %s, got %s", user.ID, a.UserID)
	}
	if !a.WeekStart.Equal(testWeek) {
		t.Errorf("Expected week %s, got %s", testWeek, a.WeekStart)
	}
	if a.AvailableDays() != 5 {
		t.Errorf("Expected 5 available days, got %d", a.AvailableDays())
	}
	if a.Days[0].OpenStart != models.NewClockTime(9, 0) || a.Days[0].OpenEnd != models.NewClockTime(17, 0) {
		t.Errorf("Unexpected day 0 window %s-%s", a.Days[0].OpenStart, a.Days[0].OpenEnd)
	}
	if a.Days[6].Available {
		t.Error("Expected day 6 to be unavailable")
	}

	var got models.WeeklyAvailability
	decodeEnvelope(t, w, &got)
	if got.Revision != 1 {
		t.Errorf("Expected revision 1 in response, got %d", got.Revision)
	}
}

func TestSubmitAvailability_ResubmitReturnsOK(t *testing.T) {
	t.Parallel()

	repo := &mockAvailabilityRepo{}
	h := newAvailabilityHandler(repo, models.WeekPhasePreviewAvailable, &mockJobs{})
	user := testUser()

	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		w := serve(t, h, "/availability", authedRequest(http.MethodPut, "/availability/2026-03-04", weekdaysRequest(), user))
		if w.Code != want {
			t.Fatalf("submission %d: expected status %d, got %d", i+1, want, w.Code)
		}
	}
}

func TestAmendAvailability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		phase       models.WeekPhase
		wantStatus  int
		wantStored  bool
		wantRegen   bool
		enqueueFail bool
	}{
		{"before lock behaves like a submission", models.WeekPhasePreviewAvailable, http.StatusCreated, true, false, false},
		{"locked week regenerates", models.WeekPhaseLockedFinal, http.StatusCreated, true, true, false},
		{"change window regenerates", models.WeekPhaseChangeWindow, http.StatusCreated, true, true, false},
		{"closed week is rejected", models.WeekPhaseClosed, http.StatusConflict, false, false, false},
		{"queue failure keeps the amendment", models.WeekPhaseLockedFinal, http.StatusCreated, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockAvailabilityRepo{}
			jobs := &mockJobs{}
			if tt.enqueueFail {
				jobs.err = errBoom
			}
			h := newAvailabilityHandler(repo, tt.phase, jobs)
			user := testUser()

			w := serve(t, h, "/availability", authedRequest(http.MethodPut, "/availability/2026-03-04/amend", weekdaysRequest(), user))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if stored := len(repo.submitted) == 1; stored != tt.wantStored {
				t.Errorf("Expected stored=%v", tt.wantStored)
			}
			if got := len(jobs.jobs) == 1; got != tt.wantRegen {
				t.Fatalf("Expected regeneration=%v, got %d jobs", tt.wantRegen, len(jobs.jobs))
			}
			if tt.wantRegen {
				job := jobs.jobs[0]
				if job.Type != queue.JobTypeGenerateWeek || !job.Force {
					t.Errorf("Expected forced generate_week job, got %s force=%v", job.Type, job.Force)
				}
				if len(job.UserIDs) != 1 || job.UserIDs[0] != user.ID {
					t.Errorf("Expected job scoped to the caller, got %v", job.UserIDs)
				}
				if !job.WeekStart.Equal(testWeek) {
					t.Errorf("Expected job week %s, got %s", testWeek, job.WeekStart)
				}
			}
		})
	}
}

func TestGetAvailability(t *testing.T) {
	t.Parallel()

	user := testUser()
	stored := &models.WeeklyAvailability{ID: uuid.New(), UserID: user.ID, WeekStart: testWeek, Revision: 2}

	tests := []struct {
		name       string
		repo       *mockAvailabilityRepo
		user       *models.User
		wantStatus int
	}{
		{
			name: "found",
			repo: &mockAvailabilityRepo{getFunc: func(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error) {
				return stored, nil
			}},
			user:       user,
			wantStatus: http.StatusOK,
		},
		{
			name:       "nothing submitted",
			repo:       &mockAvailabilityRepo{},
			user:       user,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "repository failure",
			repo: &mockAvailabilityRepo{getFunc: func(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error) {
				return nil, errBoom
			}},
			user:       user,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unauthenticated",
			repo:       &mockAvailabilityRepo{},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newAvailabilityHandler(tt.repo, models.WeekPhaseCollecting, &mockJobs{})
			w := serve(t, h, "/availability", authedRequest(http.MethodGet, "/availability/2026-03-04", nil, tt.user))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
