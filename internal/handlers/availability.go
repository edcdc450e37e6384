package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// AvailabilityRepository stores weekly availability submissions
type AvailabilityRepository interface {
	Submit(ctx context.Context, a *models.WeeklyAvailability) error
	GetAvailability(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyAvailability, error)
}

// WeekStateReader derives the cycle state of a week
type WeekStateReader interface {
	State(ctx context.Context, weekStart time.Time) (*models.WeekCycleState, error)
}

// JobEnqueuer publishes background jobs
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

var (
	_ AvailabilityRepository = (*database.AvailabilityRepository)(nil)
	_ WeekStateReader        = (*scheduling.Controller)(nil)
	_ JobEnqueuer            = (queue.JobQueue)(nil)
)

// AvailabilityHandler serves the weekly availability questionnaire
type AvailabilityHandler struct {
	availability AvailabilityRepository
	weeks        WeekStateReader
	jobs         JobEnqueuer
	calendar     scheduling.WeekCalendar
	logger       *zap.Logger
	now          func() time.Time
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availability AvailabilityRepository, weeks WeekStateReader, jobs JobEnqueuer, calendar scheduling.WeekCalendar, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		weeks:        weeks,
		jobs:         jobs,
		calendar:     calendar,
		logger:       log,
		now:          time.Now,
	}
}

// RegisterRoutes registers availability routes on the given router
// The router should already have the /availability prefix
func (h *AvailabilityHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{week}", h.GetAvailability).Methods("GET")
	r.HandleFunc("/{week}", h.SubmitAvailability).Methods("PUT")
	r.HandleFunc("/{week}/amend", h.AmendAvailability).Methods("PUT")
}

// DayRequest is one day of the questionnaire
type DayRequest struct {
	Available bool   `json:"available"`
	OpenStart string `json:"open_start" validate:"required_if=Available true,clock_time"`
	OpenEnd   string `json:"open_end" validate:"required_if=Available true,clock_time"`
}

// AvailabilityRequest represents a weekly availability submission
type AvailabilityRequest struct {
	Days                 []DayRequest `json:"days" validate:"required,len=7,dive"`
	PreferredHoursPerDay float64      `json:"preferred_hours_per_day" validate:"gte=0,lte=24"`
}

// toModel converts the request into a submission for the user-week
func (req *AvailabilityRequest) toModel(userID uuid.UUID, weekStart, submittedAt time.Time) (*models.WeeklyAvailability, error) {
	a := &models.WeeklyAvailability{
		ID:                   uuid.New(),
		UserID:               userID,
		WeekStart:            weekStart,
		PreferredHoursPerDay: req.PreferredHoursPerDay,
		SubmittedAt:          submittedAt,
	}
	for i, day := range req.Days {
		if !day.Available {
			continue
		}
		start, err := models.ParseClockTime(day.OpenStart)
		if err != nil {
			return nil, err
		}
		end, err := models.ParseClockTime(day.OpenEnd)
		if err != nil {
			return nil, err
		}
		a.Days[i] = models.DayAvailability{Available: true, OpenStart: start, OpenEnd: end}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAvailability returns the caller's current submission for a week
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	weekStart, ok := weekFromPath(w, r, h.calendar)
	if !ok {
		return
	}

	a, err := h.availability.GetAvailability(r.Context(), user.ID, weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_get_availability", err)
		return
	}
	if a == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No availability submitted for this week")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// SubmitAvailability records the questionnaire while the week still
// collects submissions
func (h *AvailabilityHandler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, false)
}

// AmendAvailability supersedes a submission. Once the week is locked the
// caller's schedule is regenerated in the background.
func (h *AvailabilityHandler) AmendAvailability(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, true)
}

func (h *AvailabilityHandler) submit(w http.ResponseWriter, r *http.Request, amend bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	weekStart, ok := weekFromPath(w, r, h.calendar)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	state, err := h.weeks.State(ctx, weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_load_week_state", err)
		return
	}
	regenerate := false
	switch {
	case state.Phase == models.WeekPhaseClosed:
		respondError(w, h.logger, "availability_rejected", scheduling.ErrWeekClosed)
		return
	case state.Phase.AllowsPreview():
	case amend && state.Phase.AllowsFinalGeneration():
		regenerate = true
	default:
		respondError(w, h.logger, "availability_rejected", scheduling.ErrWeekLocked)
		return
	}

	a, err := req.toModel(user.ID, weekStart, h.now())
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.availability.Submit(ctx, a); err != nil {
		respondError(w, h.logger, "failed_to_submit_availability", err)
		return
	}
	h.logger.Info("availability_submitted",
		zap.String("user_id", logger.SanitizeUserID(user.ID.String())),
		zap.String("week_start", weekStart.Format(scheduling.DateLayout)),
		zap.Int("revision", a.Revision),
	)

	if regenerate {
		job := queue.NewJob(queue.JobTypeGenerateWeek, weekStart, []uuid.UUID{user.ID})
		job.Force = true
		if err := h.jobs.Enqueue(ctx, job); err != nil {
			// The amendment is stored; the next regenerate or lock run picks it up
			h.logger.Error("failed_to_enqueue_regeneration",
				zap.String("user_id", logger.SanitizeUserID(user.ID.String())),
				zap.String("error", logger.SanitizeError(err)),
			)
		}
	}

	status := http.StatusOK
	if a.Revision == 1 {
		status = http.StatusCreated
	}
	respondJSON(w, status, a)
}
