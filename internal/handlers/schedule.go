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

// SchedulePlanner is the part of the lifecycle controller the schedule
// endpoints drive
type SchedulePlanner interface {
	WeekStateReader
	Preview(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*scheduling.GenerationResult, error)
}

// ScheduleReader reads a user's committed agenda
type ScheduleReader interface {
	GetWeekSlots(ctx context.Context, userIDs []uuid.UUID, weekStart time.Time) ([]models.ScheduleSlot, error)
	ListUnscheduled(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]models.UnscheduledTask, error)
}

var (
	_ SchedulePlanner = (*scheduling.Controller)(nil)
	_ ScheduleReader  = (*database.SlotRepository)(nil)
)

// ScheduleHandler serves previews, regeneration requests and the agenda view
type ScheduleHandler struct {
	planner  SchedulePlanner
	slots    ScheduleReader
	jobs     JobEnqueuer
	calendar scheduling.WeekCalendar
	logger   *zap.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(planner SchedulePlanner, slots ScheduleReader, jobs JobEnqueuer, calendar scheduling.WeekCalendar, log *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		planner:  planner,
		slots:    slots,
		jobs:     jobs,
		calendar: calendar,
		logger:   log,
	}
}

// RegisterRoutes registers schedule routes on the given router
// The router should already have the /schedule prefix
func (h *ScheduleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{week}", h.GetSchedule).Methods("GET")
	r.HandleFunc("/{week}/preview", h.Preview).Methods("POST")
	r.HandleFunc("/{week}/regenerate", h.Regenerate).Methods("POST")
}

// ScheduleResponse is a user's agenda for one week
type ScheduleResponse struct {
	WeekStart   string                   `json:"week_start"`
	Phase       models.WeekPhase         `json:"phase"`
	Slots       []models.ScheduleSlot    `json:"slots"`
	Unscheduled []models.UnscheduledTask `json:"unscheduled"`
}

// RegenerateResponse acknowledges a queued regeneration
type RegenerateResponse struct {
	JobID     uuid.UUID `json:"job_id"`
	WeekStart string    `json:"week_start"`
}

// GetSchedule returns the caller's slots and the tasks the last run could not place
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	weekStart, ok := weekFromPath(w, r, h.calendar)
	if !ok {
		return
	}

	ctx := r.Context()
	state, err := h.planner.State(ctx, weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_load_week_state", err)
		return
	}
	slots, err := h.slots.GetWeekSlots(ctx, []uuid.UUID{user.ID}, weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_get_schedule", err)
		return
	}
	unscheduled, err := h.slots.ListUnscheduled(ctx, user.ID, weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_get_unscheduled", err)
		return
	}

	resp := ScheduleResponse{
		WeekStart:   weekStart.Format(scheduling.DateLayout),
		Phase:       state.Phase,
		Slots:       make([]models.ScheduleSlot, 0, len(slots)),
		Unscheduled: make([]models.UnscheduledTask, 0, len(unscheduled)),
	}
	for _, s := range slots {
		if s.UserID == user.ID {
			resp.Slots = append(resp.Slots, s)
		}
	}
	resp.Unscheduled = append(resp.Unscheduled, unscheduled...)
	respondJSON(w, http.StatusOK, resp)
}

// Preview runs a non-committed generation for the caller
func (h *ScheduleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	weekStart, ok := weekFromPath(w, r, h.calendar)
	if !ok {
		return
	}

	result, err := h.planner.Preview(r.Context(), user.ID, weekStart)
	if err != nil {
		respondError(w, h.logger, "preview_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Regenerate queues a committed regeneration of the caller's week. Only
// locked weeks can be regenerated; earlier phases serve previews.
func (h *ScheduleHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	weekStart, ok := weekFromPath(w, r, h.calendar)
	if !ok {
		return
	}

	ctx := r.Context()
	state, err := h.planner.State(ctx, weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_load_week_state", err)
		return
	}
	switch {
	case state.Phase == models.WeekPhaseClosed:
		respondError(w, h.logger, "regenerate_rejected", scheduling.ErrWeekClosed)
		return
	case !state.Phase.AllowsFinalGeneration():
		respondError(w, h.logger, "regenerate_rejected", scheduling.ErrWeekNotLocked)
		return
	}

	job := queue.NewJob(queue.JobTypeGenerateWeek, weekStart, []uuid.UUID{user.ID})
	job.Force = true
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.logger.Error("failed_to_enqueue_regeneration",
			zap.String("user_id", logger.SanitizeUserID(user.ID.String())),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue regeneration")
		return
	}
	h.logger.Info("regeneration_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", logger.SanitizeUserID(user.ID.String())),
		zap.String("week_start", weekStart.Format(scheduling.DateLayout)),
	)
	respondJSON(w, http.StatusAccepted, RegenerateResponse{
		JobID:     job.ID,
		WeekStart: weekStart.Format(scheduling.DateLayout),
	})
}
