package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// WeekHandler exposes the derived cycle state of a week
type WeekHandler struct {
	weeks    WeekStateReader
	calendar scheduling.WeekCalendar
	logger   *zap.Logger
}

// NewWeekHandler creates a new week handler
func NewWeekHandler(weeks WeekStateReader, calendar scheduling.WeekCalendar, log *zap.Logger) *WeekHandler {
	return &WeekHandler{weeks: weeks, calendar: calendar, logger: log}
}

// RegisterRoutes registers week routes on the given router
// The router should already have the /weeks prefix
func (h *WeekHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{week}/state", h.GetState).Methods("GET")
}

// GetState returns the phase, submission counts and cutoffs of a week
func (h *WeekHandler) GetState(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	weekStart, ok := weekFromPath(w, r, h.calendar)
	if !ok {
		return
	}

	state, err := h.weeks.State(r.Context(), weekStart)
	if err != nil {
		respondError(w, h.logger, "failed_to_load_week_state", err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}
