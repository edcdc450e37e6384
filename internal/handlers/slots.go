package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
	"github.com/benvon/agenda-scheduler/internal/validation"
)

// ChangeRequester flags a slot during the change window
type ChangeRequester interface {
	RequestChange(ctx context.Context, userID, slotID uuid.UUID, reason string) (*models.ChangeRequest, error)
}

var (
	_ ChangeRequester            = (*scheduling.Controller)(nil)
	_ database.SlotStatusUpdater = (*database.SlotRepository)(nil)
)

// SlotHandler serves slot status actions and change requests
type SlotHandler struct {
	slots   database.SlotStatusUpdater
	changes ChangeRequester
	logger  *zap.Logger
}

// NewSlotHandler creates a new slot handler
func NewSlotHandler(slots database.SlotStatusUpdater, changes ChangeRequester, log *zap.Logger) *SlotHandler {
	return &SlotHandler{slots: slots, changes: changes, logger: log}
}

// RegisterRoutes registers slot routes on the given router
// The router should already have the /slots prefix
func (h *SlotHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/accept", h.transition(models.SlotStatusAccepted)).Methods("POST")
	r.HandleFunc("/{id}/reject", h.transition(models.SlotStatusCancelled)).Methods("POST")
	r.HandleFunc("/{id}/complete", h.transition(models.SlotStatusCompleted)).Methods("POST")
	r.HandleFunc("/{id}/change-requests", h.CreateChangeRequest).Methods("POST")
}

// ChangeRequestBody represents a change request on a slot
type ChangeRequestBody struct {
	Reason string `json:"reason" validate:"required,min=1,max=2000"`
}

// statusUpdate carries the target status through the validator
type statusUpdate struct {
	Status string `validate:"required,slot_status"`
}

func (h *SlotHandler) transition(next models.SlotStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := idFromPath(w, r, "slot")
		if !ok {
			return
		}
		if err := validation.Validate.Struct(statusUpdate{Status: string(next)}); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid slot status")
			return
		}

		slot, err := h.slots.UpdateStatus(r.Context(), id, user.ID, next)
		if err != nil {
			respondError(w, h.logger, "failed_to_update_slot_status", err)
			return
		}
		h.logger.Info("slot_status_updated",
			zap.String("slot_id", id.String()),
			zap.String("status", string(next)),
		)
		respondJSON(w, http.StatusOK, slot)
	}
}

// CreateChangeRequest flags one of the caller's slots for manual resolution
func (h *SlotHandler) CreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := idFromPath(w, r, "slot")
	if !ok {
		return
	}

	var body ChangeRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	reason := validation.SanitizeText(body.Reason)
	if reason == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Reason is required and cannot be empty after sanitization")
		return
	}

	req, err := h.changes.RequestChange(r.Context(), user.ID, id, reason)
	if err != nil {
		respondError(w, h.logger, "failed_to_create_change_request", err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}
