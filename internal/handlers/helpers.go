package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/request"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
	"github.com/benvon/agenda-scheduler/internal/validation"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage caps error messages so internal detail is not echoed back
func sanitizeErrorMessage(message string) string {
	if len(message) > 200 {
		return message[:200] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// requireUser returns the authenticated user or writes a 401
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, false
	}
	return user, true
}

// weekFromPath parses the {week} route variable against the calendar
func weekFromPath(w http.ResponseWriter, r *http.Request, calendar scheduling.WeekCalendar) (time.Time, bool) {
	weekStart, err := calendar.ParseWeekStart(mux.Vars(r)["week"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return time.Time{}, false
	}
	return weekStart, true
}

// idFromPath parses the {id} route variable
func idFromPath(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid %s ID", what))
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON decodes and validates a request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// respondError maps domain and repository errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without detail.
func respondError(w http.ResponseWriter, log *zap.Logger, event string, err error) {
	switch {
	case errors.Is(err, scheduling.ErrInvalidWeekStart),
		errors.Is(err, models.ErrInvalidAvailability):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound),
		errors.Is(err, models.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Resource not found")
	case errors.Is(err, scheduling.ErrWeekClosed),
		errors.Is(err, scheduling.ErrWeekLocked),
		errors.Is(err, scheduling.ErrWeekNotLocked),
		errors.Is(err, scheduling.ErrLockNotDue),
		errors.Is(err, scheduling.ErrNotSubmitted),
		errors.Is(err, scheduling.ErrChangeWindowClosed),
		errors.Is(err, database.ErrInvalidTransition):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, scheduling.ErrLockHeld):
		w.Header().Set("Retry-After", "30")
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Schedule is being generated, retry shortly")
	default:
		log.Error(event, zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Request failed")
	}
}
