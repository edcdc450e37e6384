package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/request"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

type slotEnvelope struct {
	Success   bool                  `json:"success"`
	Data      []models.ScheduleSlot `json:"data"`
	Timestamp string                `json:"timestamp"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestRespondJSON_SlotEnvelope(t *testing.T) {
	t.Parallel()

	collaborator := uuid.New()
	slots := []models.ScheduleSlot{{
		ID:              uuid.New(),
		TaskID:          uuid.New(),
		UserID:          uuid.New(),
		WeekStart:       testWeek,
		Date:            testWeek.AddDate(0, 0, 5),
		Start:           models.NewClockTime(9, 0),
		End:             models.NewClockTime(10, 30),
		Status:          models.SlotStatusPending,
		IsCollaborative: true,
		CollaboratorID:  &collaborator,
	}}

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusOK, slots)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}
	if !strings.Contains(w.Body.String(), `"start":"09:00"`) {
		t.Errorf("Expected clock times rendered as HH:MM, got %s", w.Body.String())
	}

	var body slotEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success || len(body.Data) != 1 {
		t.Fatalf("Expected one slot in a successful envelope, got %+v", body)
	}
	got := body.Data[0]
	if got.End != models.NewClockTime(10, 30) || got.CollaboratorID == nil || *got.CollaboratorID != collaborator {
		t.Errorf("Slot did not survive the envelope: %+v", got)
	}
	if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
		t.Errorf("Timestamp '%s' is not valid RFC3339: %v", body.Timestamp, err)
	}
}

func TestRespondJSONError_Envelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		message     string
		wantMessage string
	}{
		{"short message kept", "Week is locked", "Week is locked"},
		{"long message truncated", strings.Repeat("x", 300), strings.Repeat("x", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSONError(w, http.StatusConflict, "Conflict", tt.message)

			if w.Code != http.StatusConflict {
				t.Errorf("Expected status 409, got %d", w.Code)
			}
			var body errorEnvelope
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Success || body.Error != "Conflict" || body.Message != tt.wantMessage {
				t.Errorf("Unexpected error envelope: %+v", body)
			}
		})
	}
}

func TestWeekFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		week       string
		wantOK     bool
		wantStatus int
	}{
		{"configured week start", "2026-03-04", true, http.StatusOK},
		{"wrong weekday", "2026-03-05", false, http.StatusBadRequest},
		{"not a date", "next-week", false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/schedule/"+tt.week, nil), map[string]string{"week": tt.week})
			w := httptest.NewRecorder()

			weekStart, ok := weekFromPath(w, req, testCalendar)
			if ok != tt.wantOK {
				t.Fatalf("weekFromPath() ok = %v, want %v", ok, tt.wantOK)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ok && !weekStart.Equal(testWeek) {
				t.Errorf("weekFromPath() = %v, want %v", weekStart, testWeek)
			}
		})
	}
}

func TestIDFromPath(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodPost, "/slots/x/accept", nil), map[string]string{"id": id.String()})
	w := httptest.NewRecorder()
	if got, ok := idFromPath(w, req, "slot"); !ok || got != id {
		t.Errorf("idFromPath() = %v, %v; want %v", got, ok, id)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodPost, "/slots/x/accept", nil), map[string]string{"id": "42"})
	w = httptest.NewRecorder()
	if _, ok := idFromPath(w, req, "slot"); ok {
		t.Fatal("idFromPath() accepted a malformed id")
	}
	var body errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if w.Code != http.StatusBadRequest || body.Message != "Invalid slot ID" {
		t.Errorf("Expected 400 'Invalid slot ID', got %d %q", w.Code, body.Message)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{"valid change request", `{"reason":"overlaps a client call"}`, 0, true, http.StatusOK},
		{"missing reason", `{"reason":""}`, 0, false, http.StatusBadRequest},
		{"malformed body", `{"reason":`, 0, false, http.StatusBadRequest},
		{"body over the limit", `{"reason":"overlaps a client call"}`, 8, false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/slots/x/change-requests", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(w, req.Body, tt.limit)
			}

			var dst ChangeRequestBody
			if ok := decodeJSON(w, req, &dst); ok != tt.wantOK {
				t.Fatalf("decodeJSON() ok = %v, want %v", ok, tt.wantOK)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	if _, ok := requireUser(w, httptest.NewRequest(http.MethodGet, "/schedule/2026-03-04", nil)); ok {
		t.Error("requireUser() succeeded without a user in context")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	user := &models.User{ID: uuid.New()}
	req := httptest.NewRequest(http.MethodGet, "/schedule/2026-03-04", nil)
	req = req.WithContext(request.WithUser(req.Context(), user))
	if got, ok := requireUser(httptest.NewRecorder(), req); !ok || got.ID != user.ID {
		t.Errorf("requireUser() = %v, %v; want %v", got, ok, user.ID)
	}
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid week start", fmt.Errorf("%w: 2026-03-05", scheduling.ErrInvalidWeekStart), http.StatusBadRequest},
		{"invalid availability", models.ErrInvalidAvailability, http.StatusBadRequest},
		{"slot not found", scheduling.ErrSlotNotFound, http.StatusNotFound},
		{"row not found", fmt.Errorf("slot x: %w", models.ErrNotFound), http.StatusNotFound},
		{"week closed", scheduling.ErrWeekClosed, http.StatusConflict},
		{"week locked", scheduling.ErrWeekLocked, http.StatusConflict},
		{"week not locked", scheduling.ErrWeekNotLocked, http.StatusConflict},
		{"lock not due", scheduling.ErrLockNotDue, http.StatusConflict},
		{"not submitted", scheduling.ErrNotSubmitted, http.StatusConflict},
		{"change window closed", scheduling.ErrChangeWindowClosed, http.StatusConflict},
		{"invalid transition", fmt.Errorf("%w: completed to accepted", database.ErrInvalidTransition), http.StatusConflict},
		{"lock held", scheduling.ErrLockHeld, http.StatusServiceUnavailable},
		{"unknown", errBoom, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondError(w, zap.NewNop(), "test_failure", tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRespondError_LockHeldAsksForRetry(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondError(w, zap.NewNop(), "test_failure", scheduling.ErrLockHeld)
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Expected Retry-After 30, got %q", got)
	}
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondError(w, zap.NewNop(), "test_failure", fmt.Errorf("pq: connection refused at 10.0.0.5"))

	var body errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Message != "Request failed" {
		t.Errorf("Expected generic message, got %q", body.Message)
	}
}
