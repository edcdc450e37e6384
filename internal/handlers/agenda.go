package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/database"
	"github.com/benvon/agenda-scheduler/internal/models"
)

// AgendaSettingsRepository reads and saves global agenda settings
type AgendaSettingsRepository interface {
	GetAgendaSettings(ctx context.Context, userID uuid.UUID) (*models.GlobalAgendaSettings, error)
	Upsert(ctx context.Context, s *models.GlobalAgendaSettings) error
}

var _ AgendaSettingsRepository = (*database.AgendaSettingsRepository)(nil)

// AgendaHandler serves the global agenda settings
type AgendaHandler struct {
	settings AgendaSettingsRepository
	logger   *zap.Logger
}

// NewAgendaHandler creates a new agenda handler
func NewAgendaHandler(settings AgendaSettingsRepository, log *zap.Logger) *AgendaHandler {
	return &AgendaHandler{settings: settings, logger: log}
}

// RegisterRoutes registers agenda routes on the given router
// The router should already have the /agenda prefix
func (h *AgendaHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings", h.UpdateSettings).Methods("PUT")
}

// AgendaSettingsRequest represents an update of the agenda settings
type AgendaSettingsRequest struct {
	LinkedOrganizationIDs []string          `json:"linked_organization_ids" validate:"max=100,dive,uuid"`
	ShowPersonalTasks     bool              `json:"show_personal_tasks"`
	ShowOrgTasks          bool              `json:"show_org_tasks"`
	Colors                map[string]string `json:"colors,omitempty" validate:"max=50,dive,keys,min=1,max=64,endkeys,hexcolor"`
}

// GetSettings returns the caller's settings, or the defaults when none were saved
func (h *AgendaHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	settings, err := h.settings.GetAgendaSettings(r.Context(), user.ID)
	if err != nil {
		respondError(w, h.logger, "failed_to_get_agenda_settings", err)
		return
	}
	if settings == nil {
		settings = models.DefaultAgendaSettings(user.ID)
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the caller's settings
func (h *AgendaHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AgendaSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	settings := &models.GlobalAgendaSettings{
		UserID:                user.ID,
		LinkedOrganizationIDs: make([]uuid.UUID, 0, len(req.LinkedOrganizationIDs)),
		ShowPersonalTasks:     req.ShowPersonalTasks,
		ShowOrgTasks:          req.ShowOrgTasks,
		Colors:                req.Colors,
	}
	seen := make(map[uuid.UUID]struct{}, len(req.LinkedOrganizationIDs))
	for _, raw := range req.LinkedOrganizationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid organization ID")
			return
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		settings.LinkedOrganizationIDs = append(settings.LinkedOrganizationIDs, id)
	}
	if settings.Colors == nil {
		settings.Colors = map[string]string{}
	}

	if err := h.settings.Upsert(r.Context(), settings); err != nil {
		respondError(w, h.logger, "failed_to_save_agenda_settings", err)
		return
	}
	h.logger.Info("agenda_settings_updated",
		zap.String("user_id", user.ID.String()),
		zap.Int("linked_organizations", len(settings.LinkedOrganizationIDs)),
	)
	respondJSON(w, http.StatusOK, settings)
}
