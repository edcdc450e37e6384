package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalAgendaSettings controls which task pools feed a user's merged agenda.
type GlobalAgendaSettings struct {
	UserID                uuid.UUID         `json:"user_id"`
	LinkedOrganizationIDs []uuid.UUID       `json:"linked_organization_ids"`
	ShowPersonalTasks     bool              `json:"show_personal_tasks"`
	ShowOrgTasks          bool              `json:"show_org_tasks"`
	Colors                map[string]string `json:"colors,omitempty"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// DefaultAgendaSettings is used for users who never saved their settings.
func DefaultAgendaSettings(userID uuid.UUID) *GlobalAgendaSettings {
	return &GlobalAgendaSettings{
		UserID:                userID,
		LinkedOrganizationIDs: []uuid.UUID{},
		ShowPersonalTasks:     true,
		ShowOrgTasks:          true,
		Colors:                map[string]string{},
	}
}
