package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// ScheduleUser places each task on the first day of the week, in week order,
// that still has a large enough gap in the user's window. Assigned slots are
// added to occ so later tasks pack around them. Tasks that fit nowhere are
// returned as unscheduled; they never stop the remaining tasks.
func ScheduleUser(tasks []models.Task, availability *models.WeeklyAvailability, weekStart time.Time, occ *Occupancy) ([]models.ScheduleSlot, []models.UnscheduledTask) {
	var (
		slots       []models.ScheduleSlot
		unscheduled []models.UnscheduledTask
	)
	for i := range tasks {
		task := &tasks[i]
		if task.DurationMinutes <= 0 {
			unscheduled = append(unscheduled, unscheduledFor(task, task.OwnerID, nil, weekStart, models.ReasonInvalidDuration))
			continue
		}
		if availability == nil {
			unscheduled = append(unscheduled, unscheduledFor(task, task.OwnerID, nil, weekStart, models.ReasonMissingAvailability))
			continue
		}

		userID := availability.UserID
		placed := false
		for day := 0; day < models.DaysPerWeek; day++ {
			window := availability.Days[day]
			if !window.HasWindow() {
				continue
			}
			r, ok := FindSlot(window.OpenStart, window.OpenEnd, task.DurationMinutes, occ.Ranges(userID, day))
			if !ok {
				continue
			}
			occ.Add(userID, day, r)
			slots = append(slots, newSlot(task, userID, nil, weekStart, day, r))
			placed = true
			break
		}
		if !placed {
			unscheduled = append(unscheduled, unscheduledFor(task, userID, nil, weekStart, models.ReasonNoFreeSlot))
		}
	}
	return slots, unscheduled
}

func newSlot(task *models.Task, userID uuid.UUID, collaborator *uuid.UUID, weekStart time.Time, day int, r Range) models.ScheduleSlot {
	return models.ScheduleSlot{
		ID:              uuid.New(),
		TaskID:          task.ID,
		UserID:          userID,
		OrganizationID:  task.OrganizationID,
		WeekStart:       weekStart,
		Date:            weekStart.AddDate(0, 0, day),
		Start:           r.Start,
		End:             r.End,
		Status:          models.SlotStatusPending,
		IsCollaborative: collaborator != nil,
		CollaboratorID:  collaborator,
	}
}

func unscheduledFor(task *models.Task, userID uuid.UUID, collaborator *uuid.UUID, weekStart time.Time, reason models.UnscheduledReason) models.UnscheduledTask {
	return models.UnscheduledTask{
		TaskID:         task.ID,
		UserID:         userID,
		CollaboratorID: collaborator,
		WeekStart:      weekStart,
		Reason:         reason,
	}
}
