package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSlotStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from SlotStatus
		to   SlotStatus
		want bool
	}{
		{SlotStatusPending, SlotStatusAccepted, true},
		{SlotStatusPending, SlotStatusCancelled, true},
		{SlotStatusPending, SlotStatusCompleted, true},
		{SlotStatusAccepted, SlotStatusCompleted, true},
		{SlotStatusAccepted, SlotStatusCancelled, true},
		{SlotStatusAccepted, SlotStatusPending, false},
		{SlotStatusCompleted, SlotStatusCancelled, false},
		{SlotStatusCancelled, SlotStatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleSlot_Overlaps(t *testing.T) {
	t.Parallel()

	user := uuid.New()
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	base := ScheduleSlot{UserID: user, Date: date, Start: 540, End: 600, Status: SlotStatusPending}

	tests := []struct {
		name  string
		other ScheduleSlot
		want  bool
	}{
		{"same range", base, true},
		{"touching end", ScheduleSlot{UserID: user, Date: date, Start: 600, End: 660, Status: SlotStatusPending}, false},
		{"partial overlap", ScheduleSlot{UserID: user, Date: date, Start: 570, End: 630, Status: SlotStatusAccepted}, true},
		{"other user", ScheduleSlot{UserID: uuid.New(), Date: date, Start: 540, End: 600, Status: SlotStatusPending}, false},
		{"other date", ScheduleSlot{UserID: user, Date: date.AddDate(0, 0, 1), Start: 540, End: 600, Status: SlotStatusPending}, false},
		{"cancelled", ScheduleSlot{UserID: user, Date: date, Start: 540, End: 600, Status: SlotStatusCancelled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := base.Overlaps(&tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}
