package scheduling

import (
	"time"

	"github.com/benvon/agenda-scheduler/internal/models"
)

// ScheduleCollaborative finds one slot that both the owner and the leader of
// task can attend. The window on each day is the intersection of both
// windows and the slot must avoid the occupied ranges of both users. On
// success both slots are returned, each naming the other participant, and
// occ is updated for both. On failure nothing is assigned to either side.
func ScheduleCollaborative(task *models.Task, owner, leader *models.WeeklyAvailability, weekStart time.Time, occ *Occupancy) ([2]models.ScheduleSlot, bool) {
	var pair [2]models.ScheduleSlot
	if !task.IsCollaborative() || owner == nil || leader == nil || task.DurationMinutes <= 0 {
		return pair, false
	}
	ownerID, leaderID := owner.UserID, leader.UserID

	for day := 0; day < models.DaysPerWeek; day++ {
		a, b := owner.Days[day], leader.Days[day]
		if !a.HasWindow() || !b.HasWindow() {
			continue
		}
		dayOpen := max(a.OpenStart, b.OpenStart)
		dayClose := min(a.OpenEnd, b.OpenEnd)
		if dayClose <= dayOpen {
			continue
		}
		r, ok := FindSlot(dayOpen, dayClose, task.DurationMinutes, occ.Union(day, ownerID, leaderID))
		if !ok {
			continue
		}
		occ.Add(ownerID, day, r)
		occ.Add(leaderID, day, r)
		pair[0] = newSlot(task, ownerID, &leaderID, weekStart, day, r)
		pair[1] = newSlot(task, leaderID, &ownerID, weekStart, day, r)
		return pair, true
	}
	return pair, false
}
