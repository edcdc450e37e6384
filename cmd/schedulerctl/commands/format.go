package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/benvon/agenda-scheduler/internal/models"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

func printState(out io.Writer, state *models.WeekCycleState) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Week:\t%s\n", state.WeekStart.Format(scheduling.DateLayout))
	fmt.Fprintf(tw, "Phase:\t%s\n", state.Phase)
	fmt.Fprintf(tw, "Submitted:\t%d of %d\n", state.Submitted, state.Expected)
	fmt.Fprintf(tw, "Lock at:\t%s\n", formatInstant(&state.LockAt))
	fmt.Fprintf(tw, "Change window ends:\t%s\n", formatInstant(&state.ChangeWindowEndsAt))
	fmt.Fprintf(tw, "Locked at:\t%s\n", formatInstant(state.LockedAt))
	if state.LastGeneratedAt != nil {
		fmt.Fprintf(tw, "Last generated:\t%s\n", formatInstant(state.LastGeneratedAt))
		fmt.Fprintf(tw, "Slots:\t%d\n", state.SlotsGenerated)
		fmt.Fprintf(tw, "Tasks processed:\t%d\n", state.TasksProcessed)
		fmt.Fprintf(tw, "Unscheduled:\t%d\n", state.Unscheduled)
	}
	_ = tw.Flush()
}

func printCadence(out io.Writer, cadence scheduling.Cadence, weekStart time.Time) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Week starts on:\t%s\n", cadence.WeekStartDay)
	fmt.Fprintf(tw, "Time zone:\t%s\n", cadence.Calendar().Location)
	fmt.Fprintf(tw, "Lock lead time:\t%s\n", cadence.LockLeadTime)
	fmt.Fprintf(tw, "Change window:\t%s\n", cadence.ChangeWindow)
	fmt.Fprintf(tw, "Lock when complete:\t%t\n", cadence.LockWhenComplete)
	fmt.Fprintf(tw, "\nWeek:\t%s\n", weekStart.Format(scheduling.DateLayout))
	lockAt := cadence.LockAt(weekStart)
	windowEnd := cadence.ChangeWindowEndsAt(weekStart)
	fmt.Fprintf(tw, "Lock at:\t%s\n", formatInstant(&lockAt))
	fmt.Fprintf(tw, "Change window ends:\t%s\n", formatInstant(&windowEnd))
	_ = tw.Flush()
}

func printResult(out io.Writer, result *scheduling.GenerationResult) {
	if result.AlreadyGenerated {
		fmt.Fprintf(out, "Week %s already has a schedule; nothing to do (use --force to replace pending slots)\n", result.WeekStart.Format(scheduling.DateLayout))
		return
	}
	fmt.Fprintf(out, "Week %s: %d slot(s) for %d user(s), %d task(s) processed, %d kept, %d unscheduled\n",
		result.WeekStart.Format(scheduling.DateLayout),
		result.SlotsGenerated,
		result.UsersScheduled,
		result.TasksProcessed,
		result.TasksKept,
		result.Unscheduled,
	)
	for _, u := range result.UnscheduledTasks {
		fmt.Fprintf(out, "  unscheduled %s (%s): %s\n", u.TaskID, u.UserID, u.Reason)
	}
}

func formatInstant(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
