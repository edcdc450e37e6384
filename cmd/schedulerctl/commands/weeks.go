package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/benvon/agenda-scheduler/internal/config"
	"github.com/benvon/agenda-scheduler/internal/queue"
	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// NewStateCmd creates the state command
func NewStateCmd() *cobra.Command {
	var week string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the cycle state of a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(envOptions{controller: true, localLock: true})
			if err != nil {
				return err
			}
			defer e.Close()

			weekStart, err := resolveWeek(e.cadence.Calendar(), week, time.Now())
			if err != nil {
				return err
			}
			state, err := e.controller.State(cmd.Context(), weekStart)
			if err != nil {
				return fmt.Errorf("failed to load week state: %w", err)
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "Week start date (YYYY-MM-DD); defaults to the next week")

	return cmd
}

// NewCadenceCmd creates the cadence command
func NewCadenceCmd() *cobra.Command {
	var week, file string

	cmd := &cobra.Command{
		Use:   "cadence",
		Short: "Show the weekly cadence and the deadlines of a week",
		Long:  "Load and validate the cadence configuration without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cadence, err := config.LoadCadence(file)
			if err != nil {
				return err
			}
			weekStart, err := resolveWeek(cadence.Calendar(), week, time.Now())
			if err != nil {
				return err
			}
			printCadence(cmd.OutOrStdout(), cadence, weekStart)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "Week start date (YYYY-MM-DD); defaults to the next week")
	cmd.Flags().StringVar(&file, "file", "", "Cadence YAML file; defaults to the built-in cadence")

	return cmd
}

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var (
		week      string
		users     []string
		force     bool
		enqueue   bool
		localLock bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate committed slots of a locked week",
		Long:  "Regenerate committed slots for the given users, or every submitted user when --user is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			userIDs, err := parseUserIDs(users)
			if err != nil {
				return err
			}

			e, err := openEnv(envOptions{controller: true, localLock: localLock})
			if err != nil {
				return err
			}
			defer e.Close()

			weekStart, err := resolveWeek(e.cadence.Calendar(), week, time.Now())
			if err != nil {
				return err
			}

			if enqueue {
				job := queue.NewJob(queue.JobTypeGenerateWeek, weekStart, userIDs)
				job.Force = force
				return publish(cmd.Context(), e, cmd, job)
			}

			result, err := e.controller.GenerateWeek(cmd.Context(), scheduling.GenerateRequest{
				UserIDs:         userIDs,
				WeekStart:       weekStart,
				ForceRegenerate: force,
			})
			if err != nil {
				return fmt.Errorf("failed to generate week: %w", err)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "Week start date (YYYY-MM-DD); defaults to the next week")
	cmd.Flags().StringSliceVar(&users, "user", nil, "User ID to regenerate (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace existing pending slots")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Publish a job for the worker instead of running inline")
	cmd.Flags().BoolVar(&localLock, "local-lock", false, "Use an in-process lock instead of Redis")

	return cmd
}

// NewLockCmd creates the lock command
func NewLockCmd() *cobra.Command {
	var (
		week      string
		force     bool
		enqueue   bool
		localLock bool
	)

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock a week and run its final generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(envOptions{controller: true, localLock: localLock})
			if err != nil {
				return err
			}
			defer e.Close()

			weekStart, err := resolveWeek(e.cadence.Calendar(), week, time.Now())
			if err != nil {
				return err
			}

			if enqueue {
				job := queue.NewJob(queue.JobTypeLockWeek, weekStart, nil)
				job.Force = force
				return publish(cmd.Context(), e, cmd, job)
			}

			result, err := e.controller.Lock(cmd.Context(), weekStart, force)
			if err != nil {
				return fmt.Errorf("failed to lock week: %w", err)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "Week start date (YYYY-MM-DD); defaults to the next week")
	cmd.Flags().BoolVar(&force, "force", false, "Lock an incomplete week before its cutoff")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Publish a job for the worker instead of running inline")
	cmd.Flags().BoolVar(&localLock, "local-lock", false, "Use an in-process lock instead of Redis")

	return cmd
}

// NewTickCmd creates the tick command
func NewTickCmd() *cobra.Command {
	var localLock bool

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Lock every week whose lock is due",
		Long:  "Run one pass of the cadence timer; suitable for cron when no worker runs the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(envOptions{controller: true, localLock: localLock})
			if err != nil {
				return err
			}
			defer e.Close()

			locked, err := e.controller.Tick(cmd.Context())
			for _, weekStart := range locked {
				fmt.Fprintf(cmd.OutOrStdout(), "Locked week %s\n", weekStart.Format(scheduling.DateLayout))
			}
			if err != nil {
				return fmt.Errorf("tick finished with errors: %w", err)
			}
			if len(locked) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No weeks due")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&localLock, "local-lock", false, "Use an in-process lock instead of Redis")

	return cmd
}

func publish(ctx context.Context, e *env, cmd *cobra.Command, job *queue.Job) error {
	q, err := e.openQueue()
	if err != nil {
		return err
	}
	if err := q.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s job %s for week %s\n", job.Type, job.ID, job.WeekStart.Format(scheduling.DateLayout))
	return nil
}

func parseUserIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --user %q: %w", s, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
