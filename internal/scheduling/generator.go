package scheduling

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/models"
)

const (
	tracerName     = "github.com/benvon/agenda-scheduler/internal/scheduling"
	defaultLockTTL = 2 * time.Minute
)

// GenerateRequest is the trigger surface of a generation run. An empty
// UserIDs list means every user who submitted availability for the week.
type GenerateRequest struct {
	UserIDs         []uuid.UUID `json:"user_ids,omitempty"`
	WeekStart       time.Time   `json:"week_start"`
	ForceRegenerate bool        `json:"force_regenerate"`
}

// GenerationResult summarizes a run.
type GenerationResult struct {
	WeekStart        time.Time                `json:"week_start"`
	SlotsGenerated   int                      `json:"slots_generated"`
	TasksProcessed   int                      `json:"tasks_processed"`
	Unscheduled      int                      `json:"unscheduled"`
	UnscheduledTasks []models.UnscheduledTask `json:"unscheduled_tasks,omitempty"`
	UsersScheduled   int                      `json:"users_scheduled"`
	TasksKept        int                      `json:"tasks_kept"`
	AlreadyGenerated bool                     `json:"already_generated,omitempty"`
	Slots            []models.ScheduleSlot    `json:"slots,omitempty"`
}

// GeneratorConfig wires a Generator to its stores.
type GeneratorConfig struct {
	Calendar     WeekCalendar
	Availability AvailabilityStore
	Settings     SettingsStore
	Tasks        TaskSource
	Slots        SlotStore
	Locker       Locker
	LockTTL      time.Duration
	Logger       *zap.Logger
}

// Generator runs week generations: it loads the working set once, assigns
// collaborative tasks before individual ones, and persists the whole scope in
// a single replace.
type Generator struct {
	calendar     WeekCalendar
	availability AvailabilityStore
	settings     SettingsStore
	tasks        TaskSource
	merger       *AgendaMerger
	slots        SlotStore
	locker       Locker
	lockTTL      time.Duration
	logger       *zap.Logger
	tracer       trace.Tracer
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Locker == nil {
		cfg.Locker = NewMemoryLocker()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Generator{
		calendar:     cfg.Calendar,
		availability: cfg.Availability,
		settings:     cfg.Settings,
		tasks:        cfg.Tasks,
		merger:       NewAgendaMerger(cfg.Tasks),
		slots:        cfg.Slots,
		locker:       cfg.Locker,
		lockTTL:      cfg.LockTTL,
		logger:       cfg.Logger,
		tracer:       otel.Tracer(tracerName),
	}
}

// Calendar returns the week calendar the generator works in.
func (g *Generator) Calendar() WeekCalendar {
	return g.calendar
}

// GenerateWeek computes and commits the schedule of the requested users and
// everyone they share a collaborative task with. Pending slots in that scope
// are replaced; accepted and completed slots are kept and block their time.
// Without ForceRegenerate a scope that already has slots is left untouched.
func (g *Generator) GenerateWeek(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	weekStart, err := g.calendar.Normalize(req.WeekStart)
	if err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, "scheduling.generate_week", trace.WithAttributes(
		attribute.String("week_start", weekStart.Format(DateLayout)),
		attribute.Int("scope.requested", len(req.UserIDs)),
		attribute.Bool("force_regenerate", req.ForceRegenerate),
	))
	defer span.End()

	result := &GenerationResult{WeekStart: weekStart}

	seeds := req.UserIDs
	if len(seeds) == 0 {
		seeds, err = g.availability.ListSubmittedUsers(ctx, weekStart)
		if err != nil {
			return nil, g.fail(span, nil, weekStart, fmt.Errorf("failed to list submitted users: %w", err))
		}
	}
	if len(seeds) == 0 {
		g.logger.Info("generation_skipped_no_submissions",
			zap.String("week_start", weekStart.Format(DateLayout)),
		)
		return result, nil
	}

	scope, err := g.resolveScope(ctx, seeds, weekStart)
	if err != nil {
		return nil, g.fail(span, seeds, weekStart, err)
	}

	release, err := g.lockUsers(ctx, scope.users, weekStart)
	if err != nil {
		return nil, g.fail(span, scope.users, weekStart, err)
	}
	defer release()

	p, err := g.plan(ctx, scope, weekStart)
	if err != nil {
		return nil, g.fail(span, scope.users, weekStart, err)
	}
	if len(p.users) == 0 {
		g.logger.Info("generation_skipped_no_submissions",
			zap.String("week_start", weekStart.Format(DateLayout)),
			zap.Int("scope_size", len(scope.users)),
		)
		return result, nil
	}
	if p.hasExisting && !req.ForceRegenerate {
		result.AlreadyGenerated = true
		g.logger.Info("generation_skipped_existing_schedule",
			zap.String("week_start", weekStart.Format(DateLayout)),
			zap.Int("users", len(p.users)),
		)
		return result, nil
	}

	if err := g.slots.ReplaceWeekSlots(ctx, p.users, weekStart, p.slots); err != nil {
		return nil, g.fail(span, p.users, weekStart, fmt.Errorf("failed to replace week slots: %w", err))
	}
	if err := g.slots.RecordUnscheduled(ctx, p.users, weekStart, p.unscheduled); err != nil {
		g.logger.Warn("failed_to_record_unscheduled_tasks",
			zap.String("week_start", weekStart.Format(DateLayout)),
			zap.Int("count", len(p.unscheduled)),
			zap.String("error", logger.SanitizeError(err)),
		)
	}

	p.fill(result)
	span.SetAttributes(
		attribute.Int("slots_generated", result.SlotsGenerated),
		attribute.Int("unscheduled", result.Unscheduled),
	)
	g.logger.Info("generation_completed",
		zap.String("week_start", weekStart.Format(DateLayout)),
		zap.Int("users", result.UsersScheduled),
		zap.Int("slots_generated", result.SlotsGenerated),
		zap.Int("tasks_processed", result.TasksProcessed),
		zap.Int("tasks_kept", result.TasksKept),
		zap.Int("unscheduled", result.Unscheduled),
	)
	return result, nil
}

// Preview computes the schedule userID would get now without committing it.
// Only the user's own slots and unscheduled tasks are returned.
func (g *Generator) Preview(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*GenerationResult, error) {
	weekStart, err := g.calendar.Normalize(weekStart)
	if err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, "scheduling.preview", trace.WithAttributes(
		attribute.String("week_start", weekStart.Format(DateLayout)),
	))
	defer span.End()

	scope, err := g.resolveScope(ctx, []uuid.UUID{userID}, weekStart)
	if err != nil {
		return nil, g.fail(span, []uuid.UUID{userID}, weekStart, err)
	}
	p, err := g.plan(ctx, scope, weekStart)
	if err != nil {
		return nil, g.fail(span, []uuid.UUID{userID}, weekStart, err)
	}

	p.slots = slices.DeleteFunc(p.slots, func(s models.ScheduleSlot) bool {
		return s.UserID != userID
	})
	p.unscheduled = slices.DeleteFunc(p.unscheduled, func(u models.UnscheduledTask) bool {
		return u.UserID != userID && (u.CollaboratorID == nil || *u.CollaboratorID != userID)
	})

	result := &GenerationResult{WeekStart: weekStart}
	p.fill(result)
	result.Slots = p.slots
	return result, nil
}

func (g *Generator) fail(span trace.Span, users []uuid.UUID, weekStart time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Error("generation_failed",
		zap.String("week_start", weekStart.Format(DateLayout)),
		zap.Int("users", len(users)),
		zap.String("error", logger.SanitizeError(err)),
	)
	return &GenerationError{UserIDs: users, WeekStart: weekStart, Err: err}
}

// runScope is the closed set of users a run touches along with each user's
// eligible tasks.
type runScope struct {
	users []uuid.UUID
	tasks map[uuid.UUID][]models.Task
}

// resolveScope expands seeds to every user linked to them through a
// collaborative task or an existing collaborative slot, so that tasks sharing
// a participant are always planned in the same run.
func (g *Generator) resolveScope(ctx context.Context, seeds []uuid.UUID, weekStart time.Time) (*runScope, error) {
	scope := &runScope{tasks: make(map[uuid.UUID][]models.Task)}
	queue := slices.Clone(seeds)

	for len(queue) > 0 {
		for len(queue) > 0 {
			userID := queue[0]
			queue = queue[1:]
			if _, seen := scope.tasks[userID]; seen {
				continue
			}

			settings, err := g.settings.GetAgendaSettings(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to load agenda settings for user %s: %w", userID, err)
			}
			tasks, err := g.merger.EligibleTasks(ctx, userID, settings, weekStart)
			if err != nil {
				return nil, fmt.Errorf("failed to load tasks for user %s: %w", userID, err)
			}
			if tasks == nil {
				tasks = []models.Task{}
			}
			scope.tasks[userID] = tasks
			scope.users = append(scope.users, userID)

			for i := range tasks {
				if tasks[i].IsCollaborative() {
					queue = append(queue, *tasks[i].LeaderID)
				}
			}
			owners, err := g.tasks.OwnersLedBy(ctx, userID, weekStart)
			if err != nil {
				return nil, fmt.Errorf("failed to load collaborators of user %s: %w", userID, err)
			}
			queue = append(queue, owners...)
		}

		existing, err := g.slots.GetWeekSlots(ctx, scope.users, weekStart)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing slots: %w", err)
		}
		for i := range existing {
			s := &existing[i]
			if s.IsCollaborative && s.CollaboratorID != nil && s.Status.Active() {
				if _, seen := scope.tasks[*s.CollaboratorID]; !seen {
					queue = append(queue, *s.CollaboratorID)
				}
			}
		}
	}

	slices.SortFunc(scope.users, compareUUID)
	return scope, nil
}

func (g *Generator) lockUsers(ctx context.Context, users []uuid.UUID, weekStart time.Time) (func(), error) {
	var releases []func(context.Context) error
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](context.Background()); err != nil {
				g.logger.Warn("schedule_lock_release_failed", zap.String("error", logger.SanitizeError(err)))
			}
		}
	}

	// users is sorted so concurrent runs always lock in the same order.
	for _, userID := range users {
		release, err := g.locker.Acquire(ctx, LockKey(userID, weekStart), g.lockTTL)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("failed to lock schedule of user %s: %w", userID, err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

type weekPlan struct {
	users          []uuid.UUID
	slots          []models.ScheduleSlot
	unscheduled    []models.UnscheduledTask
	tasksProcessed int
	tasksKept      int
	hasExisting    bool
}

func (p *weekPlan) fill(r *GenerationResult) {
	r.SlotsGenerated = len(p.slots)
	r.TasksProcessed = p.tasksProcessed
	r.Unscheduled = len(p.unscheduled)
	r.UnscheduledTasks = p.unscheduled
	r.UsersScheduled = len(p.users)
	r.TasksKept = p.tasksKept
}

// plan computes the new slot set for scope in memory.
func (g *Generator) plan(ctx context.Context, scope *runScope, weekStart time.Time) (*weekPlan, error) {
	p := &weekPlan{}

	availability := make(map[uuid.UUID]*models.WeeklyAvailability, len(scope.users))
	for _, userID := range scope.users {
		a, err := g.availability.GetAvailability(ctx, userID, weekStart)
		if err != nil {
			return nil, fmt.Errorf("failed to load availability for user %s: %w", userID, err)
		}
		if a == nil {
			continue
		}
		availability[userID] = a
		p.users = append(p.users, userID)
	}
	if len(p.users) == 0 {
		return p, nil
	}

	existing, err := g.slots.GetWeekSlots(ctx, p.users, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing slots: %w", err)
	}

	// A task with any accepted or completed row is kept as a whole, including
	// the pending partner row of a collaborative pair.
	kept := make(map[uuid.UUID]bool)
	for i := range existing {
		if existing[i].Status.Active() {
			p.hasExisting = true
		}
		if existing[i].Status.Committed() {
			kept[existing[i].TaskID] = true
		}
	}
	occ := NewOccupancy()
	for i := range existing {
		s := &existing[i]
		if !s.Status.Active() || !kept[s.TaskID] {
			continue
		}
		day, ok := g.calendar.DayIndex(weekStart, s.Date)
		if !ok {
			continue
		}
		occ.Add(s.UserID, day, Range{Start: s.Start, End: s.End})
	}

	var collaborative []models.Task
	seenCollaborative := make(map[uuid.UUID]bool)
	individual := make(map[uuid.UUID][]models.Task)
	// Collaborative tasks are listed under their owner, who may be in scope
	// only through the leader's availability.
	for _, userID := range scope.users {
		_, submitted := availability[userID]
		for _, task := range scope.tasks[userID] {
			if !submitted && !task.IsCollaborative() {
				continue
			}
			if kept[task.ID] {
				p.tasksKept++
				continue
			}
			if task.IsCollaborative() {
				if !seenCollaborative[task.ID] {
					seenCollaborative[task.ID] = true
					collaborative = append(collaborative, task)
				}
				continue
			}
			individual[userID] = append(individual[userID], task)
		}
	}

	for i := range collaborative {
		task := &collaborative[i]
		p.tasksProcessed++
		leaderID := *task.LeaderID
		owner, leader := availability[task.OwnerID], availability[leaderID]
		if owner == nil || leader == nil {
			p.unscheduled = append(p.unscheduled, unscheduledFor(task, task.OwnerID, &leaderID, weekStart, models.ReasonMissingAvailability))
			continue
		}
		if task.DurationMinutes <= 0 {
			p.unscheduled = append(p.unscheduled, unscheduledFor(task, task.OwnerID, &leaderID, weekStart, models.ReasonInvalidDuration))
			continue
		}
		pair, ok := ScheduleCollaborative(task, owner, leader, weekStart, occ)
		if !ok {
			p.unscheduled = append(p.unscheduled, unscheduledFor(task, task.OwnerID, &leaderID, weekStart, models.ReasonNoMutualSlot))
			continue
		}
		p.slots = append(p.slots, pair[0], pair[1])
	}

	for _, userID := range p.users {
		tasks := individual[userID]
		if len(tasks) == 0 {
			continue
		}
		p.tasksProcessed += len(tasks)
		slots, unscheduled := ScheduleUser(tasks, availability[userID], weekStart, occ)
		p.slots = append(p.slots, slots...)
		p.unscheduled = append(p.unscheduled, unscheduled...)
	}
	return p, nil
}
