package scheduling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/agenda-scheduler/internal/logger"
	"github.com/benvon/agenda-scheduler/internal/models"
)

// WeekGenerator is the part of Generator the lifecycle drives.
type WeekGenerator interface {
	GenerateWeek(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
	Preview(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*GenerationResult, error)
}

var _ WeekGenerator = (*Generator)(nil)

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Cadence      Cadence
	Generator    WeekGenerator
	Availability AvailabilityStore
	Cycles       CycleStore
	// Roster is optional; without it the expected count equals the
	// submitted count.
	Roster  Roster
	Changes ChangeRequestStore
	Slots   SlotLookup
	Now     func() time.Time
	Logger  *zap.Logger
}

// Controller gates generation by the phase of the week.
type Controller struct {
	cadence      Cadence
	calendar     WeekCalendar
	generator    WeekGenerator
	availability AvailabilityStore
	cycles       CycleStore
	roster       Roster
	changes      ChangeRequestStore
	slots        SlotLookup
	now          func() time.Time
	logger       *zap.Logger
}

// NewController creates a lifecycle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller{
		cadence:      cfg.Cadence,
		calendar:     cfg.Cadence.Calendar(),
		generator:    cfg.Generator,
		availability: cfg.Availability,
		cycles:       cfg.Cycles,
		roster:       cfg.Roster,
		changes:      cfg.Changes,
		slots:        cfg.Slots,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
}

// Cadence returns the controller's cadence.
func (c *Controller) Cadence() Cadence {
	return c.cadence
}

// State derives the cycle state of a week.
func (c *Controller) State(ctx context.Context, weekStart time.Time) (*models.WeekCycleState, error) {
	weekStart, err := c.calendar.Normalize(weekStart)
	if err != nil {
		return nil, err
	}

	submitted, err := c.availability.ListSubmittedUsers(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list submitted users: %w", err)
	}

	submittedCount, expectedCount := len(submitted), len(submitted)
	if c.roster != nil {
		expected, err := c.roster.ExpectedUsers(ctx, weekStart)
		if err != nil {
			return nil, fmt.Errorf("failed to list expected users: %w", err)
		}
		expectedCount = len(expected)
		submittedCount = 0
		for _, id := range expected {
			if slices.Contains(submitted, id) {
				submittedCount++
			}
		}
	}

	cycle, err := c.cycles.GetWeekCycle(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load week cycle: %w", err)
	}
	if cycle == nil {
		cycle = &models.WeekCycle{WeekStart: weekStart}
	}

	return &models.WeekCycleState{
		WeekCycle:          *cycle,
		Phase:              c.cadence.PhaseAt(c.now(), weekStart, len(submitted) > 0, cycle.LockedAt != nil),
		Submitted:          submittedCount,
		Expected:           expectedCount,
		LockAt:             c.cadence.LockAt(weekStart),
		ChangeWindowEndsAt: c.cadence.ChangeWindowEndsAt(weekStart),
	}, nil
}

// Preview returns a non-committed schedule for one user. Previews are only
// served before the week is locked and only to users who submitted.
func (c *Controller) Preview(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*GenerationResult, error) {
	state, err := c.State(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	switch {
	case state.Phase == models.WeekPhaseClosed:
		return nil, ErrWeekClosed
	case !state.Phase.AllowsPreview():
		return nil, ErrWeekLocked
	}

	availability, err := c.availability.GetAvailability(ctx, userID, state.WeekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	if availability == nil {
		return nil, ErrNotSubmitted
	}
	return c.generator.Preview(ctx, userID, state.WeekStart)
}

// Lock records the final lock of a week and generates committed slots for
// every user who submitted. Locking a week that is already locked deletes its
// pending slots and regenerates them, which also completes a lock whose
// generation failed. force locks an incomplete week before its cutoff.
func (c *Controller) Lock(ctx context.Context, weekStart time.Time, force bool) (*GenerationResult, error) {
	state, err := c.State(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	weekStart = state.WeekStart
	now := c.now()

	if state.Phase == models.WeekPhaseClosed {
		return nil, ErrWeekClosed
	}

	if !state.Locked() {
		if !force && !c.lockDue(state, now) {
			return nil, ErrLockNotDue
		}
		if err := c.cycles.MarkLocked(ctx, weekStart, now); err != nil {
			return nil, fmt.Errorf("failed to mark week locked: %w", err)
		}
		c.logger.Info("week_locked",
			zap.String("week_start", weekStart.Format(DateLayout)),
			zap.Int("submitted", state.Submitted),
			zap.Int("expected", state.Expected),
			zap.Bool("complete", state.Complete()),
			zap.Bool("forced", force),
		)
	} else {
		c.logger.Info("week_relock_regenerating",
			zap.String("week_start", weekStart.Format(DateLayout)),
			zap.Bool("previously_generated", state.LastGeneratedAt != nil),
		)
	}

	result, err := c.generator.GenerateWeek(ctx, GenerateRequest{WeekStart: weekStart, ForceRegenerate: true})
	if err != nil {
		return nil, err
	}
	c.markGenerated(ctx, weekStart, result)
	return result, nil
}

// GenerateWeek runs a committed generation on behalf of a user or an
// operator. It is only allowed once the week is locked and before it closes.
func (c *Controller) GenerateWeek(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	state, err := c.State(ctx, req.WeekStart)
	if err != nil {
		return nil, err
	}
	switch {
	case state.Phase == models.WeekPhaseClosed:
		return nil, ErrWeekClosed
	case !state.Phase.AllowsFinalGeneration():
		return nil, ErrWeekNotLocked
	}

	req.WeekStart = state.WeekStart
	result, err := c.generator.GenerateWeek(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.AlreadyGenerated {
		c.markGenerated(ctx, state.WeekStart, result)
	}
	return result, nil
}

// RequestChange flags a slot for manual resolution. Only the slot's owner
// may flag it and only during the change window.
func (c *Controller) RequestChange(ctx context.Context, userID, slotID uuid.UUID, reason string) (*models.ChangeRequest, error) {
	slot, err := c.slots.GetSlot(ctx, slotID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	if slot.UserID != userID {
		return nil, ErrSlotNotFound
	}

	state, err := c.State(ctx, slot.WeekStart)
	if err != nil {
		return nil, err
	}
	if state.Phase != models.WeekPhaseChangeWindow {
		return nil, ErrChangeWindowClosed
	}

	req := &models.ChangeRequest{
		ID:        uuid.New(),
		SlotID:    slot.ID,
		UserID:    userID,
		WeekStart: state.WeekStart,
		Reason:    reason,
		Status:    models.ChangeRequestOpen,
		CreatedAt: c.now(),
	}
	if err := c.changes.CreateChangeRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to record change request: %w", err)
	}
	c.logger.Info("change_request_created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("user_id", logger.SanitizeUserID(userID.String())),
		zap.String("week_start", state.WeekStart.Format(DateLayout)),
	)
	return req, nil
}

// DueWeeks returns the current and upcoming weeks that are due for their
// final lock, along with locked weeks whose final generation never completed.
func (c *Controller) DueWeeks(ctx context.Context) ([]time.Time, error) {
	now := c.now()
	var due []time.Time
	for _, weekStart := range []time.Time{c.calendar.WeekStartFor(now), c.calendar.NextWeekStart(now)} {
		state, err := c.State(ctx, weekStart)
		if err != nil {
			return nil, err
		}
		if state.Phase == models.WeekPhaseClosed {
			continue
		}
		if state.Locked() {
			if state.LastGeneratedAt == nil {
				due = append(due, state.WeekStart)
			}
			continue
		}
		if c.lockDue(state, now) {
			due = append(due, state.WeekStart)
		}
	}
	return due, nil
}

// Tick locks every due week. It is the timer entry point of the cycle.
func (c *Controller) Tick(ctx context.Context) ([]time.Time, error) {
	due, err := c.DueWeeks(ctx)
	if err != nil {
		return nil, err
	}
	var (
		locked []time.Time
		errs   []error
	)
	for _, weekStart := range due {
		if _, err := c.Lock(ctx, weekStart, false); err != nil {
			errs = append(errs, fmt.Errorf("week %s: %w", weekStart.Format(DateLayout), err))
			continue
		}
		locked = append(locked, weekStart)
	}
	return locked, errors.Join(errs...)
}

func (c *Controller) lockDue(state *models.WeekCycleState, now time.Time) bool {
	if !now.Before(state.LockAt) {
		return true
	}
	return c.cadence.LockWhenComplete && state.Complete()
}

func (c *Controller) markGenerated(ctx context.Context, weekStart time.Time, result *GenerationResult) {
	if err := c.cycles.MarkGenerated(ctx, weekStart, c.now(), result); err != nil {
		c.logger.Warn("failed_to_record_generation",
			zap.String("week_start", weekStart.Format(DateLayout)),
			zap.String("error", logger.SanitizeError(err)),
		)
	}
}
