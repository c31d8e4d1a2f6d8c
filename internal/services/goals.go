package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// CreateGoalParams carries the payload for savings goal creation.
type CreateGoalParams struct {
	Name        string
	Description string
	Target      core.Money
	Deadline    core.Date
}

func (l *Ledger) CreateGoal(ctx context.Context, ownerID string, p CreateGoalParams) (core.Goal, error) {
	goal := core.Goal{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        p.Name,
		Description: p.Description,
		Target:      p.Target,
		Deadline:    p.Deadline,
		CreatedAt:   l.now().UTC(),
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, core.Invalid(err)
	}
	if err := l.store.InsertGoal(ctx, goal); err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal created",
		"owner_id", ownerID,
		"goal_id", goal.ID,
		"target_cents", goal.Target.Cents)
	return goal, nil
}

func (l *Ledger) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	return l.store.ListGoals(ctx, ownerID)
}

func (l *Ledger) UpdateGoal(ctx context.Context, ownerID, id string, p CreateGoalParams) (core.Goal, error) {
	var updated core.Goal
	err := l.store.InTx(ctx, func(s Store) error {
		goal, err := s.GetGoal(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("resolve goal %s: %w", id, err)
		}
		goal.Name = p.Name
		goal.Description = p.Description
		goal.Target = p.Target
		goal.Deadline = p.Deadline
		// Shrinking the target below the saved amount would break the
		// progress invariant.
		if goal.Current.Cents > goal.Target.Cents {
			return fmt.Errorf("target below current amount: %w", core.ErrConflict)
		}
		if err := goal.Validate(); err != nil {
			return core.Invalid(err)
		}
		if err := s.UpdateGoal(ctx, goal); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		updated = goal
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return updated, nil
}

func (l *Ledger) DeleteGoal(ctx context.Context, ownerID, id string) error {
	return l.store.InTx(ctx, func(s Store) error {
		if _, err := s.GetGoal(ctx, ownerID, id); err != nil {
			return fmt.Errorf("resolve goal %s: %w", id, err)
		}
		return s.DeleteGoal(ctx, ownerID, id)
	})
}

// ContributeToGoal adds amount to the goal's saved total, clamping at the
// target. Returns the goal after the increment.
func (l *Ledger) ContributeToGoal(ctx context.Context, ownerID, id string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, core.Invalid(err)
	}
	var updated core.Goal
	err := l.store.InTx(ctx, func(s Store) error {
		goal, err := s.GetGoal(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("resolve goal %s: %w", id, err)
		}
		next := goal.Current.Cents + amount.Cents
		if next > goal.Target.Cents {
			next = goal.Target.Cents
		}
		goal.Current = core.Money{Cents: next}
		if err := s.UpdateGoal(ctx, goal); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		updated = goal
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	slog.InfoContext(ctx, "Goal contribution applied",
		"owner_id", ownerID,
		"goal_id", id,
		"amount_cents", amount.Cents,
		"current_cents", updated.Current.Cents)
	return updated, nil
}
