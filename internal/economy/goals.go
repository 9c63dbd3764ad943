package economy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fernhill/pennyjar/internal/model"
)

type CompleteGoalCommand struct {
	GoalID       int64
	ActingUserID int64
}

const goalCols = `id, family_id, name, description, points_required, is_completed, completed_at, completed_by, created_at, updated_at`

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	var isCompleted int
	var completedBy sql.NullInt64
	var completedAt sql.NullTime

	err := scanner.Scan(
		&g.ID, &g.FamilyID, &g.Name, &g.Description, &g.PointsRequired,
		&isCompleted, &completedAt, &completedBy, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.IsCompleted = isCompleted != 0
	if completedBy.Valid {
		g.CompletedBy = &completedBy.Int64
	}
	if completedAt.Valid {
		g.CompletedAt = &completedAt.Time
	}
	return &g, nil
}

func getGoal(q DBTX, id int64) (*model.Goal, error) {
	row := q.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// CompleteGoal marks a goal achieved and deducts its threshold from the
// family's pooled points in the same transaction. The deduction comes out of
// the shared pool in one ledger call; completion is terminal.
func (s *Service) CompleteGoal(ctx context.Context, cmd CompleteGoalCommand) (*model.Goal, error) {
	var out *model.Goal
	var remaining int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		goal, err := getGoal(tx, cmd.GoalID)
		if err != nil {
			return err
		}
		if goal == nil {
			return fmt.Errorf("goal %d: %w", cmd.GoalID, ErrNotFound)
		}

		parent, err := isParent(tx, goal.FamilyID, cmd.ActingUserID)
		if err != nil {
			return err
		}
		if !parent {
			return fmt.Errorf("user %d may not complete goal %d: %w", cmd.ActingUserID, cmd.GoalID, ErrUnauthorized)
		}

		if goal.IsCompleted {
			return fmt.Errorf("goal %d: %w", cmd.GoalID, ErrAlreadyCompleted)
		}

		now := time.Now().UTC()
		res, err := tx.Exec(
			`UPDATE goals SET is_completed = 1, completed_at = ?, completed_by = ?, updated_at = ? WHERE id = ? AND is_completed = 0`,
			now, cmd.ActingUserID, now, cmd.GoalID,
		)
		if err != nil {
			return fmt.Errorf("complete goal: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("complete goal rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("goal %d: %w", cmd.GoalID, ErrConcurrentModification)
		}

		remaining, err = s.ledger.AdjustPoints(tx, goal.FamilyID, -goal.PointsRequired)
		if err != nil {
			return err
		}

		goal.IsCompleted = true
		goal.CompletedAt = &now
		goal.CompletedBy = &cmd.ActingUserID
		goal.UpdatedAt = now
		out = goal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("goal completed",
		"goal_id", out.ID, "family_id", out.FamilyID, "completed_by", cmd.ActingUserID,
		"points_deducted", out.PointsRequired, "points_remaining", remaining)
	return out, nil
}
