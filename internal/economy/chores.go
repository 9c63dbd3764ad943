package economy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fernhill/pennyjar/internal/model"
)

type CompleteChoreCommand struct {
	ChoreID      int64
	ActingUserID int64
}

type VerifyChoreCommand struct {
	ChoreID      int64
	ActingUserID int64
}

type RejectChoreCommand struct {
	ChoreID      int64
	ActingUserID int64
}

const choreCols = `id, family_id, title, description, coin_reward, point_reward, frequency, status, category_id, assigned_to, created_by, completed_at, verified_at, verified_by, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var categoryID, assignedTo, createdBy, verifiedBy sql.NullInt64
	var completedAt, verifiedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.CoinReward, &c.PointReward,
		&c.Frequency, &c.Status, &categoryID, &assignedTo, &createdBy,
		&completedAt, &verifiedAt, &verifiedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		c.CategoryID = &categoryID.Int64
	}
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	if createdBy.Valid {
		c.CreatedBy = &createdBy.Int64
	}
	if verifiedBy.Valid {
		c.VerifiedBy = &verifiedBy.Int64
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	if verifiedAt.Valid {
		c.VerifiedAt = &verifiedAt.Time
	}
	return &c, nil
}

func getChore(q DBTX, id int64) (*model.Chore, error) {
	row := q.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// CompleteChore moves a pending chore to completed. The assignee may complete
// their own chore; a parent of the family may complete it on the child's
// behalf. No currency moves here; the award happens only at verification, so
// a child cannot self-award.
func (s *Service) CompleteChore(ctx context.Context, cmd CompleteChoreCommand) (*model.Chore, error) {
	var out *model.Chore
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		chore, err := getChore(tx, cmd.ChoreID)
		if err != nil {
			return err
		}
		if chore == nil {
			return fmt.Errorf("chore %d: %w", cmd.ChoreID, ErrNotFound)
		}

		if chore.AssignedTo == nil || *chore.AssignedTo != cmd.ActingUserID {
			parent, err := isParent(tx, chore.FamilyID, cmd.ActingUserID)
			if err != nil {
				return err
			}
			if !parent {
				return fmt.Errorf("user %d may not complete chore %d: %w", cmd.ActingUserID, cmd.ChoreID, ErrUnauthorized)
			}
			if chore.AssignedTo == nil {
				return fmt.Errorf("chore %d has no assignee: %w", cmd.ChoreID, ErrInvalidStateTransition)
			}
		}

		if chore.Status != model.ChoreStatusPending {
			return fmt.Errorf("chore %d is %s: %w", cmd.ChoreID, chore.Status, ErrInvalidStateTransition)
		}

		now := time.Now().UTC()
		res, err := tx.Exec(
			`UPDATE chores SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
			model.ChoreStatusCompleted, now, now, cmd.ChoreID, model.ChoreStatusPending,
		)
		if err != nil {
			return fmt.Errorf("complete chore: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("complete chore rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("chore %d: %w", cmd.ChoreID, ErrConcurrentModification)
		}

		chore.Status = model.ChoreStatusCompleted
		chore.CompletedAt = &now
		chore.UpdatedAt = now
		out = chore
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chore completed",
		"chore_id", out.ID, "family_id", out.FamilyID, "user_id", cmd.ActingUserID)
	return out, nil
}

// VerifyChore is the parent-only transition that converts completed work into
// an irrevocable award: status flips to verified, the assignee's coins and the
// family's points are credited, and for recurring chores a fresh pending
// instance is inserted, all in one transaction.
func (s *Service) VerifyChore(ctx context.Context, cmd VerifyChoreCommand) (*model.Chore, error) {
	var out *model.Chore
	var coins, points int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		chore, err := getChore(tx, cmd.ChoreID)
		if err != nil {
			return err
		}
		if chore == nil {
			return fmt.Errorf("chore %d: %w", cmd.ChoreID, ErrNotFound)
		}

		parent, err := isParent(tx, chore.FamilyID, cmd.ActingUserID)
		if err != nil {
			return err
		}
		if !parent {
			return fmt.Errorf("user %d may not verify chore %d: %w", cmd.ActingUserID, cmd.ChoreID, ErrUnauthorized)
		}

		if chore.Status != model.ChoreStatusCompleted {
			return fmt.Errorf("chore %d is %s: %w", cmd.ChoreID, chore.Status, ErrInvalidStateTransition)
		}
		if chore.AssignedTo == nil {
			return fmt.Errorf("chore %d has no assignee: %w", cmd.ChoreID, ErrInvalidStateTransition)
		}

		now := time.Now().UTC()
		res, err := tx.Exec(
			`UPDATE chores SET status = ?, verified_at = ?, verified_by = ?, updated_at = ? WHERE id = ? AND status = ?`,
			model.ChoreStatusVerified, now, cmd.ActingUserID, now, cmd.ChoreID, model.ChoreStatusCompleted,
		)
		if err != nil {
			return fmt.Errorf("verify chore: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("verify chore rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("chore %d: %w", cmd.ChoreID, ErrConcurrentModification)
		}

		// Award amounts come from the row read inside this transaction, so a
		// later edit of the chore never changes what was credited.
		if coins, err = s.ledger.AdjustCoins(tx, *chore.AssignedTo, chore.CoinReward); err != nil {
			return err
		}
		if points, err = s.ledger.AdjustPoints(tx, chore.FamilyID, chore.PointReward); err != nil {
			return err
		}

		if model.Recurring(chore.Frequency) {
			if err := respawnChore(tx, chore); err != nil {
				return err
			}
		}

		chore.Status = model.ChoreStatusVerified
		chore.VerifiedAt = &now
		chore.VerifiedBy = &cmd.ActingUserID
		chore.UpdatedAt = now
		out = chore
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chore verified",
		"chore_id", out.ID, "family_id", out.FamilyID, "verified_by", cmd.ActingUserID,
		"coins_awarded", out.CoinReward, "points_awarded", out.PointReward,
		"new_coin_balance", coins, "new_point_balance", points)
	return out, nil
}

// RejectChore sends a completed chore to the rejected terminal state with no
// award. Recurring chores get a fresh pending instance so the assignee can
// redo the work; the rejected row itself is never re-completed.
func (s *Service) RejectChore(ctx context.Context, cmd RejectChoreCommand) (*model.Chore, error) {
	var out *model.Chore
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		chore, err := getChore(tx, cmd.ChoreID)
		if err != nil {
			return err
		}
		if chore == nil {
			return fmt.Errorf("chore %d: %w", cmd.ChoreID, ErrNotFound)
		}

		parent, err := isParent(tx, chore.FamilyID, cmd.ActingUserID)
		if err != nil {
			return err
		}
		if !parent {
			return fmt.Errorf("user %d may not reject chore %d: %w", cmd.ActingUserID, cmd.ChoreID, ErrUnauthorized)
		}

		if chore.Status != model.ChoreStatusCompleted {
			return fmt.Errorf("chore %d is %s: %w", cmd.ChoreID, chore.Status, ErrInvalidStateTransition)
		}

		now := time.Now().UTC()
		res, err := tx.Exec(
			`UPDATE chores SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			model.ChoreStatusRejected, now, cmd.ChoreID, model.ChoreStatusCompleted,
		)
		if err != nil {
			return fmt.Errorf("reject chore: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("reject chore rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("chore %d: %w", cmd.ChoreID, ErrConcurrentModification)
		}

		if model.Recurring(chore.Frequency) {
			if err := respawnChore(tx, chore); err != nil {
				return err
			}
		}

		chore.Status = model.ChoreStatusRejected
		chore.UpdatedAt = now
		out = chore
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chore rejected",
		"chore_id", out.ID, "family_id", out.FamilyID, "rejected_by", cmd.ActingUserID)
	return out, nil
}

// respawnChore inserts a fresh pending copy of a recurring chore. Terminal
// rows stay as history; the next period gets its own row.
func respawnChore(tx *sql.Tx, chore *model.Chore) error {
	_, err := tx.Exec(
		`INSERT INTO chores (family_id, title, description, coin_reward, point_reward, frequency, status, category_id, assigned_to, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chore.FamilyID, chore.Title, chore.Description, chore.CoinReward, chore.PointReward,
		chore.Frequency, model.ChoreStatusPending, chore.CategoryID, chore.AssignedTo, chore.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("respawn chore: %w", err)
	}
	return nil
}
