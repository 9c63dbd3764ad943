package economy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fernhill/pennyjar/internal/model"
)

type RequestRedemptionCommand struct {
	RewardID     int64
	ActingUserID int64
}

type ResolveRedemptionCommand struct {
	RedemptionID int64
	ActingUserID int64
}

type rewardRow struct {
	ID        int64
	FamilyID  int64
	Name      string
	Cost      int
	IsFamily  bool
	Quantity  int
	Available bool
}

func getRewardRow(q DBTX, id int64) (*rewardRow, error) {
	var r rewardRow
	var isFamily, available int
	err := q.QueryRow(
		`SELECT id, family_id, name, cost, is_family, quantity, available FROM rewards WHERE id = ?`, id,
	).Scan(&r.ID, &r.FamilyID, &r.Name, &r.Cost, &isFamily, &r.Quantity, &available)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	r.IsFamily = isFamily != 0
	r.Available = available != 0
	return &r, nil
}

const redemptionCols = `id, reward_id, family_id, user_id, cost, is_family, status, stock_decremented, resolved_by, resolved_at, created_at`

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.RewardRedemption, error) {
	var r model.RewardRedemption
	var isFamily, stockDec int
	var resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.RewardID, &r.FamilyID, &r.UserID, &r.Cost, &isFamily,
		&r.Status, &stockDec, &resolvedBy, &resolvedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.IsFamily = isFamily != 0
	r.StockDecremented = stockDec != 0
	if resolvedBy.Valid {
		r.ResolvedBy = &resolvedBy.Int64
	}
	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}
	return &r, nil
}

func getRedemption(q DBTX, id int64) (*model.RewardRedemption, error) {
	row := q.QueryRow(`SELECT `+redemptionCols+` FROM reward_redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// RequestRedemption spends currency on a reward. The debit happens eagerly:
// cost and scope are snapshotted onto the redemption row, the balance is
// debited, and finite stock is decremented, all in one transaction, so a
// crash can never leave a debit without a matching redemption record.
func (s *Service) RequestRedemption(ctx context.Context, cmd RequestRedemptionCommand) (*model.RewardRedemption, error) {
	var out *model.RewardRedemption
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		reward, err := getRewardRow(tx, cmd.RewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return fmt.Errorf("reward %d: %w", cmd.RewardID, ErrNotFound)
		}

		member, err := isMember(tx, reward.FamilyID, cmd.ActingUserID)
		if err != nil {
			return err
		}
		if !member {
			// A reward from another family looks like a missing reward.
			return fmt.Errorf("reward %d: %w", cmd.RewardID, ErrNotFound)
		}

		if !reward.Available || reward.Quantity == 0 {
			return fmt.Errorf("reward %d is not available: %w", cmd.RewardID, ErrInvalidStateTransition)
		}

		stockDecremented := reward.Quantity != model.UnlimitedQuantity
		if stockDecremented {
			res, err := tx.Exec(
				`UPDATE rewards SET quantity = quantity - 1, updated_at = ? WHERE id = ? AND quantity > 0`,
				time.Now().UTC(), cmd.RewardID,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("decrement stock rows: %w", err)
			} else if n == 0 {
				return fmt.Errorf("reward %d stock: %w", cmd.RewardID, ErrConcurrentModification)
			}
		}

		if reward.IsFamily {
			if _, err := s.ledger.AdjustPoints(tx, reward.FamilyID, -reward.Cost); err != nil {
				return err
			}
		} else {
			if _, err := s.ledger.AdjustCoins(tx, cmd.ActingUserID, -reward.Cost); err != nil {
				return err
			}
		}

		isFamily := 0
		if reward.IsFamily {
			isFamily = 1
		}
		stockDec := 0
		if stockDecremented {
			stockDec = 1
		}
		res, err := tx.Exec(
			`INSERT INTO reward_redemptions (reward_id, family_id, user_id, cost, is_family, status, stock_decremented)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			reward.ID, reward.FamilyID, cmd.ActingUserID, reward.Cost, isFamily, model.RedemptionStatusPending, stockDec,
		)
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		out, err = getRedemption(tx, id)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("redemption requested",
		"redemption_id", out.ID, "reward_id", out.RewardID, "family_id", out.FamilyID,
		"user_id", out.UserID, "cost", out.Cost, "is_family", out.IsFamily)
	return out, nil
}

// ApproveRedemption finalizes a pending redemption. The debit already
// happened at request time, so approval changes status only.
func (s *Service) ApproveRedemption(ctx context.Context, cmd ResolveRedemptionCommand) (*model.RewardRedemption, error) {
	out, err := s.resolveRedemption(ctx, cmd, model.RedemptionStatusApproved)
	if err != nil {
		return nil, err
	}
	s.logger.Info("redemption approved",
		"redemption_id", out.ID, "family_id", out.FamilyID, "resolved_by", cmd.ActingUserID)
	return out, nil
}

// DenyRedemption refunds the snapshotted cost to the balance it was debited
// from and restores one unit of finite stock. The status compare-and-set
// guarantees the refund is applied at most once.
func (s *Service) DenyRedemption(ctx context.Context, cmd ResolveRedemptionCommand) (*model.RewardRedemption, error) {
	out, err := s.resolveRedemption(ctx, cmd, model.RedemptionStatusDenied)
	if err != nil {
		return nil, err
	}
	s.logger.Info("redemption denied",
		"redemption_id", out.ID, "family_id", out.FamilyID, "resolved_by", cmd.ActingUserID,
		"refunded", out.Cost)
	return out, nil
}

func (s *Service) resolveRedemption(ctx context.Context, cmd ResolveRedemptionCommand, to model.RedemptionStatus) (*model.RewardRedemption, error) {
	var out *model.RewardRedemption
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		red, err := getRedemption(tx, cmd.RedemptionID)
		if err != nil {
			return err
		}
		if red == nil {
			return fmt.Errorf("redemption %d: %w", cmd.RedemptionID, ErrNotFound)
		}

		parent, err := isParent(tx, red.FamilyID, cmd.ActingUserID)
		if err != nil {
			return err
		}
		if !parent {
			return fmt.Errorf("user %d may not resolve redemption %d: %w", cmd.ActingUserID, cmd.RedemptionID, ErrUnauthorized)
		}

		if red.Status != model.RedemptionStatusPending {
			return fmt.Errorf("redemption %d is %s: %w", cmd.RedemptionID, red.Status, ErrInvalidStateTransition)
		}

		now := time.Now().UTC()
		res, err := tx.Exec(
			`UPDATE reward_redemptions SET status = ?, resolved_by = ?, resolved_at = ? WHERE id = ? AND status = ?`,
			to, cmd.ActingUserID, now, cmd.RedemptionID, model.RedemptionStatusPending,
		)
		if err != nil {
			return fmt.Errorf("resolve redemption: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("resolve redemption rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("redemption %d: %w", cmd.RedemptionID, ErrConcurrentModification)
		}

		if to == model.RedemptionStatusDenied {
			if red.IsFamily {
				if _, err := s.ledger.AdjustPoints(tx, red.FamilyID, red.Cost); err != nil {
					return err
				}
			} else {
				if _, err := s.ledger.AdjustCoins(tx, red.UserID, red.Cost); err != nil {
					return err
				}
			}
			// Put back only a unit the request actually took. The quantity
			// guard leaves rewards that went unlimited in the meantime alone.
			if red.StockDecremented {
				if _, err := tx.Exec(
					`UPDATE rewards SET quantity = quantity + 1, updated_at = ? WHERE id = ? AND quantity >= 0`,
					now, red.RewardID,
				); err != nil {
					return fmt.Errorf("restore stock: %w", err)
				}
			}
		}

		red.Status = to
		red.ResolvedBy = &cmd.ActingUserID
		red.ResolvedAt = &now
		out = red
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
