package store

import (
	"database/sql"
	"fmt"

	"github.com/fernhill/pennyjar/internal/model"
)

// RewardStore covers the catalog CRUD surface plus redemption listings.
// Redeeming, approving and denying go through the economy package.
type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var isFamily, available int

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.Name, &r.Description, &r.Cost,
		&isFamily, &r.Quantity, &available, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.IsFamily = isFamily != 0
	r.Available = available != 0
	return &r, nil
}

const rewardCols = `id, family_id, name, description, cost, is_family, quantity, available, created_at, updated_at`

func (s *RewardStore) Create(familyID int64, name, description string, cost int, isFamily bool, quantity int, available bool) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (family_id, name, description, cost, is_family, quantity, available) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, name, description, cost, boolToInt(isFamily), quantity, boolToInt(available),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListByFamily returns a family's rewards, available first, then by name.
func (s *RewardStore) ListByFamily(familyID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE family_id = ? ORDER BY available DESC, name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// Update edits the catalog entry. Existing redemptions are untouched: they
// carry their own cost snapshot.
func (s *RewardStore) Update(id int64, name, description string, cost int, isFamily bool, quantity int, available bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET name = ?, description = ?, cost = ?, is_family = ?, quantity = ?, available = ? WHERE id = ?`,
		name, description, cost, boolToInt(isFamily), quantity, boolToInt(available), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Redemption listings ---

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

const redemptionCols = `id, reward_id, family_id, user_id, cost, is_family, status, stock_decremented, resolved_by, resolved_at, created_at`

func (s *RewardStore) GetRedemptionByID(id int64) (*model.RewardRedemption, error) {
	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM reward_redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListRedemptionsByFamily(familyID int64) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT `+redemptionCols+` FROM reward_redemptions WHERE family_id = ? ORDER BY created_at DESC, id DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()
	return collectRedemptions(rows)
}

func (s *RewardStore) ListRedemptionsByUser(userID int64) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT `+redemptionCols+` FROM reward_redemptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions by user: %w", err)
	}
	defer rows.Close()
	return collectRedemptions(rows)
}

// ListPendingRedemptions backs the parent's approval queue.
func (s *RewardStore) ListPendingRedemptions(familyID int64) ([]model.RewardRedemption, error) {
	rows, err := s.db.Query(
		`SELECT `+redemptionCols+` FROM reward_redemptions WHERE family_id = ? AND status = ? ORDER BY created_at ASC`,
		familyID, model.RedemptionStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending redemptions: %w", err)
	}
	defer rows.Close()
	return collectRedemptions(rows)
}

func collectRedemptions(rows *sql.Rows) ([]model.RewardRedemption, error) {
	var redemptions []model.RewardRedemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
