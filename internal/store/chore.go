package store

import (
	"database/sql"
	"fmt"

	"github.com/fernhill/pennyjar/internal/model"
)

// ChoreStore covers the CRUD surface of chores. Status transitions live in
// the economy package; nothing here ever writes the status column.
type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

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

const choreCols = `id, family_id, title, description, coin_reward, point_reward, frequency, status, category_id, assigned_to, created_by, completed_at, verified_at, verified_by, created_at, updated_at`

func (s *ChoreStore) Create(familyID int64, title, description string, coinReward, pointReward int, frequency string, categoryID, assignedTo *int64, createdBy int64) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, description, coin_reward, point_reward, frequency, status, category_id, assigned_to, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, coinReward, pointReward, frequency, model.ChoreStatusPending, categoryID, assignedTo, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? ORDER BY created_at DESC, id DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func (s *ChoreStore) ListByAssignee(assigneeID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE assigned_to = ? ORDER BY created_at DESC, id DESC`,
		assigneeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by assignee: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListByFamilyAndStatus backs the parent's verification queue
// (status=completed) and the history views.
func (s *ChoreStore) ListByFamilyAndStatus(familyID int64, status model.ChoreStatus) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? AND status = ? ORDER BY created_at DESC, id DESC`,
		familyID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by status: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Update edits the chore's definition. Rewards already credited are not
// affected: verification copies the reward columns at verify time.
func (s *ChoreStore) Update(id int64, title, description string, coinReward, pointReward int, frequency string, categoryID, assignedTo *int64) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, coin_reward = ?, point_reward = ?, frequency = ?, category_id = ?, assigned_to = ? WHERE id = ?`,
		title, description, coinReward, pointReward, frequency, categoryID, assignedTo, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}
