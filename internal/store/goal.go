package store

import (
	"database/sql"
	"fmt"

	"github.com/fernhill/pennyjar/internal/model"
)

// GoalStore covers goal CRUD. Completion goes through the economy package.
type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

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

const goalCols = `id, family_id, name, description, points_required, is_completed, completed_at, completed_by, created_at, updated_at`

func (s *GoalStore) Create(familyID int64, name, description string, pointsRequired int) (*model.Goal, error) {
	result, err := s.db.Exec(
		`INSERT INTO goals (family_id, name, description, points_required) VALUES (?, ?, ?, ?)`,
		familyID, name, description, pointsRequired,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *GoalStore) GetByID(id int64) (*model.Goal, error) {
	row := s.db.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListByFamily returns a family's goals, open goals first, then newest first.
func (s *GoalStore) ListByFamily(familyID int64) ([]model.Goal, error) {
	rows, err := s.db.Query(
		`SELECT `+goalCols+` FROM goals WHERE family_id = ? ORDER BY is_completed ASC, created_at DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// Update edits name, description and threshold of an open goal. Completed
// goals are history and are left alone.
func (s *GoalStore) Update(id int64, name, description string, pointsRequired int) (*model.Goal, error) {
	_, err := s.db.Exec(
		`UPDATE goals SET name = ?, description = ?, points_required = ? WHERE id = ? AND is_completed = 0`,
		name, description, pointsRequired, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return s.GetByID(id)
}

func (s *GoalStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
