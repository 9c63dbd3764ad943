package store

import (
	"database/sql"
	"fmt"

	"github.com/fernhill/pennyjar/internal/model"
)

// CategoryStore manages a family's chore categories.
type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func scanCategory(scanner interface{ Scan(...any) error }) (*model.ChoreCategory, error) {
	var c model.ChoreCategory
	err := scanner.Scan(&c.ID, &c.FamilyID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const categoryCols = `id, family_id, name, color, icon, created_at, updated_at`

func (s *CategoryStore) Create(familyID int64, name, color, icon string) (*model.ChoreCategory, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_categories (family_id, name, color, icon) VALUES (?, ?, ?, ?)`,
		familyID, name, color, icon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CategoryStore) GetByID(id int64) (*model.ChoreCategory, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM chore_categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CategoryStore) GetByName(familyID int64, name string) (*model.ChoreCategory, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM chore_categories WHERE family_id = ? AND name = ?`, familyID, name)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return c, nil
}

func (s *CategoryStore) ListByFamily(familyID int64) ([]model.ChoreCategory, error) {
	rows, err := s.db.Query(
		`SELECT `+categoryCols+` FROM chore_categories WHERE family_id = ? ORDER BY name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.ChoreCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) Update(id int64, name, color, icon string) (*model.ChoreCategory, error) {
	_, err := s.db.Exec(
		`UPDATE chore_categories SET name = ?, color = ?, icon = ? WHERE id = ?`,
		name, color, icon, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the category; chores referencing it keep running with their
// category detached.
func (s *CategoryStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chore_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
