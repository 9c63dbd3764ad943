package economy

import (
	"fmt"

	"github.com/fernhill/pennyjar/internal/model"
)

// Role and membership checks take the same executor as the transition they
// authorize. Inside a workflow that is always the open transaction; running
// them anywhere else would block on the pool's single connection.

func isParent(q DBTX, familyID, userID int64) (bool, error) {
	var count int
	err := q.QueryRow(
		`SELECT COUNT(*) FROM users WHERE id = ? AND family_id = ? AND role = ?`,
		userID, familyID, model.RoleParent,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check parent: %w", err)
	}
	return count > 0, nil
}

func isMember(q DBTX, familyID, userID int64) (bool, error) {
	var count int
	err := q.QueryRow(
		`SELECT COUNT(*) FROM users WHERE id = ? AND family_id = ?`,
		userID, familyID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return count > 0, nil
}
