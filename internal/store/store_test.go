package store

import (
	"database/sql"
	"testing"

	"github.com/fernhill/pennyjar/internal/database"
	"github.com/fernhill/pennyjar/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a family with one parent and one child.
func seedFamily(t *testing.T, db *sql.DB) (*model.Family, *model.User, *model.User) {
	t.Helper()

	family, err := NewFamilyStore(db).Create("Testers")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	users := NewUserStore(db)
	parent, err := users.Create(family.ID, "mom", "hash", model.RoleParent, "")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := users.Create(family.ID, "kid", "hash", model.RoleChild, "")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return family, parent, child
}
