package store

import (
	"testing"
	"time"
)

func TestSessionCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	family, parent, _ := seedFamily(t, db)
	s := NewSessionStore(db)

	sess, err := s.Create(parent.ID, family.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Error("expected future expiry")
	}

	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got == nil || got.UserID != parent.ID {
		t.Fatalf("got %+v", got)
	}

	missing, err := s.GetByToken("bogus")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionExpiry(t *testing.T) {
	db := setupTestDB(t)
	family, parent, _ := seedFamily(t, db)
	s := NewSessionStore(db)

	sess, err := s.Create(parent.ID, family.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if _, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, past, sess.ID); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired session")
	}

	n, err := s.DeleteExpired()
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSessionDelete(t *testing.T) {
	db := setupTestDB(t)
	family, parent, _ := seedFamily(t, db)
	s := NewSessionStore(db)

	sess, err := s.Create(parent.ID, family.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
