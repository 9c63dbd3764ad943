package store

import (
	"testing"

	"github.com/fernhill/pennyjar/internal/model"
)

func TestPushSubscriptionUpsert(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child := seedFamily(t, db)
	s := NewPushStore(db)

	sub, err := s.CreateSubscription(parent.ID, "https://push.example/a", "p256dh", "auth")
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if sub.UserID != parent.ID {
		t.Errorf("user_id = %d, want %d", sub.UserID, parent.ID)
	}

	// Re-subscribing the same endpoint on another device login replaces the
	// owner rather than erroring.
	sub2, err := s.CreateSubscription(child.ID, "https://push.example/a", "p2", "a2")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sub2.UserID != child.ID {
		t.Errorf("user_id after upsert = %d, want %d", sub2.UserID, child.ID)
	}

	all, err := s.ListByUser(child.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(all))
	}
}

func TestPushListByFamilyRole(t *testing.T) {
	db := setupTestDB(t)
	family, parent, child := seedFamily(t, db)
	s := NewPushStore(db)

	if _, err := s.CreateSubscription(parent.ID, "https://push.example/parent", "k", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSubscription(child.ID, "https://push.example/child", "k", "a"); err != nil {
		t.Fatal(err)
	}

	parents, err := s.ListByFamilyRole(family.ID, model.RoleParent)
	if err != nil {
		t.Fatalf("ListByFamilyRole: %v", err)
	}
	if len(parents) != 1 || parents[0].UserID != parent.ID {
		t.Errorf("parent subscriptions = %+v", parents)
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	db := setupTestDB(t)
	_, parent, _ := seedFamily(t, db)
	s := NewPushStore(db)

	if _, err := s.CreateSubscription(parent.ID, "https://push.example/x", "k", "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteByEndpoint("https://push.example/x"); err != nil {
		t.Fatalf("DeleteByEndpoint: %v", err)
	}
	subs, err := s.ListByUser(parent.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(subs))
	}
}
