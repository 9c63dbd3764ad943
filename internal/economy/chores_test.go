package economy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/store"
)

func TestCompleteChore(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)

	out, err := f.svc.CompleteChore(context.Background(), CompleteChoreCommand{
		ChoreID: chore.ID, ActingUserID: f.child.ID,
	})
	if err != nil {
		t.Fatalf("CompleteChore: %v", err)
	}
	if out.Status != model.ChoreStatusCompleted {
		t.Errorf("status = %s, want completed", out.Status)
	}
	if out.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	// Completion alone moves no currency.
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Errorf("coins = %d, want 0", got)
	}
	if got := f.points(t); got != 0 {
		t.Errorf("points = %d, want 0", got)
	}
}

func TestCompleteChoreByParentOnBehalf(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 10, 0, model.FrequencyOnce)

	out, err := f.svc.CompleteChore(context.Background(), CompleteChoreCommand{
		ChoreID: chore.ID, ActingUserID: f.parent.ID,
	})
	if err != nil {
		t.Fatalf("CompleteChore: %v", err)
	}
	if out.Status != model.ChoreStatusCompleted {
		t.Errorf("status = %s, want completed", out.Status)
	}
}

func TestCompleteChoreUnauthorized(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 10, 0, model.FrequencyOnce)

	other, err := f.users.Create(f.family.ID, "sibling", "x", model.RoleChild, "")
	if err != nil {
		t.Fatalf("create sibling: %v", err)
	}

	_, err = f.svc.CompleteChore(context.Background(), CompleteChoreCommand{
		ChoreID: chore.ID, ActingUserID: other.ID,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCompleteChoreTwice(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 10, 0, model.FrequencyOnce)

	ctx := context.Background()
	cmd := CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}
	if _, err := f.svc.CompleteChore(ctx, cmd); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := f.svc.CompleteChore(ctx, cmd); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestCompleteChoreNotFound(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CompleteChore(context.Background(), CompleteChoreCommand{
		ChoreID: 9999, ActingUserID: f.child.ID,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyChoreAwards(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	out, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID})
	if err != nil {
		t.Fatalf("VerifyChore: %v", err)
	}
	if out.Status != model.ChoreStatusVerified {
		t.Errorf("status = %s, want verified", out.Status)
	}
	if out.VerifiedBy == nil || *out.VerifiedBy != f.parent.ID {
		t.Error("expected VerifiedBy to record the parent")
	}

	if got := f.coins(t, f.child.ID); got != 20 {
		t.Errorf("coins = %d, want 20", got)
	}
	if got := f.points(t); got != 10 {
		t.Errorf("points = %d, want 10", got)
	}
}

func TestVerifyChoreAwardsAtMostOnce(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	_, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}

	if got := f.coins(t, f.child.ID); got != 20 {
		t.Errorf("coins = %d after double verify, want 20", got)
	}
	if got := f.points(t); got != 10 {
		t.Errorf("points = %d after double verify, want 10", got)
	}
}

func TestVerifyChoreRequiresParent(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Errorf("coins = %d, want 0", got)
	}
}

func TestVerifyPendingChore(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)

	_, err := f.svc.VerifyChore(context.Background(), VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestRejectChore(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	out, err := f.svc.RejectChore(ctx, RejectChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID})
	if err != nil {
		t.Fatalf("RejectChore: %v", err)
	}
	if out.Status != model.ChoreStatusRejected {
		t.Errorf("status = %s, want rejected", out.Status)
	}

	// Rejection never pays out.
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Errorf("coins = %d, want 0", got)
	}
	if got := f.points(t); got != 0 {
		t.Errorf("points = %d, want 0", got)
	}

	// Terminal: the rejected row cannot be re-completed.
	_, err = f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestRecurringChoreRespawnsOnVerify(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 5, 5, model.FrequencyDaily)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	pending, err := f.chores.ListByFamilyAndStatus(f.family.ID, model.ChoreStatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending chores = %d, want 1 respawned instance", len(pending))
	}
	next := pending[0]
	if next.ID == chore.ID {
		t.Error("respawned chore should be a new row")
	}
	if next.Title != chore.Title || next.CoinReward != chore.CoinReward || next.PointReward != chore.PointReward {
		t.Error("respawned chore should copy the definition")
	}
	if next.AssignedTo == nil || *next.AssignedTo != f.child.ID {
		t.Error("respawned chore should keep the assignee")
	}
}

func TestRecurringChoreRespawnsOnReject(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 5, 5, model.FrequencyWeekly)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.RejectChore(ctx, RejectChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	pending, err := f.chores.ListByFamilyAndStatus(f.family.ID, model.ChoreStatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending chores = %d, want 1 respawned instance", len(pending))
	}
}

func TestOneOffChoreDoesNotRespawn(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 5, 5, model.FrequencyOnce)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	pending, err := f.chores.ListByFamilyAndStatus(f.family.ID, model.ChoreStatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending chores = %d, want 0", len(pending))
	}
}

func TestConcurrentVerifyAwardsOnce(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 20, 10, model.FrequencyOnce)
	ctx := context.Background()

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrConcurrentModification):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("successful verifies = %d, want exactly 1", wins)
	}
	if got := f.coins(t, f.child.ID); got != 20 {
		t.Errorf("coins = %d, want 20", got)
	}
	if got := f.points(t); got != 10 {
		t.Errorf("points = %d, want 10", got)
	}
}

// The connection pool is capped at one connection, so a role check issued
// outside the workflow transaction would wait forever for the connection the
// transaction holds. Parent-gated commands must still return.
func TestParentGatedCommandsFinishOnSingleConnection(t *testing.T) {
	f := setup(t)
	chore := f.newChore(t, 5, 5, model.FrequencyOnce)

	done := make(chan error, 1)
	go func() {
		if _, err := f.svc.CompleteChore(context.Background(), CompleteChoreCommand{
			ChoreID: chore.ID, ActingUserID: f.parent.ID,
		}); err != nil {
			done <- err
			return
		}
		_, err := f.svc.VerifyChore(context.Background(), VerifyChoreCommand{
			ChoreID: chore.ID, ActingUserID: f.parent.ID,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("complete+verify as parent: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("parent-gated command did not return")
	}

	if got := f.coins(t, f.child.ID); got != 5 {
		t.Errorf("coins = %d, want 5", got)
	}
}

func TestRecurringChoreRespawnKeepsCategory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cat, err := store.NewCategoryStore(f.db).Create(f.family.ID, "Kitchen", "", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	chore, err := f.chores.Create(f.family.ID, "dishes", "", 5, 5, model.FrequencyDaily, &cat.ID, &f.child.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	if _, err := f.svc.CompleteChore(ctx, CompleteChoreCommand{ChoreID: chore.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.VerifyChore(ctx, VerifyChoreCommand{ChoreID: chore.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	pending, err := f.chores.ListByFamilyAndStatus(f.family.ID, model.ChoreStatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending chores = %d, want 1 respawned instance", len(pending))
	}
	next := pending[0]
	if next.CategoryID == nil || *next.CategoryID != cat.ID {
		t.Errorf("respawned chore category = %v, want %d", next.CategoryID, cat.ID)
	}
}
