package economy

import (
	"context"
	"errors"
	"testing"

	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/store"
)

func TestRequestRedemptionDebitsCoins(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, model.UnlimitedQuantity)

	red, err := f.svc.RequestRedemption(context.Background(), RequestRedemptionCommand{
		RewardID: reward.ID, ActingUserID: f.child.ID,
	})
	if err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}
	if red.Status != model.RedemptionStatusPending {
		t.Errorf("status = %s, want pending", red.Status)
	}
	if red.Cost != 30 || red.IsFamily {
		t.Errorf("snapshot = cost %d family %v, want 30 false", red.Cost, red.IsFamily)
	}
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Errorf("coins = %d, want 0", got)
	}
}

func TestRequestRedemptionDebitsFamilyPoints(t *testing.T) {
	f := setup(t)
	f.setPoints(t, 100)
	reward := f.newReward(t, 60, true, model.UnlimitedQuantity)

	red, err := f.svc.RequestRedemption(context.Background(), RequestRedemptionCommand{
		RewardID: reward.ID, ActingUserID: f.child.ID,
	})
	if err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}
	if !red.IsFamily {
		t.Error("expected family-scoped snapshot")
	}
	if got := f.points(t); got != 40 {
		t.Errorf("points = %d, want 40", got)
	}
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Errorf("coins = %d, want 0 (family reward must not touch coins)", got)
	}
}

func TestRequestRedemptionInsufficientFunds(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 10)
	reward := f.newReward(t, 30, false, 3)

	_, err := f.svc.RequestRedemption(context.Background(), RequestRedemptionCommand{
		RewardID: reward.ID, ActingUserID: f.child.ID,
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	// Nothing moved: balance intact, no redemption row, stock untouched.
	if got := f.coins(t, f.child.ID); got != 10 {
		t.Errorf("coins = %d, want 10", got)
	}
	var count int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM reward_redemptions`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("redemption rows = %d, want 0", count)
	}
	got, err := f.rewards.GetByID(reward.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", got.Quantity)
	}
}

func TestRequestRedemptionUnavailable(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 100)
	reward, err := f.rewards.Create(f.family.ID, "off", "", 10, false, model.UnlimitedQuantity, false)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.RequestRedemption(context.Background(), RequestRedemptionCommand{
		RewardID: reward.ID, ActingUserID: f.child.ID,
	})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestRequestRedemptionOutOfStock(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 100)
	reward := f.newReward(t, 10, false, 1)
	ctx := context.Background()

	if _, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
	if got := f.coins(t, f.child.ID); got != 90 {
		t.Errorf("coins = %d, want 90 (only one debit)", got)
	}
}

func TestRequestRedemptionForeignFamily(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 100)
	reward := f.newReward(t, 10, false, model.UnlimitedQuantity)

	other, err := store.NewFamilyStore(f.db).Create("Others")
	if err != nil {
		t.Fatal(err)
	}
	stranger, err := f.users.Create(other.ID, "stranger", "x", model.RoleChild, "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.RequestRedemption(context.Background(), RequestRedemptionCommand{
		RewardID: reward.ID, ActingUserID: stranger.ID,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound (foreign rewards are invisible)", err)
	}
}

func TestApproveRedemptionKeepsDebit(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, model.UnlimitedQuantity)
	ctx := context.Background()

	red, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	out, err := f.svc.ApproveRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.parent.ID})
	if err != nil {
		t.Fatalf("ApproveRedemption: %v", err)
	}
	if out.Status != model.RedemptionStatusApproved {
		t.Errorf("status = %s, want approved", out.Status)
	}
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Errorf("coins = %d, want 0", got)
	}
}

func TestDenyRedemptionRefunds(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, 2)
	ctx := context.Background()

	red, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := f.coins(t, f.child.ID); got != 0 {
		t.Fatalf("coins after request = %d, want 0", got)
	}

	out, err := f.svc.DenyRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.parent.ID})
	if err != nil {
		t.Fatalf("DenyRedemption: %v", err)
	}
	if out.Status != model.RedemptionStatusDenied {
		t.Errorf("status = %s, want denied", out.Status)
	}
	if got := f.coins(t, f.child.ID); got != 30 {
		t.Errorf("coins = %d, want 30 (exact refund)", got)
	}

	// Stock comes back too.
	got, err := f.rewards.GetByID(reward.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", got.Quantity)
	}
}

func TestDenyRedemptionRefundsSnapshotCost(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, model.UnlimitedQuantity)
	ctx := context.Background()

	red, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Reprice the reward between request and denial; the refund must use the
	// price paid, not the current price.
	if _, err := f.rewards.Update(reward.ID, reward.Name, reward.Description, 99, reward.IsFamily, reward.Quantity, reward.Available); err != nil {
		t.Fatalf("update reward: %v", err)
	}

	if _, err := f.svc.DenyRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if got := f.coins(t, f.child.ID); got != 30 {
		t.Errorf("coins = %d, want 30", got)
	}
}

func TestDenyRedemptionRefundsExactlyOnce(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, model.UnlimitedQuantity)
	ctx := context.Background()

	red, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.DenyRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("first deny: %v", err)
	}

	_, err = f.svc.DenyRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.parent.ID})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
	if got := f.coins(t, f.child.ID); got != 30 {
		t.Errorf("coins = %d after double deny, want 30", got)
	}
}

func TestResolveRedemptionRequiresParent(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, model.UnlimitedQuantity)
	ctx := context.Background()

	red, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := f.svc.ApproveRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.child.ID}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("approve err = %v, want ErrUnauthorized", err)
	}
	if _, err := f.svc.DenyRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.child.ID}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("deny err = %v, want ErrUnauthorized", err)
	}
}

func TestDenyRedemptionRestoresOnlyTakenStock(t *testing.T) {
	f := setup(t)
	f.setCoins(t, f.child.ID, 30)
	reward := f.newReward(t, 30, false, model.UnlimitedQuantity)
	ctx := context.Background()

	red, err := f.svc.RequestRedemption(ctx, RequestRedemptionCommand{RewardID: reward.ID, ActingUserID: f.child.ID})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if red.StockDecremented {
		t.Fatal("unlimited reward must not record a stock decrement")
	}

	// A parent switches the reward to finite stock before the denial.
	if _, err := f.rewards.Update(reward.ID, reward.Name, "", reward.Cost, false, 5, true); err != nil {
		t.Fatalf("update reward: %v", err)
	}

	if _, err := f.svc.DenyRedemption(ctx, ResolveRedemptionCommand{RedemptionID: red.ID, ActingUserID: f.parent.ID}); err != nil {
		t.Fatalf("DenyRedemption: %v", err)
	}
	if got := f.coins(t, f.child.ID); got != 30 {
		t.Errorf("coins = %d, want 30", got)
	}

	got, err := f.rewards.GetByID(reward.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 5 {
		t.Errorf("quantity = %d, want 5 (no unit was taken at request time)", got.Quantity)
	}
}
