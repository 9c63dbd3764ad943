package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/store"
)

// Notifier fans workflow notifications out to the right family members.
// A nil Notifier is safe to call and does nothing, so handlers never need
// to check whether push is configured.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, logger: logger}
}

// ChoreCompleted tells the family's parents a chore is waiting for verification.
func (n *Notifier) ChoreCompleted(familyID int64, choreTitle string) {
	if n == nil {
		return
	}
	n.sendToRole(familyID, model.RoleParent, Payload{
		Title: "Chore ready to verify",
		Body:  fmt.Sprintf("%q was marked done and needs a look.", choreTitle),
		URL:   "/chores",
		Tag:   "chore-completed",
	})
}

// ChoreVerified tells the assignee their chore was approved and paid out.
func (n *Notifier) ChoreVerified(userID int64, choreTitle string, coins int) {
	if n == nil {
		return
	}
	n.sendToUser(userID, Payload{
		Title: "Chore approved",
		Body:  fmt.Sprintf("%q earned you %d coins.", choreTitle, coins),
		URL:   "/chores",
		Tag:   "chore-verified",
	})
}

// ChoreRejected tells the assignee their chore was sent back.
func (n *Notifier) ChoreRejected(userID int64, choreTitle string) {
	if n == nil {
		return
	}
	n.sendToUser(userID, Payload{
		Title: "Chore needs another try",
		Body:  fmt.Sprintf("%q was not accepted this time.", choreTitle),
		URL:   "/chores",
		Tag:   "chore-rejected",
	})
}

// RedemptionRequested tells the parents a reward claim needs approval.
func (n *Notifier) RedemptionRequested(familyID int64, rewardName string) {
	if n == nil {
		return
	}
	n.sendToRole(familyID, model.RoleParent, Payload{
		Title: "Reward claim pending",
		Body:  fmt.Sprintf("Someone wants to redeem %q.", rewardName),
		URL:   "/rewards",
		Tag:   "redemption-requested",
	})
}

// RedemptionResolved tells the requester how their claim came out.
func (n *Notifier) RedemptionResolved(userID int64, rewardName string, approved bool) {
	if n == nil {
		return
	}
	p := Payload{
		Title: "Reward approved",
		Body:  fmt.Sprintf("Your claim for %q was approved. Enjoy!", rewardName),
		URL:   "/rewards",
		Tag:   "redemption-resolved",
	}
	if !approved {
		p.Title = "Reward denied"
		p.Body = fmt.Sprintf("Your claim for %q was denied and refunded.", rewardName)
	}
	n.sendToUser(userID, p)
}

// GoalCompleted tells everyone in the family the shared goal was reached.
func (n *Notifier) GoalCompleted(familyID int64, goalName string) {
	if n == nil {
		return
	}
	n.sendToRole(familyID, model.RoleParent, Payload{
		Title: "Family goal reached",
		Body:  fmt.Sprintf("%q is complete!", goalName),
		URL:   "/goals",
		Tag:   "goal-completed",
	})
	n.sendToRole(familyID, model.RoleChild, Payload{
		Title: "Family goal reached",
		Body:  fmt.Sprintf("%q is complete!", goalName),
		URL:   "/goals",
		Tag:   "goal-completed",
	})
}

func (n *Notifier) sendToUser(userID int64, payload Payload) {
	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return
	}
	n.deliver(subs, payload)
}

func (n *Notifier) sendToRole(familyID int64, role string, payload Payload) {
	subs, err := n.subs.ListByFamilyRole(familyID, role)
	if err != nil {
		n.logger.Error("list push subscriptions", "family_id", familyID, "role", role, "error", err)
		return
	}
	n.deliver(subs, payload)
}

func (n *Notifier) deliver(subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		sub := &subs[i]
		if err := n.service.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				// Browser dropped the subscription; stop trying to reach it.
				if derr := n.subs.DeleteByEndpoint(sub.Endpoint); derr != nil {
					n.logger.Error("delete expired subscription", "error", derr)
				}
				continue
			}
			n.logger.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
