package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernhill/pennyjar/internal/auth"
	"github.com/fernhill/pennyjar/internal/economy"
	"github.com/fernhill/pennyjar/internal/events"
	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/push"
	"github.com/fernhill/pennyjar/internal/store"
)

type RewardHandler struct {
	rewards  *store.RewardStore
	economy  *economy.Service
	hub      *events.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, svc *economy.Service, hub *events.Hub, notifier *push.Notifier, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, economy: svc, hub: hub, notifier: notifier, logger: logger}
}

func (h *RewardHandler) publish(familyID int64, ev events.Event) {
	if h.hub != nil {
		h.hub.Publish(familyID, ev)
	}
}

type rewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	IsFamily    bool   `json:"is_family"`
	Quantity    *int   `json:"quantity"`
	Available   *bool  `json:"available"`
}

func (req *rewardRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Cost <= 0 {
		return "cost must be positive"
	}
	if req.Quantity != nil && *req.Quantity < model.UnlimitedQuantity {
		return "invalid quantity"
	}
	return ""
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	quantity := model.UnlimitedQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	reward, err := h.rewards.Create(p.FamilyID, req.Name, req.Description, req.Cost, req.IsFamily, quantity, available)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	rewards, err := h.rewards.ListByFamily(p.FamilyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	quantity := existing.Quantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	available := existing.Available
	if req.Available != nil {
		available = *req.Available
	}

	reward, err := h.rewards.Update(id, req.Name, req.Description, req.Cost, req.IsFamily, quantity, available)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("reward", "updated", id, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	if err := h.rewards.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Redeem requests a reward, debiting the currency up front.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	redemption, err := h.economy.RequestRedemption(r.Context(), economy.RequestRedemptionCommand{
		RewardID:     id,
		ActingUserID: p.UserID,
	})
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	h.publish(p.FamilyID, events.NewEvent("redemption", "requested", redemption.ID, nil))
	if reward, rerr := h.rewards.GetByID(id); rerr == nil && reward != nil {
		h.notifier.RedemptionRequested(p.FamilyID, reward.Name)
	}
	writeJSON(w, http.StatusCreated, redemption)
}

func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var (
		redemptions []model.RewardRedemption
		err         error
	)
	switch {
	case r.URL.Query().Get("pending") == "true":
		redemptions, err = h.rewards.ListPendingRedemptions(p.FamilyID)
	case r.URL.Query().Get("mine") == "true":
		redemptions, err = h.rewards.ListRedemptionsByUser(p.UserID)
	default:
		redemptions, err = h.rewards.ListRedemptionsByFamily(p.FamilyID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if redemptions == nil {
		redemptions = []model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

func (h *RewardHandler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	redemption, err := h.rewards.GetRedemptionByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if redemption == nil || redemption.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "redemption not found")
		return
	}
	writeJSON(w, http.StatusOK, redemption)
}

// Approve finalizes a pending redemption; the currency stays spent.
func (h *RewardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

// Deny refunds a pending redemption and restores any finite stock.
func (h *RewardHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *RewardHandler) resolve(w http.ResponseWriter, r *http.Request, approve bool) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	cmd := economy.ResolveRedemptionCommand{RedemptionID: id, ActingUserID: p.UserID}
	var redemption *model.RewardRedemption
	if approve {
		redemption, err = h.economy.ApproveRedemption(r.Context(), cmd)
	} else {
		redemption, err = h.economy.DenyRedemption(r.Context(), cmd)
	}
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	action := "approved"
	if !approve {
		action = "denied"
	}
	h.publish(p.FamilyID, events.NewEvent("redemption", action, id, nil))
	if reward, rerr := h.rewards.GetByID(redemption.RewardID); rerr == nil && reward != nil {
		h.notifier.RedemptionResolved(redemption.UserID, reward.Name, approve)
	}
	writeJSON(w, http.StatusOK, redemption)
}
