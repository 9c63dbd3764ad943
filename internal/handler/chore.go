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

type ChoreHandler struct {
	chores     *store.ChoreStore
	categories *store.CategoryStore
	economy    *economy.Service
	hub        *events.Hub
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, cats *store.CategoryStore, svc *economy.Service, hub *events.Hub, notifier *push.Notifier, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: cs, categories: cats, economy: svc, hub: hub, notifier: notifier, logger: logger}
}

func (h *ChoreHandler) publish(familyID int64, ev events.Event) {
	if h.hub != nil {
		h.hub.Publish(familyID, ev)
	}
}

type choreRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CoinReward  int    `json:"coin_reward"`
	PointReward int    `json:"point_reward"`
	Frequency   string `json:"frequency"`
	CategoryID  *int64 `json:"category_id"`
	AssignedTo  *int64 `json:"assigned_to"`
}

// checkCategory verifies the referenced category belongs to the caller's
// family. A foreign or missing category reads as not found.
func (h *ChoreHandler) checkCategory(familyID int64, categoryID *int64) (string, int) {
	if categoryID == nil {
		return "", 0
	}
	category, err := h.categories.GetByID(*categoryID)
	if err != nil {
		return "internal error", http.StatusInternalServerError
	}
	if category == nil || category.FamilyID != familyID {
		return "category not found", http.StatusNotFound
	}
	return "", 0
}

func (req *choreRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.CoinReward < 0 || req.PointReward < 0 {
		return "rewards cannot be negative"
	}
	if req.Frequency == "" {
		req.Frequency = model.FrequencyOnce
	}
	switch req.Frequency {
	case model.FrequencyOnce, model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyMonthly:
		return ""
	default:
		return "invalid frequency"
	}
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg, code := h.checkCategory(p.FamilyID, req.CategoryID); msg != "" {
		writeError(w, code, msg)
		return
	}

	chore, err := h.chores.Create(p.FamilyID, req.Title, req.Description, req.CoinReward, req.PointReward, req.Frequency, req.CategoryID, req.AssignedTo, p.UserID)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("chore", "created", chore.ID, nil))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var (
		chores []model.Chore
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		chores, err = h.chores.ListByFamilyAndStatus(p.FamilyID, model.ChoreStatus(status))
	} else {
		chores, err = h.chores.ListByFamily(p.FamilyID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if chore == nil || chore.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	if existing.Status.Terminal() {
		writeError(w, http.StatusConflict, "chore is finished")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg, code := h.checkCategory(p.FamilyID, req.CategoryID); msg != "" {
		writeError(w, code, msg)
		return
	}

	chore, err := h.chores.Update(id, req.Title, req.Description, req.CoinReward, req.PointReward, req.Frequency, req.CategoryID, req.AssignedTo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("chore", "updated", id, nil))
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	if err := h.chores.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("chore", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Complete marks a pending chore as done, awaiting verification.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	chore, err := h.economy.CompleteChore(r.Context(), economy.CompleteChoreCommand{
		ChoreID:      id,
		ActingUserID: p.UserID,
	})
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	h.publish(chore.FamilyID, events.NewEvent("chore", "completed", id, nil))
	h.notifier.ChoreCompleted(chore.FamilyID, chore.Title)
	writeJSON(w, http.StatusOK, chore)
}

// Verify approves a completed chore and pays out its rewards.
func (h *ChoreHandler) Verify(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	chore, err := h.economy.VerifyChore(r.Context(), economy.VerifyChoreCommand{
		ChoreID:      id,
		ActingUserID: p.UserID,
	})
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	h.publish(chore.FamilyID, events.NewEvent("chore", "verified", id, map[string]any{
		"coin_reward":  chore.CoinReward,
		"point_reward": chore.PointReward,
	}))
	if chore.AssignedTo != nil {
		h.notifier.ChoreVerified(*chore.AssignedTo, chore.Title, chore.CoinReward)
	}
	writeJSON(w, http.StatusOK, chore)
}

// Reject sends a completed chore back without awarding anything.
func (h *ChoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	chore, err := h.economy.RejectChore(r.Context(), economy.RejectChoreCommand{
		ChoreID:      id,
		ActingUserID: p.UserID,
	})
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	h.publish(chore.FamilyID, events.NewEvent("chore", "rejected", id, nil))
	if chore.AssignedTo != nil {
		h.notifier.ChoreRejected(*chore.AssignedTo, chore.Title)
	}
	writeJSON(w, http.StatusOK, chore)
}
