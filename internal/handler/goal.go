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

type GoalHandler struct {
	goals    *store.GoalStore
	economy  *economy.Service
	hub      *events.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewGoalHandler(gs *store.GoalStore, svc *economy.Service, hub *events.Hub, notifier *push.Notifier, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goals: gs, economy: svc, hub: hub, notifier: notifier, logger: logger}
}

func (h *GoalHandler) publish(familyID int64, ev events.Event) {
	if h.hub != nil {
		h.hub.Publish(familyID, ev)
	}
}

type goalRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int    `json:"points_required"`
}

func (req *goalRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.PointsRequired <= 0 {
		return "points_required must be positive"
	}
	return ""
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	goal, err := h.goals.Create(p.FamilyID, req.Name, req.Description, req.PointsRequired)
	if err != nil {
		h.logger.Error("create goal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("goal", "created", goal.ID, nil))
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	goals, err := h.goals.ListByFamily(p.FamilyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.goals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	if existing.IsCompleted {
		writeError(w, http.StatusConflict, "completed goals cannot be edited")
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	goal, err := h.goals.Update(id, req.Name, req.Description, req.PointsRequired)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("goal", "updated", id, nil))
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.goals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil || existing.FamilyID != p.FamilyID {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}

	if err := h.goals.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(p.FamilyID, events.NewEvent("goal", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Complete marks a goal reached and deducts its cost from the family pool.
func (h *GoalHandler) Complete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	goal, err := h.economy.CompleteGoal(r.Context(), economy.CompleteGoalCommand{
		GoalID:       id,
		ActingUserID: p.UserID,
	})
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	h.publish(p.FamilyID, events.NewEvent("goal", "completed", id, map[string]any{
		"points_spent": goal.PointsRequired,
	}))
	h.notifier.GoalCompleted(p.FamilyID, goal.Name)
	writeJSON(w, http.StatusOK, goal)
}
