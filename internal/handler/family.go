package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fernhill/pennyjar/internal/auth"
	"github.com/fernhill/pennyjar/internal/model"
	"github.com/fernhill/pennyjar/internal/store"
)

const sessionCookieName = "pennyjar_session"

type FamilyHandler struct {
	families *store.FamilyStore
	users    *store.UserStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, us *store.UserStore, ss *store.SessionStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, users: us, sessions: ss, logger: logger}
}

type registerRequest struct {
	FamilyName string `json:"family_name"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Avatar     string `json:"avatar"`
}

// Register creates a new family and its first parent account, then logs the
// parent in.
func (h *FamilyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.Username = strings.TrimSpace(req.Username)
	if req.FamilyName == "" || req.Username == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "family name, username, and a password of at least 8 characters are required")
		return
	}

	existing, err := h.users.GetByUsername(req.Username)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	family, err := h.families.Create(req.FamilyName)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.Create(family.ID, req.Username, string(hash), model.RoleParent, req.Avatar)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.startSession(w, user)
	h.logger.Info("family registered", "family_id", family.ID, "user_id", user.ID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"family": family,
		"user":   user,
	})
}

type joinRequest struct {
	JoinCode string `json:"join_code"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
}

// Join adds a new member to an existing family via its join code.
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "username and a password of at least 8 characters are required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleChild
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		writeError(w, http.StatusBadRequest, "role must be parent or child")
		return
	}

	family, err := h.families.GetByJoinCode(strings.ToUpper(strings.TrimSpace(req.JoinCode)))
	if err != nil {
		h.logger.Error("join lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "unknown join code")
		return
	}

	existing, err := h.users.GetByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.users.Create(family.ID, req.Username, string(hash), req.Role, req.Avatar)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.startSession(w, user)
	h.logger.Info("member joined", "family_id", family.ID, "user_id", user.ID, "role", user.Role)

	writeJSON(w, http.StatusCreated, map[string]any{
		"family": family,
		"user":   user,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *FamilyHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Same response for unknown user and wrong password.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.startSession(w, user)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *FamilyHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Delete(p.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's profile together with their personal coin balance
// and the family's shared point balance.
func (h *FamilyHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	user, err := h.users.GetByID(p.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	family, err := h.families.GetByID(p.FamilyID)
	if err != nil || family == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"family":        family,
		"coins":         user.Coins,
		"family_points": family.Points,
	})
}

// Get returns the caller's family, including the shared point balance.
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	family, err := h.families.GetByID(auth.FamilyID(r.Context()))
	if err != nil || family == nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

// Members lists the family roster, parents first.
func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	members, err := h.users.ListByFamily(p.FamilyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if members == nil {
		members = []model.User{}
	}
	writeJSON(w, http.StatusOK, members)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *FamilyHandler) Rename(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	family, err := h.families.Rename(p.FamilyID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) startSession(w http.ResponseWriter, user *model.User) {
	sess, err := h.sessions.Create(user.ID, user.FamilyID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
