package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fernhill/pennyjar/internal/backup"
	"github.com/fernhill/pennyjar/internal/config"
	"github.com/fernhill/pennyjar/internal/economy"
	"github.com/fernhill/pennyjar/internal/events"
	"github.com/fernhill/pennyjar/internal/handler"
	"github.com/fernhill/pennyjar/internal/middleware"
	"github.com/fernhill/pennyjar/internal/push"
	"github.com/fernhill/pennyjar/internal/store"
)

type Server struct {
	db            *sql.DB
	hub           *events.Hub
	familyH       *handler.FamilyHandler
	choreH        *handler.ChoreHandler
	categoryH     *handler.CategoryHandler
	rewardH       *handler.RewardHandler
	goalH         *handler.GoalHandler
	pushH         *handler.PushHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := events.NewHub(logger.With("component", "events"))

	familyStore := store.NewFamilyStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	choreStore := store.NewChoreStore(db)
	categoryStore := store.NewCategoryStore(db)
	rewardStore := store.NewRewardStore(db)
	goalStore := store.NewGoalStore(db)
	pushStore := store.NewPushStore(db)

	econ := economy.NewService(db, logger.With("component", "economy"))

	var pushSvc *push.Service
	var notifier *push.Notifier
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		notifier = push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))
	}

	var backupMgr *backup.Manager
	if cfg.Backup.Enabled() {
		interval, err := time.ParseDuration(cfg.Backup.Interval)
		if err != nil || interval <= 0 {
			interval = 24 * time.Hour
		}
		backupMgr = backup.NewManager(backup.Config{
			Bucket:     cfg.Backup.Bucket,
			Endpoint:   cfg.Backup.Endpoint,
			Region:     cfg.Backup.Region,
			AccessKey:  cfg.Backup.AccessKey,
			SecretKey:  cfg.Backup.SecretKey,
			Passphrase: cfg.Backup.Passphrase,
			Interval:   interval,
			DBPath:     cfg.DBPath,
		}, db, logger.With("component", "backup"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		familyH:       handler.NewFamilyHandler(familyStore, userStore, sessionStore, logger.With("component", "family")),
		choreH:        handler.NewChoreHandler(choreStore, categoryStore, econ, hub, notifier, logger.With("component", "chore")),
		categoryH:     handler.NewCategoryHandler(categoryStore, logger.With("component", "category")),
		rewardH:       handler.NewRewardHandler(rewardStore, econ, hub, notifier, logger.With("component", "reward")),
		goalH:         handler.NewGoalHandler(goalStore, econ, hub, notifier, logger.With("component", "goal")),
		pushH:         handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager, or nil when backups are not
// configured.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/register", s.rateLimited(s.familyH.Register))
	outerMux.HandleFunc("POST /api/join", s.rateLimited(s.familyH.Join))
	outerMux.HandleFunc("POST /api/login", s.rateLimited(s.familyH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Everything else requires a session
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	parent := middleware.RequireParent

	mux.HandleFunc("POST /api/logout", s.familyH.Logout)
	mux.HandleFunc("GET /api/me", s.familyH.Me)
	mux.HandleFunc("GET /api/family", s.familyH.Get)
	mux.HandleFunc("GET /api/family/members", s.familyH.Members)
	mux.Handle("PUT /api/family", parent(http.HandlerFunc(s.familyH.Rename)))

	// Chores. Definition changes are parent-only; completing is open to the
	// assignee, so it stays on the plain mux.
	mux.Handle("POST /api/chores", parent(http.HandlerFunc(s.choreH.Create)))
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.Handle("PUT /api/chores/{id}", parent(http.HandlerFunc(s.choreH.Update)))
	mux.Handle("DELETE /api/chores/{id}", parent(http.HandlerFunc(s.choreH.Delete)))
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.Handle("POST /api/chores/{id}/verify", parent(http.HandlerFunc(s.choreH.Verify)))
	mux.Handle("POST /api/chores/{id}/reject", parent(http.HandlerFunc(s.choreH.Reject)))

	// Chore categories
	mux.Handle("POST /api/categories", parent(http.HandlerFunc(s.categoryH.Create)))
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.Handle("PUT /api/categories/{id}", parent(http.HandlerFunc(s.categoryH.Update)))
	mux.Handle("DELETE /api/categories/{id}", parent(http.HandlerFunc(s.categoryH.Delete)))

	// Rewards
	mux.Handle("POST /api/rewards", parent(http.HandlerFunc(s.rewardH.Create)))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("PUT /api/rewards/{id}", parent(http.HandlerFunc(s.rewardH.Update)))
	mux.Handle("DELETE /api/rewards/{id}", parent(http.HandlerFunc(s.rewardH.Delete)))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/redemptions", s.rewardH.ListRedemptions)
	mux.HandleFunc("GET /api/redemptions/{id}", s.rewardH.GetRedemption)
	mux.Handle("POST /api/redemptions/{id}/approve", parent(http.HandlerFunc(s.rewardH.Approve)))
	mux.Handle("POST /api/redemptions/{id}/deny", parent(http.HandlerFunc(s.rewardH.Deny)))

	// Goals
	mux.Handle("POST /api/goals", parent(http.HandlerFunc(s.goalH.Create)))
	mux.HandleFunc("GET /api/goals", s.goalH.List)
	mux.Handle("PUT /api/goals/{id}", parent(http.HandlerFunc(s.goalH.Update)))
	mux.Handle("DELETE /api/goals/{id}", parent(http.HandlerFunc(s.goalH.Delete)))
	mux.Handle("POST /api/goals/{id}/complete", parent(http.HandlerFunc(s.goalH.Complete)))

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// Real-time events
	mux.HandleFunc("GET /ws", events.Handler(s.hub, s.logger.With("component", "events")))
}
