// Package server wires stores, handlers and middleware into the HTTP router.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/ministryx/internal/backup"
	"github.com/dukerupert/ministryx/internal/config"
	"github.com/dukerupert/ministryx/internal/handler"
	"github.com/dukerupert/ministryx/internal/island"
	"github.com/dukerupert/ministryx/internal/middleware"
	"github.com/dukerupert/ministryx/internal/push"
	"github.com/dukerupert/ministryx/internal/store"
	ws "github.com/dukerupert/ministryx/internal/websocket"
	"github.com/dukerupert/ministryx/web"
)

const (
	loginAttempts      = 10
	loginWindow        = time.Minute
	maintenanceEvery   = time.Hour
	rateLimiterCleanup = 5 * time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	pages          *island.Sessions
	calendarEventH *handler.CalendarEventHandler
	familyH        *handler.FamilyHandler
	islandH        *handler.IslandHandler
	twoFactorH     *handler.TwoFactorHandler
	reportH        *handler.ReportHandler
	settingsH      *handler.SettingsHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	pageH          *handler.PageHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	userStore      *store.UserStore
	rateLimiter    *middleware.RateLimiter
	reminders      *push.Scheduler
	backups        *backup.Manager
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	hub := ws.NewHub(logger)

	eventStore := store.NewEventStore(db)
	familyStore := store.NewFamilyStore(db)
	personStore := store.NewPersonStore(db)
	pledgeStore := store.NewPledgeStore(db)
	settingsStore := store.NewSettingsStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	var pushService *push.Service
	var reminders *push.Scheduler
	if cfg.Push.Enabled() {
		pushService = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		reminders = push.NewScheduler(pushService, pushStore, eventStore, cfg.Push.ReminderLead, logger)
	}
	backups := backup.NewManager(cfg.Backup.Manager(), db, backupStore, logger)

	views := handler.NewViews(eventStore, userStore, cfg.TOTPIssuer, tmpl)
	pages := newPages(views, hub, logger.With("component", "island"))

	return &Server{
		db:             db,
		hub:            hub,
		pages:          pages,
		calendarEventH: handler.NewCalendarEventHandler(eventStore, personStore, hub, logger),
		familyH:        handler.NewFamilyHandler(familyStore, personStore, pledgeStore, hub, logger),
		islandH:        handler.NewIslandHandler(pages, views, eventStore, personStore, hub, logger),
		twoFactorH:     handler.NewTwoFactorHandler(userStore, pages, views, logger),
		reportH:        handler.NewReportHandler(familyStore, personStore, pledgeStore, settingsStore, sessionStore, cfg.PaperSize, tmpl, logger),
		settingsH:      handler.NewSettingsHandler(settingsStore, hub, logger),
		pushH:          handler.NewPushHandler(pushStore, pushService, logger),
		backupH:        handler.NewBackupHandler(backups, backupStore, logger),
		pageH:          handler.NewPageHandler(pages, eventStore, userStore, tmpl, logger),
		authH:          handler.NewAuthHandler(userStore, sessionStore, pages, cfg.SessionTTL, tmpl, logger),
		sessionStore:   sessionStore,
		userStore:      userStore,
		rateLimiter:    middleware.NewRateLimiter(),
		reminders:      reminders,
		backups:        backups,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}, nil
}

// newPages builds the per-session island documents. Closing an island
// refreshes the view it sits on, for that session only.
func newPages(views *handler.Views, hub *ws.Hub, logger *slog.Logger) *island.Sessions {
	return island.NewSessions(func(sessionID int64) *island.Page {
		return island.NewPage(logger.With("session_id", sessionID),
			island.Slot{
				ContainerID: island.CalendarEventEditor,
				View:        views.EventEditor,
				Refresh:     func() { hub.Send(sessionID, ws.Refresh("calendar")) },
			},
			island.Slot{
				ContainerID: island.TwoFactorEnrollment,
				View:        views.TwoFactorEnrollment,
				Refresh:     func() { hub.Send(sessionID, ws.Refresh("security")) },
			},
		)
	})
}

func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Backups exposes the backup manager to the command line.
func (s *Server) Backups() *backup.Manager {
	return s.backups
}

// RunMaintenance removes expired sessions with their island pages and
// trims the login rate limiter until ctx is done. It also drives calendar
// reminders and scheduled backups when those are configured.
func (s *Server) RunMaintenance(ctx context.Context) {
	go s.rateLimiter.RunCleanup(ctx, rateLimiterCleanup)
	if s.reminders != nil {
		go s.reminders.Run(ctx)
	}
	go s.backups.Schedule(ctx)

	ticker := time.NewTicker(maintenanceEvery)
	defer ticker.Stop()
	for {
		s.pruneSessions()
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) pruneSessions() {
	n, err := s.sessionStore.DeleteExpired()
	if err != nil {
		s.logger.Error("delete expired sessions", "error", err)
		return
	}
	active, err := s.sessionStore.ActiveIDs()
	if err != nil {
		s.logger.Error("list active sessions", "error", err)
		return
	}
	dropped := s.pages.Prune(func(id int64) bool { return active[id] })
	if n > 0 || dropped > 0 {
		s.logger.Info("pruned sessions", "expired", n, "pages", dropped)
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, loginAttempts, loginWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Pages
	mux.HandleFunc("GET /{$}", s.pageH.Home)
	mux.HandleFunc("GET /calendar", s.pageH.Calendar)
	mux.HandleFunc("GET /calendar/events", s.pageH.CalendarEvents)
	mux.HandleFunc("GET /security", s.pageH.Security)
	mux.HandleFunc("GET /security/status", s.pageH.SecurityStatus)

	// Islands
	mux.HandleFunc("POST /islands/calendar-event-editor/events/{id}", s.islandH.ShowEventForm)
	mux.HandleFunc("POST /islands/calendar-event-editor/new", s.islandH.ShowNewEventForm)
	mux.HandleFunc("POST /islands/calendar-event-editor/save", s.islandH.SaveEvent)
	mux.HandleFunc("POST /islands/two-factor-enrollment/show", s.islandH.ShowTwoFactorEnrollment)
	mux.HandleFunc("POST /islands/{container}/close", s.islandH.Close)
	mux.HandleFunc("GET /islands/{container}", s.islandH.Fragment)

	// Two-factor
	mux.HandleFunc("POST /api/2fa/enroll/confirm", s.twoFactorH.ConfirmEnrollment)
	mux.HandleFunc("POST /api/2fa/disable", s.twoFactorH.Disable)

	// Calendar events
	mux.HandleFunc("POST /api/events", s.calendarEventH.Create)
	mux.HandleFunc("GET /api/events", s.calendarEventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarEventH.Delete)

	// Families, persons, pledges
	mux.HandleFunc("GET /api/families", s.familyH.List)
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families/{id}/persons", s.familyH.ListPersons)
	mux.HandleFunc("POST /api/families/{id}/persons", s.familyH.CreatePerson)
	mux.HandleFunc("GET /api/classifications", s.familyH.ListClassifications)
	mux.HandleFunc("POST /api/pledges", s.familyH.CreatePledge)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.List)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	// Calendar reminders
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Run)

	// Reports
	mux.HandleFunc("GET /reports/voting-members", s.reportH.VotingMembersForm)
	mux.HandleFunc("POST /reports/voting-members", s.reportH.VotingMembers)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger))
}
