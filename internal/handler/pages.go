package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/ministryx/internal/auth"
	"github.com/dukerupert/ministryx/internal/island"
	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
)

// PageHandler renders the full pages. Loading a page resets the caller's
// island document to the containers that page declares.
type PageHandler struct {
	pages     *island.Sessions
	events    *store.EventStore
	users     *store.UserStore
	templates *template.Template
	logger    *slog.Logger
	now       func() time.Time
}

func NewPageHandler(pages *island.Sessions, es *store.EventStore, us *store.UserStore, tmpl *template.Template, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		pages:     pages,
		events:    es,
		users:     us,
		templates: tmpl,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

// Calendar shows one month of events, the current one unless ?month=YYYY-MM
// names another.
func (h *PageHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	month, err := time.ParseInLocation("2006-01", r.URL.Query().Get("month"), time.UTC)
	if err != nil {
		now := h.now().UTC()
		month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	start, end := month, month.AddDate(0, 1, 0)

	events, ok := h.listEvents(w, start, end)
	if !ok {
		return
	}

	h.pages.Page(auth.SessionID(r.Context())).Load(island.CalendarEventEditor)
	h.render(w, "calendar.html", map[string]any{
		"Title":  "Calendar",
		"Month":  month.Format("January 2006"),
		"Start":  start.Format("2006-01-02"),
		"End":    end.Format("2006-01-02"),
		"Events": events,
	})
}

// CalendarEvents re-renders the event list after a refresh.
func (h *PageHandler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	start, err := parseFlexibleTime(r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := parseFlexibleTime(r.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}

	events, ok := h.listEvents(w, start, end)
	if !ok {
		return
	}
	h.render(w, "event-list", map[string]any{"Events": events})
}

func (h *PageHandler) listEvents(w http.ResponseWriter, start, end time.Time) ([]model.CalendarEvent, bool) {
	events, err := h.events.ListByDateRange(start, end)
	if err != nil {
		h.logger.Error("list calendar events", "error", err)
		http.Error(w, "failed to load events", http.StatusInternalServerError)
		return nil, false
	}
	return events, true
}

func (h *PageHandler) Security(w http.ResponseWriter, r *http.Request) {
	data, ok := h.securityData(w, r)
	if !ok {
		return
	}
	h.pages.Page(auth.SessionID(r.Context())).Load(island.TwoFactorEnrollment)
	h.render(w, "security.html", data)
}

// SecurityStatus re-renders the two-factor status after a refresh.
func (h *PageHandler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	data, ok := h.securityData(w, r)
	if !ok {
		return
	}
	h.render(w, "security-status", data)
}

func (h *PageHandler) securityData(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	userID := auth.UserID(r.Context())
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		h.logger.Error("get user", "user_id", userID, "error", err)
		http.Error(w, "failed to load account", http.StatusInternalServerError)
		return nil, false
	}
	codes, err := h.users.CountUnusedRecoveryCodes(user.ID)
	if err != nil {
		h.logger.Error("count recovery codes", "user_id", user.ID, "error", err)
		http.Error(w, "failed to load account", http.StatusInternalServerError)
		return nil, false
	}
	return map[string]any{
		"Title":         "Account security",
		"TOTPEnabled":   user.TOTPEnabled,
		"RecoveryCodes": codes,
	}, true
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render template", "template", name, "error", err)
	}
}
