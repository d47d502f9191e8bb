package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/ministryx/internal/config"
	"github.com/dukerupert/ministryx/internal/database"
	"github.com/dukerupert/ministryx/internal/middleware"
	"github.com/dukerupert/ministryx/internal/store"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		SessionTTL: time.Hour,
		TOTPIssuer: "MinistryX",
		PaperSize:  "Letter",
		Push:       config.Push{ReminderLead: time.Hour},
	}
	srv, err := New(db, cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if _, err := store.NewUserStore(db).Create("clerk", "correct horse"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return srv, srv.Router()
}

func TestPublicRoutes(t *testing.T) {
	_, router := newTestServer(t)

	tests := []struct {
		target string
		want   int
	}{
		{"/health", http.StatusOK},
		{"/login", http.StatusOK},
		{"/static/app.js", http.StatusOK},
		{"/static/sw.js", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", tt.target, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
		}
		if rec.Header().Get(middleware.RequestIDHeader) == "" {
			t.Errorf("GET %s: missing request id", tt.target)
		}
	}
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	_, router := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/calendar", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("GET /calendar = %d Location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLoginThenBrowse(t *testing.T) {
	_, router := newTestServer(t)

	form := url.Values{"username": {"clerk"}, "password": {"correct horse"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()

	for _, target := range []string{"/calendar", "/security", "/reports/voting-members", "/api/settings", "/api/backups"} {
		req := httptest.NewRequest("GET", target, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", target, rec.Code)
		}
	}

	req = httptest.NewRequest("GET", "/api/push/vapid-key", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("vapid key without push config = %d, want 503", rec.Code)
	}
}
