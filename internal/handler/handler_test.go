package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/ministryx/internal/auth"
	"github.com/dukerupert/ministryx/internal/database"
	"github.com/dukerupert/ministryx/internal/island"
	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
	"github.com/dukerupert/ministryx/internal/websocket"
	"github.com/dukerupert/ministryx/web"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	db       *sql.DB
	events   *store.EventStore
	families *store.FamilyStore
	persons  *store.PersonStore
	pledges  *store.PledgeStore
	settings *store.SettingsStore
	users    *store.UserStore
	sessions *store.SessionStore
	hub      *websocket.Hub
	views    *Views
	pages    *island.Sessions

	user      *model.User
	session   *model.Session
	refreshes map[string]int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tmpl, err := web.Templates()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	e := &testEnv{
		db:        db,
		events:    store.NewEventStore(db),
		families:  store.NewFamilyStore(db),
		persons:   store.NewPersonStore(db),
		pledges:   store.NewPledgeStore(db),
		settings:  store.NewSettingsStore(db),
		users:     store.NewUserStore(db),
		sessions:  store.NewSessionStore(db, time.Hour),
		hub:       websocket.NewHub(discard),
		refreshes: make(map[string]int),
	}
	e.views = NewViews(e.events, e.users, "MinistryX", tmpl)
	e.pages = island.NewSessions(func(int64) *island.Page {
		return island.NewPage(discard,
			island.Slot{ContainerID: island.CalendarEventEditor, View: e.views.EventEditor, Refresh: e.countRefresh(island.CalendarEventEditor)},
			island.Slot{ContainerID: island.TwoFactorEnrollment, View: e.views.TwoFactorEnrollment, Refresh: e.countRefresh(island.TwoFactorEnrollment)},
		)
	})

	e.user, err = e.users.Create("clerk", "correct horse")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	e.session, err = e.sessions.Create(e.user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return e
}

func (e *testEnv) countRefresh(containerID string) func() {
	return func() { e.refreshes[containerID]++ }
}

func (e *testEnv) page() *island.Page {
	return e.pages.Page(e.session.ID)
}

// request builds an authenticated request; form, when non-nil, is sent
// url-encoded.
func (e *testEnv) request(method, target string, form url.Values) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	ac := auth.AuthContext{
		UserID:    e.user.ID,
		Username:  e.user.Username,
		SessionID: e.session.ID,
	}
	if sess, _ := e.sessions.GetByToken(e.session.Token); sess != nil {
		ac.DefaultFYID = sess.DefaultFYID
	}
	return req.WithContext(auth.WithAuth(req.Context(), ac))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}
