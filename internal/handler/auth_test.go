package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/dukerupert/ministryx/internal/middleware"
)

func newAuthHandler(e *testEnv) *AuthHandler {
	return NewAuthHandler(e.users, e.sessions, e.pages, time.Hour, e.views.templates, discard)
}

func postLogin(h *AuthHandler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(h.Login, req)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	h := newAuthHandler(e)

	rec := postLogin(h, url.Values{"username": {"clerk"}, "password": {"correct horse"}})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/calendar" {
		t.Errorf("Location = %q", loc)
	}
	c := sessionCookie(rec)
	if c == nil || c.Value == "" {
		t.Fatal("session cookie not set")
	}
	if c.MaxAge != 3600 || !c.HttpOnly {
		t.Errorf("cookie = %+v", c)
	}
	sess, err := e.sessions.GetByToken(c.Value)
	if err != nil || sess == nil {
		t.Fatalf("session not stored: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	rec := postLogin(newAuthHandler(e), url.Values{"username": {"clerk"}, "password": {"nope"}})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "Wrong username or password") {
		t.Error("missing error message")
	}
	if sessionCookie(rec) != nil {
		t.Error("no cookie should be set")
	}
}

func TestLoginSecondFactor(t *testing.T) {
	e := newTestEnv(t)
	h := newAuthHandler(e)
	const secret = "JBSWY3DPEHPK3PXP"
	e.users.SetPendingTOTP(e.user.ID, secret)
	e.users.EnableTOTP(e.user.ID)
	if err := e.users.ReplaceRecoveryCodes(e.user.ID, []string{"abcde-fghjk"}); err != nil {
		t.Fatal(err)
	}

	rec := postLogin(h, url.Values{"username": {"clerk"}, "password": {"correct horse"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing code: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	code, _ := totp.GenerateCode(secret, time.Now())
	rec = postLogin(h, url.Values{"username": {"clerk"}, "password": {"correct horse"}, "code": {code}})
	if rec.Code != http.StatusSeeOther {
		t.Errorf("totp code: status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	rec = postLogin(h, url.Values{"username": {"clerk"}, "password": {"correct horse"}, "code": {"abcde-fghjk"}})
	if rec.Code != http.StatusSeeOther {
		t.Errorf("recovery code: status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	rec = postLogin(h, url.Values{"username": {"clerk"}, "password": {"correct horse"}, "code": {"abcde-fghjk"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused recovery code: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogoutDropsPage(t *testing.T) {
	e := newTestEnv(t)
	h := newAuthHandler(e)
	e.page()

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: e.session.Token})
	rec := serve(h.Logout, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if e.pages.Len() != 0 {
		t.Errorf("pages = %d, want 0", e.pages.Len())
	}
	if sess, _ := e.sessions.GetByToken(e.session.Token); sess != nil {
		t.Error("session should be deleted")
	}
}
