package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/dukerupert/ministryx/internal/island"
	"github.com/dukerupert/ministryx/internal/middleware"
	"github.com/dukerupert/ministryx/internal/model"
	"github.com/dukerupert/ministryx/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	pages        *island.Sessions
	sessionTTL   time.Duration
	templates    *template.Template
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, pages *island.Sessions, sessionTTL time.Duration, tmpl *template.Template, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		pages:        pages,
		sessionTTL:   sessionTTL,
		templates:    tmpl,
		logger:       logger.With("component", "auth"),
	}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, http.StatusOK, "", "")
}

// Login checks the password and, for users with two-factor on, a TOTP or
// recovery code, then starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.renderLogin(w, http.StatusBadRequest, username, "Username and password are required")
		return
	}

	user, err := h.userStore.Authenticate(username, password)
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		h.logger.Info("login failed", "username", username, "remote", middleware.RealIP(r))
		h.renderLogin(w, http.StatusUnauthorized, username, "Wrong username or password")
		return
	}

	if user.TOTPEnabled {
		ok, err := h.checkSecondFactor(user, strings.TrimSpace(r.FormValue("code")))
		if err != nil {
			h.logger.Error("check second factor", "user_id", user.ID, "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			h.renderLogin(w, http.StatusUnauthorized, username, "A valid authentication code is required")
			return
		}
	}

	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	h.logger.Info("login", "user_id", user.ID, "session_id", sess.ID)
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

func (h *AuthHandler) checkSecondFactor(user *model.User, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	if totp.Validate(code, user.TOTPSecret) {
		return true, nil
	}
	return h.userStore.UseRecoveryCode(user.ID, code)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		sess, err := h.sessionStore.GetByToken(cookie.Value)
		if err != nil {
			h.logger.Error("logout lookup", "error", err)
		}
		if sess != nil {
			h.pages.Drop(sess.ID)
		}
		if err := h.sessionStore.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, status int, username, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "login.html", map[string]any{
		"Username": username,
		"Error":    errMsg,
	}); err != nil {
		h.logger.Error("render login", "error", err)
	}
}
