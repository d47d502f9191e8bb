// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/ministryx/internal/auth"
	"github.com/dukerupert/ministryx/internal/store"
)

// SessionCookieName names the cookie carrying the login session token.
const SessionCookieName = "ministryx_session"

// RequireAuth resolves the session cookie to a user and stores an
// AuthContext on the request. Unauthenticated htmx requests get an
// HX-Redirect header instead of a 303.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				redirectToLogin(w, r)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil {
				logger.Error("session lookup failed", "error", err)
			}
			if sess == nil {
				redirectToLogin(w, r)
				return
			}

			user, err := users.GetByID(sess.UserID)
			if err != nil {
				logger.Error("user lookup failed", "user_id", sess.UserID, "error", err)
			}
			if user == nil {
				redirectToLogin(w, r)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{
				UserID:      user.ID,
				Username:    user.Username,
				SessionID:   sess.ID,
				DefaultFYID: sess.DefaultFYID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
