package handler

import (
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"

	"github.com/dukerupert/ministryx/internal/auth"
	"github.com/dukerupert/ministryx/internal/island"
	"github.com/dukerupert/ministryx/internal/store"
)

const (
	recoveryCodeCount = 10
	recoveryAlphabet  = "abcdefghjkmnpqrstuvwxyz23456789"
)

type TwoFactorHandler struct {
	users  *store.UserStore
	pages  *island.Sessions
	views  *Views
	logger *slog.Logger
}

func NewTwoFactorHandler(us *store.UserStore, pages *island.Sessions, views *Views, logger *slog.Logger) *TwoFactorHandler {
	return &TwoFactorHandler{users: us, pages: pages, views: views, logger: logger.With("component", "two_factor")}
}

// ConfirmEnrollment checks a code against the pending secret. On success it
// enables two-factor, issues fresh recovery codes and closes the
// enrollment island.
func (h *TwoFactorHandler) ConfirmEnrollment(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.users.GetByID(ac.UserID)
	if err != nil {
		h.logger.Error("get user", "user_id", ac.UserID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if user == nil || user.TOTPSecret == "" || user.TOTPEnabled {
		http.Error(w, "No enrollment in progress", http.StatusConflict)
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	if !totp.Validate(code, user.TOTPSecret) {
		http.Error(w, "Invalid code", http.StatusUnprocessableEntity)
		return
	}

	codes, err := newRecoveryCodes(recoveryCodeCount)
	if err != nil {
		h.logger.Error("generate recovery codes", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if err := h.users.ReplaceRecoveryCodes(user.ID, codes); err != nil {
		h.logger.Error("store recovery codes", "user_id", user.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if err := h.users.EnableTOTP(user.ID); err != nil {
		h.logger.Error("enable totp", "user_id", user.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("two-factor enabled", "user_id", user.ID)

	// The island may already be gone if the page was reloaded; the
	// enrollment itself has succeeded either way.
	if err := h.pages.Page(ac.SessionID).Close(island.TwoFactorEnrollment); err != nil {
		h.logger.Warn("close enrollment island", "error", err)
	}

	html, err := h.views.fragment("recovery-codes", codes)
	if err != nil {
		h.logger.Error("render recovery codes", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

// Disable turns two-factor off after re-checking the password.
func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.users.Authenticate(ac.Username, r.FormValue("password"))
	if err != nil {
		h.logger.Error("authenticate", "user_id", ac.UserID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "Wrong password", http.StatusForbidden)
		return
	}

	if err := h.users.DisableTOTP(user.ID); err != nil {
		h.logger.Error("disable totp", "user_id", user.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("two-factor disabled", "user_id", user.ID)
	http.Redirect(w, r, "/security", http.StatusSeeOther)
}

// newRecoveryCodes returns n codes shaped "xxxxx-xxxxx".
func newRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := range codes {
		var b strings.Builder
		for j := range 10 {
			if j == 5 {
				b.WriteByte('-')
			}
			c, err := randomRecoveryChar(rand.Reader)
			if err != nil {
				return nil, err
			}
			b.WriteByte(c)
		}
		codes[i] = b.String()
	}
	return codes, nil
}

// randomRecoveryChar draws uniformly from recoveryAlphabet. Bytes at or
// above the largest multiple of the alphabet size are redrawn.
func randomRecoveryChar(r io.Reader) (byte, error) {
	limit := 256 - 256%len(recoveryAlphabet)
	var buf [1]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		if int(buf[0]) < limit {
			return recoveryAlphabet[int(buf[0])%len(recoveryAlphabet)], nil
		}
	}
}
