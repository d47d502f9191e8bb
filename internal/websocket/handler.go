package websocket

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/ministryx/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and attaches the
// connection to hub under the caller's login session.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Lift the server's per-request deadlines; the connection is long lived.
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		ac, _ := auth.FromContext(r.Context())
		NewClient(hub, conn, ac.SessionID).Run(r.Context())
	}
}
