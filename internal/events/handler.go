package events

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/fernhill/pennyjar/internal/auth"
)

// Handler returns an HTTP handler that upgrades connections to WebSocket and
// runs them as Hub clients for the caller's family. It must be mounted behind
// the auth middleware so the family is known.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, p.FamilyID)
		client.Run(r.Context())
	}
}
