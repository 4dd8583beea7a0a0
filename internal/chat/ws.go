package chat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/metrics"
)

// Close code sent when a handshake fails authentication.
const closeCodeAuthError = 4401

// NewUpgrader builds the WebSocket upgrader. An empty origin list or a "*"
// entry allows every origin; otherwise the Origin header must match.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}
}

// ServeWS upgrades the connection and drives its lifecycle:
// Connecting -> Authenticated -> Active -> Closed. The first frame must be a
// handshake carrying a valid token; anything else closes the connection
// without ever registering a Session.
func (h *Hub) ServeWS(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		metrics.ConnectionsTotal.Inc()

		claims, ok := h.authenticate(conn)
		if !ok {
			metrics.AuthFailures.Inc()
			rejectConn(conn)
			return
		}

		s := newSession(h, conn, claims.UserID, claims.Username)

		// Registration and the Active transition are atomic: the presence
		// broadcast inside register already counts this session.
		h.register(s)
		go s.writePump()

		// History goes to this session only, before any of its own sends
		// are processed.
		h.sendHistory(r.Context(), s)

		s.readPump(r.Context())
	}
}

// authenticate runs the Connecting state: read one handshake frame within
// the deadline and verify its token.
func (h *Hub) authenticate(conn *websocket.Conn) (*auth.Claims, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(hsReadTimeout))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event != EventHandshake {
		return nil, false
	}

	var hs HandshakePayload
	if err := json.Unmarshal(frame.Data, &hs); err != nil || hs.Token == "" {
		return nil, false
	}

	claims, err := h.verifier.VerifyToken(hs.Token)
	if err != nil {
		return nil, false
	}

	return claims, true
}

// rejectConn reports an authentication failure to the peer and closes the
// transport. No Session is ever created on this path.
func rejectConn(conn *websocket.Conn) {
	payload, err := encodeFrame(EventError, ErrorPayload{Message: "Authentication error"})
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCodeAuthError, "authentication error"),
		time.Now().Add(writeWait))
	_ = conn.Close()
}
