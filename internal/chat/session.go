package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 64

	readLimit     = 64 * 1024
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second
	writeWait     = 10 * time.Second
	hsReadTimeout = 10 * time.Second

	// Per-connection inbound message budget.
	msgBurst          = 20
	msgRefillInterval = 10 * time.Second
)

// Session is one authenticated, live realtime connection bound to a single
// identity. An identity may hold several concurrent sessions (multi-device);
// each transport handle gets exactly one Session.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID      string
	username    string
	connectedAt time.Time

	limiter *rateLimiter

	// closed is guarded by hub.mu. Once true the send channel is closed
	// and the session will never be queued to again.
	closed bool
}

func newSession(h *Hub, conn *websocket.Conn, userID, username string) *Session {
	return &Session{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		userID:      userID,
		username:    username,
		connectedAt: time.Now(),
		limiter:     newRateLimiter(msgBurst, msgRefillInterval),
	}
}

// Username returns the identity bound to this session.
func (s *Session) Username() string { return s.username }

// closeTransport closes the underlying connection, unblocking the read pump.
func (s *Session) closeTransport() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// readPump consumes inbound frames for the life of the connection. Inbound
// events are processed in receipt order. On every exit path, normal or not,
// the session leaves the registry and a presence update goes out.
func (s *Session) readPump(ctx context.Context) {
	defer func() {
		s.hub.unregister(s)
		s.closeTransport()
	}()

	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.hub.logger.Debug().Err(err).Str("username", s.username).Msg("websocket read error")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.hub.sendError(s, "Malformed frame")
			continue
		}

		s.handleFrame(ctx, frame)
	}
}

// handleFrame dispatches one inbound event.
func (s *Session) handleFrame(ctx context.Context, frame Frame) {
	switch frame.Event {
	case EventChatMessage:
		if !s.limiter.allow() {
			s.hub.logger.Warn().Str("username", s.username).Msg("rate limit exceeded; discarding message")
			return
		}
		var in ChatMessagePayload
		if err := json.Unmarshal(frame.Data, &in); err != nil {
			s.hub.sendError(s, "Malformed message payload")
			return
		}
		s.hub.HandleChatMessage(ctx, s, in)

	case EventTyping:
		var typing bool
		if err := json.Unmarshal(frame.Data, &typing); err != nil {
			var p TypingPayload
			if err := json.Unmarshal(frame.Data, &p); err != nil {
				return
			}
			typing = p.Typing
		}
		s.hub.HandleTyping(s, typing)

	case EventGroupUpdate:
		var in GroupUpdatePayload
		if err := json.Unmarshal(frame.Data, &in); err != nil {
			s.hub.sendError(s, "Malformed group update")
			return
		}
		if err := s.hub.UpdateGroup(ctx, in.Field, in.Value); err != nil {
			s.hub.sendError(s, "Unknown group field")
		}

	default:
		// Unknown events are ignored; the connection stays open.
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. It exits when the send channel closes
// (unregister) or a write fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.closeTransport()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
