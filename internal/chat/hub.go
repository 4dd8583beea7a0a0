// Package chat implements the realtime core: the session registry, the
// per-connection lifecycle, and the persist-then-fanout broadcast path.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/metrics"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/moderation"
	"github.com/huddlechat/huddle/internal/store"
)

// ErrUnknownGroupField is returned for a group_update naming a field that
// does not exist.
var ErrUnknownGroupField = errors.New("unknown group field")

const (
	// DefaultHistoryLimit bounds the history replay on connect.
	DefaultHistoryLimit = 150

	maxTextLength = 4096
)

// TokenVerifier validates a handshake token and returns the identity it
// binds. Implemented by *auth.Service.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Hub owns the session registry and the group metadata singleton. All
// registry mutations and broadcasts are serialized through its mutex, so a
// presence count always reflects the registry at the instant it is sent.
type Hub struct {
	logger       zerolog.Logger
	messages     store.MessageStore
	filter       *moderation.Filter
	verifier     TokenVerifier
	historyLimit int

	mu       sync.Mutex
	sessions map[*Session]struct{}
	group    models.Group

	// sendMu serializes persist-then-fanout so broadcast order always
	// matches persistence order and no observer sees a broadcast for a
	// message that is not yet durably stored.
	sendMu sync.Mutex
}

// NewHub creates a hub; historyLimit <= 0 falls back to DefaultHistoryLimit.
func NewHub(logger zerolog.Logger, messages store.MessageStore, filter *moderation.Filter, verifier TokenVerifier, historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Hub{
		logger:       logger,
		messages:     messages,
		filter:       filter,
		verifier:     verifier,
		historyLimit: historyLimit,
		sessions:     make(map[*Session]struct{}),
		group:        models.Group{Name: "Group Chat"},
	}
}

// LoadGroup restores persisted group metadata at startup, if any.
func (h *Hub) LoadGroup(ctx context.Context) error {
	g, err := h.messages.LoadGroup(ctx)
	if err != nil {
		return err
	}
	if g != nil {
		h.mu.Lock()
		h.group = *g
		h.mu.Unlock()
	}
	return nil
}

// register adds a session to the registry and broadcasts the new presence
// count in the same critical section, so the session is never live without
// being counted.
func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s] = struct{}{}
	metrics.ActiveSessions.Set(float64(len(h.sessions)))

	h.logger.Info().
		Str("username", s.username).
		Int("sessions", len(h.sessions)).
		Msg("session connected")

	h.broadcastPresenceLocked()
}

// unregister removes a session, closes its send channel, and broadcasts the
// updated presence count to the remaining sessions. Safe to call more than
// once per session.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		return
	}
	h.dropLocked(s)
	metrics.ActiveSessions.Set(float64(len(h.sessions)))

	h.logger.Info().
		Str("username", s.username).
		Int("sessions", len(h.sessions)).
		Msg("session disconnected")

	h.broadcastPresenceLocked()
}

// dropLocked removes a session from the registry and closes its send
// channel. Caller holds h.mu.
func (h *Hub) dropLocked(s *Session) {
	delete(h.sessions, s)
	s.closed = true
	close(s.send)
}

// Count returns the number of currently registered sessions. Presence is a
// count of sessions, not unique identities: one user on two devices counts
// twice.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// broadcastPresenceLocked sends the current registry size to every session.
// Caller holds h.mu; the count is computed inside the lock so it can never
// be stale relative to the mutation that triggered it.
func (h *Hub) broadcastPresenceLocked() {
	payload, err := encodeFrame(EventActiveUsers, len(h.sessions))
	if err != nil {
		return
	}
	h.broadcastLocked(payload, nil)
}

// broadcast delivers a payload to every registered session except the
// excluded one.
func (h *Hub) broadcast(payload []byte, except *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(payload, except)
}

// broadcastLocked fans a payload out to all registered sessions. A slow
// session with a full send buffer is dropped rather than allowed to stall
// delivery to the others; the drop triggers its own presence update.
// Caller holds h.mu.
func (h *Hub) broadcastLocked(payload []byte, except *Session) {
	var stalled []*Session

	for s := range h.sessions {
		if s == except || s.closed {
			continue
		}
		select {
		case s.send <- payload:
		default:
			stalled = append(stalled, s)
		}
	}

	if len(stalled) == 0 {
		return
	}

	for _, s := range stalled {
		h.logger.Warn().
			Str("username", s.username).
			Msg("session dropped: send buffer full")
		h.dropLocked(s)
		s.closeTransport()
	}
	metrics.ActiveSessions.Set(float64(len(h.sessions)))
	h.broadcastPresenceLocked()
}

// sendTo queues a payload for a single session.
func (h *Hub) sendTo(s *Session, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.send <- payload:
	default:
	}
}

// sendError delivers an error frame to the offending sender only.
func (h *Hub) sendError(s *Session, message string) {
	payload, err := encodeFrame(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	h.sendTo(s, payload)
}

// sendHistory replays the newest persisted messages, oldest first, to a
// session that just entered Active. Delivery is to this session only.
func (h *Hub) sendHistory(ctx context.Context, s *Session) {
	history, err := h.messages.Recent(ctx, h.historyLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load message history")
		h.sendError(s, "Error loading messages")
		return
	}

	payload, err := encodeFrame(EventLoadMessages, history)
	if err != nil {
		return
	}
	h.sendTo(s, payload)
}

// HandleChatMessage runs the full send flow for one inbound message:
// validate, filter, persist, then fan out. Rejections of any kind go back
// to the sender alone and leave the connection open.
func (h *Hub) HandleChatMessage(ctx context.Context, s *Session, in ChatMessagePayload) {
	kind := in.Kind
	if kind == "" {
		kind = models.KindText
	}

	if err := validateMessage(kind, in); err != "" {
		metrics.MessagesRejected.WithLabelValues("validation").Inc()
		h.sendError(s, err)
		return
	}

	if kind == models.KindText && h.filter.Classify(in.Text) {
		metrics.MessagesRejected.WithLabelValues("moderation").Inc()
		h.logger.Info().Str("username", s.username).Msg("message blocked by content filter")
		h.sendError(s, "Message contains inappropriate content")
		return
	}

	msg := &models.Message{
		Text:     in.Text,
		Username: s.username,
		Kind:     kind,
		URL:      in.URL,
	}

	// Persist, then broadcast, under one lock: the fanout order observed
	// by every session matches the order of the durable log.
	h.sendMu.Lock()
	if err := h.messages.Append(ctx, msg); err != nil {
		h.sendMu.Unlock()
		metrics.MessagesRejected.WithLabelValues("persistence").Inc()
		h.logger.Error().Err(err).Str("username", s.username).Msg("failed to store message")
		h.sendError(s, "Error sending message")
		return
	}

	payload, err := encodeFrame(EventChatMessage, msg)
	if err != nil {
		h.sendMu.Unlock()
		return
	}
	h.broadcast(payload, nil) // broadcast includes the sender
	h.sendMu.Unlock()

	metrics.MessagesSent.WithLabelValues(kind).Inc()
}

// validateMessage returns a user-facing validation message, or "" when the
// payload is well-formed for its kind.
func validateMessage(kind string, in ChatMessagePayload) string {
	switch kind {
	case models.KindText:
		if strings.TrimSpace(in.Text) == "" {
			return "Message text is required"
		}
		if len(in.Text) > maxTextLength {
			return "Message too long"
		}
	case models.KindImage:
		if in.URL == "" {
			return "Image messages require a url"
		}
	default:
		return "Unknown message kind"
	}
	return ""
}

// HandleTyping relays a typing indicator to every other session. Typing is
// ephemeral: never persisted, never echoed back to the sender.
func (h *Hub) HandleTyping(s *Session, typing bool) {
	payload, err := encodeFrame(EventTyping, TypingPayload{Username: s.username, Typing: typing})
	if err != nil {
		return
	}
	h.broadcast(payload, s)
}

// Group metadata fields accepted by UpdateGroup.
const (
	GroupFieldName = "name"
	GroupFieldIcon = "icon"
)

// UpdateGroup applies a last-write-wins mutation to the group metadata and
// broadcasts it verbatim to all sessions. The read-modify-broadcast sequence
// runs under the registry lock so concurrent updates cannot interleave.
func (h *Hub) UpdateGroup(ctx context.Context, field, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch field {
	case GroupFieldName:
		h.group.Name = value
	case GroupFieldIcon:
		h.group.IconURL = value
	default:
		return ErrUnknownGroupField
	}

	// Persistence is best effort; the broadcast is the source of truth for
	// connected clients.
	if err := h.messages.SaveGroup(ctx, &h.group); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist group metadata")
	}

	payload, err := encodeFrame(EventGroupUpdate, GroupUpdatePayload{Field: field, Value: value})
	if err != nil {
		return err
	}
	h.broadcastLocked(payload, nil)
	metrics.GroupUpdates.Inc()
	return nil
}

// SetTheme updates the shared background theme and broadcasts the new path.
func (h *Hub) SetTheme(ctx context.Context, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.group.BackgroundTheme = path
	if err := h.messages.SaveGroup(ctx, &h.group); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist group metadata")
	}

	payload, err := encodeFrame(EventThemeUpdate, ThemeUpdatePayload{Path: path})
	if err != nil {
		return
	}
	h.broadcastLocked(payload, nil)
}

// Group returns a snapshot of the current group metadata.
func (h *Hub) Group() models.Group {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.group
}

// Shutdown closes every connected session. In-flight registrations observe
// the closed transports and unwind through their normal cleanup paths.
func (h *Hub) Shutdown(timeout time.Duration) {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.closeTransport()
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if h.Count() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.logger.Warn().Int("sessions", h.Count()).Msg("hub shutdown timeout reached")
}
