package chat

import "encoding/json"

// Wire protocol events. Frames are JSON objects {"event": ..., "data": ...}
// exchanged over the WebSocket in both directions.
const (
	EventHandshake    = "handshake"     // C->S, carries the token
	EventLoadMessages = "load_messages" // S->C, history on entering Active
	EventChatMessage  = "chat_message"  // both directions
	EventActiveUsers  = "active_users"  // S->C, presence count
	EventTyping       = "typing"        // C->S and relayed S->C
	EventGroupUpdate  = "group_update"  // both directions
	EventThemeUpdate  = "theme_update"  // S->C
	EventError        = "error"         // S->C, sender-only
)

// Frame is the envelope for every protocol event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// HandshakePayload carries the bearer token on connect.
type HandshakePayload struct {
	Token string `json:"token"`
}

// ChatMessagePayload is the client's inbound send request.
type ChatMessagePayload struct {
	Kind string `json:"kind,omitempty"` // defaults to "text"
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// GroupUpdatePayload mutates one field of the group metadata.
type GroupUpdatePayload struct {
	Field string `json:"field"` // "name" or "icon"
	Value string `json:"value"`
}

// TypingPayload is the relayed typing indicator.
type TypingPayload struct {
	Username string `json:"username,omitempty"` // set by the server on relay
	Typing   bool   `json:"typing"`
}

// ThemeUpdatePayload announces a background theme change.
type ThemeUpdatePayload struct {
	Path string `json:"path"`
}

// ErrorPayload is delivered to the offending sender only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encodeFrame marshals an event and its payload into a wire frame.
func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
