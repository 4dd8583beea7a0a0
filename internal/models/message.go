package models

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

// Message represents a chat message stored in Redis.
type Message struct {
	ID        string `json:"id"`            // ULID
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp int64  `json:"ts"`            // Unix ms
	Kind      string `json:"kind"`          // "text" or "image"
	URL       string `json:"url,omitempty"` // Required for image messages
}
