// Package huddle provides a client for the huddle group chat service.
package huddle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a huddle API client. Register or Login populate Token and
// Username; Connect then opens the realtime session.
type Client struct {
	BaseURL    string
	Token      string
	Username   string
	HTTPClient *http.Client
}

// NewClient creates a new huddle client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Error    string `json:"error"`
}

// Register creates an account and stores the issued token on the client.
func (c *Client) Register(email, username, password string) error {
	return c.authenticate("/api/register", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	})
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(email, password string) error {
	return c.authenticate("/api/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(path string, body map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", path, out.Error)
	}

	c.Token = out.Token
	c.Username = out.Username
	return nil
}

// Message mirrors the server's stored message shape.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp int64  `json:"ts"`
	Kind      string `json:"kind"`
	URL       string `json:"url,omitempty"`
}

// Frame is the realtime protocol envelope.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Session is an open realtime connection.
type Session struct {
	conn   *websocket.Conn
	frames chan Frame
	errs   chan error
}

// Connect opens the WebSocket, performs the handshake, and starts the read
// loop. The client must be authenticated first.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("not authenticated: call Register or Login first")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	s := &Session{
		conn:   conn,
		frames: make(chan Frame, 64),
		errs:   make(chan error, 1),
	}

	if err := s.send("handshake", map[string]string{"token": c.Token}); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// Frames returns the inbound event stream. The channel closes when the
// connection drops; Err then reports why.
func (s *Session) Frames() <-chan Frame {
	return s.frames
}

// Err returns the terminal read error after Frames closes, if any.
func (s *Session) Err() error {
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

func (s *Session) readLoop() {
	defer close(s.frames)
	for {
		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			select {
			case s.errs <- err:
			default:
			}
			return
		}
		s.frames <- frame
	}
}

func (s *Session) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(Frame{Event: event, Data: data})
}

// SendText sends a text chat message.
func (s *Session) SendText(text string) error {
	return s.send("chat_message", map[string]string{"kind": "text", "text": text})
}

// SendImage sends an image chat message referencing an uploaded URL.
func (s *Session) SendImage(imageURL, caption string) error {
	return s.send("chat_message", map[string]string{"kind": "image", "url": imageURL, "text": caption})
}

// SetTyping reports the typing state to other participants.
func (s *Session) SetTyping(typing bool) error {
	return s.send("typing", typing)
}

// UpdateGroup mutates one field of the shared group metadata.
func (s *Session) UpdateGroup(field, value string) error {
	return s.send("group_update", map[string]string{"field": field, "value": value})
}

// Close shuts the realtime connection down.
func (s *Session) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(5*time.Second))
	return s.conn.Close()
}
