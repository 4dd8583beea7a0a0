package chat

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/moderation"
	"github.com/huddlechat/huddle/internal/store"
)

const wsTestSecret = "ws-test-secret"

func newWSServer(t *testing.T) (*Hub, *store.MemoryMessageStore, string) {
	t.Helper()

	messages := store.NewMemoryMessageStore()
	svc := auth.NewService(store.NewMemoryUserStore(), []byte(wsTestSecret))
	h := NewHub(zerolog.Nop(), messages, moderation.NewFilter([]string{"lol"}), svc, 150)

	srv := httptest.NewServer(h.ServeWS(NewUpgrader(nil)))
	t.Cleanup(srv.Close)

	return h, messages, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testToken(t *testing.T, username string) string {
	t.Helper()
	token, err := auth.GenerateToken("uid-"+username, username, username+"@example.com", []byte(wsTestSecret), auth.TokenTTL)
	require.NoError(t, err)
	return token
}

func dialAndHandshake(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	data, err := json.Marshal(HandshakePayload{Token: token})
	require.NoError(t, err)
	frame, err := json.Marshal(Frame{Event: EventHandshake, Data: data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	return conn
}

// readFrameOfType reads frames until one with the wanted event arrives.
func readFrameOfType(t *testing.T, conn *websocket.Conn, event string) Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q frame", event)

		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Event == event {
			return f
		}
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session count = %d, want %d", h.Count(), want)
}

func TestConnectReplaysHistoryThenGoesLive(t *testing.T) {
	h, messages, url := newWSServer(t)

	for _, text := range []string{"earlier", "later"} {
		require.NoError(t, messages.Append(context.Background(), &models.Message{
			Text: text, Username: "old", Kind: models.KindText,
		}))
	}

	conn := dialAndHandshake(t, url, testToken(t, "alice"))

	f := readFrameOfType(t, conn, EventLoadMessages)
	var history []models.Message
	require.NoError(t, json.Unmarshal(f.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "earlier", history[0].Text)
	assert.Equal(t, "later", history[1].Text)

	waitForCount(t, h, 1)
}

func TestInvalidHandshakeTokenNeverRegisters(t *testing.T) {
	h, _, url := newWSServer(t)

	conn := dialAndHandshake(t, url, "not-a-token")

	f := readFrameOfType(t, conn, EventError)
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &e))
	assert.Equal(t, "Authentication error", e.Message)

	// The close that follows carries the auth close code.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, closeCodeAuthError, closeErr.Code)

	assert.Equal(t, 0, h.Count())
}

func TestNonHandshakeFirstFrameIsRejected(t *testing.T) {
	h, _, url := newWSServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	data, _ := json.Marshal(ChatMessagePayload{Text: "sneaky"})
	frame, _ := json.Marshal(Frame{Event: EventChatMessage, Data: data})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	readFrameOfType(t, conn, EventError)
	assert.Equal(t, 0, h.Count())
}

func TestTwoClientsExchangeMessages(t *testing.T) {
	h, _, url := newWSServer(t)

	alice := dialAndHandshake(t, url, testToken(t, "alice"))
	readFrameOfType(t, alice, EventLoadMessages)

	bob := dialAndHandshake(t, url, testToken(t, "bob"))
	readFrameOfType(t, bob, EventLoadMessages)
	waitForCount(t, h, 2)

	// Alice sees the presence bump from bob's arrival.
	f := readFrameOfType(t, alice, EventActiveUsers)
	var count int
	require.NoError(t, json.Unmarshal(f.Data, &count))
	assert.Equal(t, 2, count)

	data, _ := json.Marshal(ChatMessagePayload{Kind: models.KindText, Text: "hi bob"})
	frame, _ := json.Marshal(Frame{Event: EventChatMessage, Data: data})
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, frame))

	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		f := readFrameOfType(t, conn, EventChatMessage)
		var msg models.Message
		require.NoError(t, json.Unmarshal(f.Data, &msg))
		assert.Equal(t, "hi bob", msg.Text, name)
		assert.Equal(t, "alice", msg.Username, name)
	}

	// Disconnect drops the count for the survivor.
	require.NoError(t, bob.Close())
	f = readFrameOfType(t, alice, EventActiveUsers)
	require.NoError(t, json.Unmarshal(f.Data, &count))
	assert.Equal(t, 1, count)
	waitForCount(t, h, 1)
}
