package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet_chat/internal/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	payloads chan json.RawMessage
}

func (r *recordingHandler) HandleInbound(_ *Client, payload json.RawMessage) {
	r.payloads <- payload
}

func newTestServer(t *testing.T, hub *Hub, handler InboundHandler) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, handler)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func join(t *testing.T, hub *Hub, conn *websocket.Conn, wallet string, wantSize int) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(&Frame{Event: EventJoin, Wallet: wallet}))
	require.Eventually(t, func() bool {
		return hub.RoomSize(wallet) == wantSize
	}, time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) *model.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, EventMessage, frame.Event)

	var m model.Message
	require.NoError(t, json.Unmarshal(frame.Payload, &m))
	return &m
}

func TestHub_Notify(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newTestServer(t, hub, nil)

	bob := dial(t, srv)
	join(t, hub, bob, "0xBBB", 1)
	alice := dial(t, srv)
	join(t, hub, alice, "0xaaa", 1)

	msg := &model.Message{
		ID:             "m1",
		ConversationID: "0xaaa:0xbbb",
		From:           "0xAAA",
		To:             "0xbbb",
		Content:        "hello",
		Timestamp:      1000,
	}
	hub.Notify(msg)

	t.Run("recipient receives push", func(t *testing.T) {
		got := readMessage(t, bob)
		assert.Equal(t, msg, got)
	})

	t.Run("sender room also receives push", func(t *testing.T) {
		got := readMessage(t, alice)
		assert.Equal(t, "m1", got.ID)
	})
}

func TestHub_MultipleConnectionsPerRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newTestServer(t, hub, nil)

	first := dial(t, srv)
	join(t, hub, first, "0xbbb", 1)
	second := dial(t, srv)
	join(t, hub, second, "0xBbB", 2)

	hub.Notify(&model.Message{ID: "m2", From: "0xaaa", To: "0xbbb"})

	assert.Equal(t, "m2", readMessage(t, first).ID)
	assert.Equal(t, "m2", readMessage(t, second).ID)
}

func TestHub_SelfMessageDeliveredOnce(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newTestServer(t, hub, nil)

	conn := dial(t, srv)
	join(t, hub, conn, "0xaaa", 1)

	hub.Notify(&model.Message{ID: "self", From: "0xaaa", To: "0xAAA"})
	hub.Notify(&model.Message{ID: "next", From: "0xaaa", To: "0xccc"})

	assert.Equal(t, "self", readMessage(t, conn).ID)
	assert.Equal(t, "next", readMessage(t, conn).ID)
}

func TestHub_NotifyWithoutListeners(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	assert.NotPanics(t, func() {
		hub.Notify(&model.Message{ID: "m", From: "0xaaa", To: "0xbbb"})
	})
}

func TestHub_DisconnectLeavesRoom(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newTestServer(t, hub, nil)

	conn := dial(t, srv)
	join(t, hub, conn, "0xbbb", 1)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return hub.RoomSize("0xbbb") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_InboundMessageFrame(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	handler := &recordingHandler{payloads: make(chan json.RawMessage, 1)}
	srv := newTestServer(t, hub, handler)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(&Frame{
		Event:   EventMessage,
		Payload: json.RawMessage(`{"from":"0xaaa","to":"0xbbb","content":"c"}`),
	}))

	select {
	case payload := <-handler.payloads:
		assert.JSONEq(t, `{"from":"0xaaa","to":"0xbbb","content":"c"}`, string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("inbound frame not delivered to handler")
	}
}

func TestHub_InvalidJoin(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	srv := newTestServer(t, hub, nil)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(&Frame{Event: EventJoin, Wallet: " "}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, EventError, frame.Event)
	assert.NotEmpty(t, frame.Error)
}
