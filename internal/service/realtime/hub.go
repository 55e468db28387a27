package realtime

import (
	"encoding/json"
	"strings"
	"sync"

	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventJoin    = "join"
	EventMessage = "message"
	EventError   = "error"
)

type (
	// Frame is the JSON envelope for every websocket message in both
	// directions.
	Frame struct {
		Event   string          `json:"event"`
		Wallet  string          `json:"wallet,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
		Error   string          `json:"error,omitempty"`
	}

	// InboundHandler receives "message" frames sent by a client.
	InboundHandler interface {
		HandleInbound(c *Client, payload json.RawMessage)
	}

	// Hub fans stored messages out to rooms keyed by lowercase identity. A
	// room may hold many connections. Delivery is best effort: a slow or
	// disconnected client misses the push and catches up by polling.
	Hub struct {
		mu      sync.RWMutex
		rooms   map[string]map[*Client]struct{}
		clients map[*Client]struct{}
		closed  bool
	}
)

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
}

// Serve registers conn and starts its read and write loops.
func (h *Hub) Serve(conn *websocket.Conn, handler InboundHandler) *Client {
	c := newClient(h, conn, handler)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return c
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()
	return c
}

// Join subscribes c to the room of identity.
func (h *Hub) Join(c *Client, identity string) error {
	id, err := model.NormalizeIdentity(identity)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return nil
	}
	room, ok := h.rooms[id]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[id] = room
	}
	room[c] = struct{}{}
	c.rooms[id] = struct{}{}

	log.Debug("client joined room", zap.String("wallet", id), zap.Int("size", len(room)))
	return nil
}

// Notify pushes m to every connection in the rooms of m.To and m.From.
// A connection present in both rooms receives it once.
func (h *Hub) Notify(m *model.Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		log.Error("marshal message for push failed", zap.Error(err))
		return
	}
	data, err := json.Marshal(&Frame{Event: EventMessage, Payload: payload})
	if err != nil {
		log.Error("marshal frame failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*Client]struct{})
	for _, identity := range []string{strings.ToLower(m.To), strings.ToLower(m.From)} {
		for c := range h.rooms[identity] {
			if _, ok := delivered[c]; ok {
				continue
			}
			delivered[c] = struct{}{}

			select {
			case c.send <- data:
			default:
				log.Warn("push dropped, client buffer full", zap.String("messageId", m.ID))
			}
		}
	}
}

func (h *Hub) RoomSize(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[strings.ToLower(identity)])
}

// Close disconnects every client; later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for id := range c.rooms {
		room := h.rooms[id]
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
	close(c.send)
}
