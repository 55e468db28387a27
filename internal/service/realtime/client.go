package realtime

import (
	"encoding/json"
	"time"

	"wallet_chat/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	handler InboundHandler
	send    chan []byte

	// guarded by hub.mu
	rooms map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, handler InboundHandler) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		handler: handler,
		send:    make(chan []byte, sendBuffer),
		rooms:   make(map[string]struct{}),
	}
}

func (c *Client) Join(identity string) error {
	return c.hub.Join(c, identity)
}

// SendFrame queues f for this connection only. It never blocks.
func (c *Client) SendFrame(f *Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Error("marshal frame failed", zap.Error(err))
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn("frame dropped, client buffer full", zap.String("event", f.Event))
	}
}

func (c *Client) SendError(err error) {
	c.SendFrame(&Frame{Event: EventError, Error: err.Error()})
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug("web socket closed", zap.Error(err))
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Error("Unmarshal frame failed", zap.Error(err))
			c.SendError(err)
			continue
		}

		switch frame.Event {
		case EventJoin:
			if err := c.Join(frame.Wallet); err != nil {
				c.SendError(err)
			}
		case EventMessage:
			if c.handler != nil {
				c.handler.HandleInbound(c, frame.Payload)
			}
		default:
			log.Debug("unknown frame event", zap.String("event", frame.Event))
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("web socket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
