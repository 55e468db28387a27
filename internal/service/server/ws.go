package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/service/realtime"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

const inboundTimeout = 10 * time.Second

// HandleWS upgrades to a websocket. A wallet query parameter joins that
// room immediately; otherwise the client sends a join frame.
func (s *HttpServer) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", zap.Error(err))
			return
		}

		c := s.svc.Hub.Serve(conn, s)
		if wallet := r.URL.Query().Get("wallet"); wallet != "" {
			if err := c.Join(wallet); err != nil {
				c.SendError(err)
			}
		}
	}
}

// HandleInbound stores a message sent over the socket and pushes it through
// the hub, the same as POST /messages/send.
func (s *HttpServer) HandleInbound(c *realtime.Client, payload json.RawMessage) {
	var req sendRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError(appErrors.Wrap(appErrors.CodeInvalidArgument, "malformed message frame", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	if _, err := s.deliver(ctx, &req); err != nil {
		log.Debug("inbound message rejected", zap.Error(err))
		c.SendError(err)
	}
}
