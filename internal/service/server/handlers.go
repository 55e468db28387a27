package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/service/payment"
	"wallet_chat/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type (
	walletRequest struct {
		Wallet    string `json:"wallet"`
		Signature string `json:"signature,omitempty"`
		PubKey    string `json:"pubKey,omitempty"`
	}

	sendRequest struct {
		From           string `json:"from"`
		To             string `json:"to"`
		ConversationID string `json:"conversationId"`
		Content        string `json:"content"`
		IpfsHash       string `json:"ipfsHash,omitempty"`
	}

	readRequest struct {
		ConversationID string `json:"conversationId"`
		Wallet         string `json:"wallet"`
	}

	blobBody struct {
		CiphertextBase64 string `json:"ciphertextBase64"`
	}

	payRequest struct {
		WalletID string `json:"walletId"`
		TxHash   string `json:"txHash,omitempty"`
	}
)

func (s *HttpServer) RequestNonce() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req walletRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "request nonce", err)
			return
		}
		if strings.TrimSpace(req.Wallet) == "" {
			writeError(w, "request nonce", appErrors.MissingField("wallet"))
			return
		}

		nonce, err := s.svc.Auth.RequestChallenge(r.Context(), req.Wallet)
		if err != nil {
			writeError(w, "request nonce", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
	}
}

func (s *HttpServer) VerifySignature() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req walletRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "verify signature", err)
			return
		}
		if strings.TrimSpace(req.Wallet) == "" {
			writeError(w, "verify signature", appErrors.MissingField("wallet"))
			return
		}
		if req.Signature == "" {
			writeError(w, "verify signature", appErrors.MissingField("signature"))
			return
		}

		cred, err := s.svc.Auth.VerifyChallenge(r.Context(), req.Wallet, req.Signature)
		if err != nil {
			writeError(w, "verify signature", err)
			return
		}
		log.Info("wallet signed in", zap.String("wallet", cred.Identity))
		writeJSON(w, http.StatusOK, cred)
	}
}

func (s *HttpServer) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, "me", appErrors.ErrInvalidToken)
			return
		}

		cred, err := s.svc.Auth.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, "me", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"wallet":    cred.Identity,
			"expiresAt": cred.ExpiresAt,
		})
	}
}

func (s *HttpServer) RegisterPublicKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req walletRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "register public key", err)
			return
		}

		if err := s.svc.Keys.RegisterPublicKey(r.Context(), req.Wallet, req.PubKey); err != nil {
			writeError(w, "register public key", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *HttpServer) GetPublicKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := mux.Vars(r)["wallet"]

		pub, err := s.svc.Keys.LookupPublicKey(r.Context(), wallet)
		if err != nil {
			writeError(w, "get public key", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"pubKey": pub})
	}
}

func (s *HttpServer) SendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "send message", err)
			return
		}

		m, err := s.deliver(r.Context(), &req)
		if err != nil {
			writeError(w, "send message", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": m})
	}
}

// deliver is the single write path for HTTP and websocket senders: the
// message is stored first, then pushed.
func (s *HttpServer) deliver(ctx context.Context, req *sendRequest) (*model.Message, error) {
	if req.ConversationID != "" && req.From != "" && req.To != "" &&
		!strings.EqualFold(req.ConversationID, model.ConversationID(req.From, req.To)) {
		return nil, appErrors.InvalidArg("conversationId does not match participants")
	}

	m, err := s.svc.Chat.AppendMessage(ctx, req.From, req.To, req.Content, req.IpfsHash)
	if err != nil {
		return nil, err
	}
	s.svc.Hub.Notify(m)
	return m, nil
}

func (s *HttpServer) GetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cid := mux.Vars(r)["conversationId"]

		msgs, err := s.svc.Chat.GetConversation(r.Context(), cid, r.URL.Query().Get("wallet"))
		if err != nil {
			writeError(w, "get conversation", err)
			return
		}
		if msgs == nil {
			msgs = []*model.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func (s *HttpServer) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req readRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "mark read", err)
			return
		}

		n, err := s.svc.Chat.MarkRead(r.Context(), req.ConversationID, req.Wallet)
		if err != nil {
			writeError(w, "mark read", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
	}
}

func (s *HttpServer) ListContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := mux.Vars(r)["wallet"]

		contacts, err := s.svc.Chat.ListContacts(r.Context(), wallet)
		if err != nil {
			writeError(w, "list contacts", err)
			return
		}
		if contacts == nil {
			contacts = []*model.ContactSummary{}
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func (s *HttpServer) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req blobBody
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "upload", err)
			return
		}
		if req.CiphertextBase64 == "" {
			writeError(w, "upload", appErrors.MissingField("ciphertextBase64"))
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.CiphertextBase64)
		if err != nil {
			writeError(w, "upload", appErrors.Wrap(appErrors.CodeInvalidArgument, "ciphertextBase64 is not base64", err))
			return
		}

		ref, err := s.svc.Blobs.Put(r.Context(), data)
		if err != nil {
			writeError(w, "upload", appErrors.ErrTransport("store content", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ipfsHash": ref})
	}
}

func (s *HttpServer) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := mux.Vars(r)["ipfsHash"]

		data, err := s.svc.Blobs.Get(r.Context(), ref)
		if err != nil {
			writeError(w, "download", appErrors.ErrTransport("load content", err))
			return
		}
		if data == nil {
			writeError(w, "download", appErrors.ErrBlobNotFound)
			return
		}
		writeJSON(w, http.StatusOK, &blobBody{CiphertextBase64: base64.StdEncoding.EncodeToString(data)})
	}
}

func (s *HttpServer) SessionStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID := mux.Vars(r)["walletId"]

		status, err := s.svc.Auth.IsSessionActive(r.Context(), walletID)
		if err != nil {
			writeError(w, "session status", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func (s *HttpServer) PayHourly() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req payRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "pay hourly", err)
			return
		}
		if strings.TrimSpace(req.WalletID) == "" {
			writeError(w, "pay hourly", appErrors.MissingField("walletId"))
			return
		}

		expiresAt, err := s.svc.Payments.ConfirmAndExtend(r.Context(), req.WalletID, &payment.Proof{
			TxHash:   req.TxHash,
			WalletID: req.WalletID,
		})
		if err != nil {
			writeError(w, "pay hourly", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "newExpiry": expiresAt.UnixMilli()})
	}
}
