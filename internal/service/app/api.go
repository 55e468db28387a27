package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"

	"github.com/gorilla/websocket"
)

type (
	// API is a thin client for the chat server's HTTP and websocket surface.
	API struct {
		baseURL    *url.URL
		httpClient *http.Client
		token      string
	}

	sendBody struct {
		From           string `json:"from"`
		To             string `json:"to"`
		ConversationID string `json:"conversationId"`
		Content        string `json:"content"`
		IpfsHash       string `json:"ipfsHash,omitempty"`
	}
)

func NewAPI(serverURL string) (*API, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, err
	}
	return &API{
		baseURL:    u,
		httpClient: &http.Client{},
	}, nil
}

func (a *API) SetToken(token string) {
	a.token = token
}

func (a *API) Nonce(ctx context.Context, wallet string) (string, error) {
	var out struct {
		Nonce string `json:"nonce"`
	}
	err := a.do(ctx, http.MethodPost, "/auth/nonce", map[string]string{"wallet": wallet}, &out)
	return out.Nonce, err
}

func (a *API) Verify(ctx context.Context, wallet, sig string) (*model.Credential, error) {
	var cred model.Credential
	if err := a.do(ctx, http.MethodPost, "/auth/verify", map[string]string{"wallet": wallet, "signature": sig}, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (a *API) RegisterPublicKey(ctx context.Context, wallet, pubKey string) error {
	return a.do(ctx, http.MethodPost, "/profile/publicKey", map[string]string{"wallet": wallet, "pubKey": pubKey}, nil)
}

// PublicKey returns ErrPublicKeyNotFound when wallet has never onboarded.
func (a *API) PublicKey(ctx context.Context, wallet string) (string, error) {
	var out struct {
		PubKey string `json:"pubKey"`
	}
	err := a.do(ctx, http.MethodGet, "/profile/"+url.PathEscape(wallet)+"/publicKey", nil, &out)
	if appErrors.CodeOf(err) == appErrors.CodeNotFound {
		return "", appErrors.ErrPublicKeyNotFound
	}
	return out.PubKey, err
}

func (a *API) Upload(ctx context.Context, ciphertextBase64 string) (string, error) {
	var out struct {
		IpfsHash string `json:"ipfsHash"`
	}
	err := a.do(ctx, http.MethodPost, "/messages/upload", map[string]string{"ciphertextBase64": ciphertextBase64}, &out)
	return out.IpfsHash, err
}

// Download resolves a content reference to its base64 ciphertext.
func (a *API) Download(ctx context.Context, ipfsHash string) (string, error) {
	var out struct {
		CiphertextBase64 string `json:"ciphertextBase64"`
	}
	err := a.do(ctx, http.MethodGet, "/messages/upload/"+url.PathEscape(ipfsHash), nil, &out)
	return out.CiphertextBase64, err
}

func (a *API) Send(ctx context.Context, from, to, content, ipfsHash string) (*model.Message, error) {
	var out struct {
		Message *model.Message `json:"message"`
	}
	body := &sendBody{
		From:           from,
		To:             to,
		ConversationID: model.ConversationID(from, to),
		Content:        content,
		IpfsHash:       ipfsHash,
	}
	if err := a.do(ctx, http.MethodPost, "/messages/send", body, &out); err != nil {
		return nil, err
	}
	return out.Message, nil
}

func (a *API) Conversation(ctx context.Context, conversationID, wallet string) ([]*model.Message, error) {
	path := "/messages/" + url.PathEscape(conversationID) + "?wallet=" + url.QueryEscape(wallet)
	var msgs []*model.Message
	err := a.do(ctx, http.MethodGet, path, nil, &msgs)
	return msgs, err
}

func (a *API) MarkRead(ctx context.Context, conversationID, wallet string) error {
	return a.do(ctx, http.MethodPost, "/messages/read", map[string]string{"conversationId": conversationID, "wallet": wallet}, nil)
}

func (a *API) Contacts(ctx context.Context, wallet string) ([]*model.ContactSummary, error) {
	var contacts []*model.ContactSummary
	err := a.do(ctx, http.MethodGet, "/user/"+url.PathEscape(wallet)+"/conversations", nil, &contacts)
	return contacts, err
}

func (a *API) Session(ctx context.Context, walletRef string) (*model.SessionStatus, error) {
	var status model.SessionStatus
	if err := a.do(ctx, http.MethodGet, "/session/"+url.PathEscape(walletRef), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PayHourly returns the new session expiry in unix millis.
func (a *API) PayHourly(ctx context.Context, walletID, txHash string) (int64, error) {
	var out struct {
		NewExpiry int64 `json:"newExpiry"`
	}
	body := map[string]string{"walletId": walletID}
	if txHash != "" {
		body["txHash"] = txHash
	}
	err := a.do(ctx, http.MethodPost, "/payment/pay-hourly", body, &out)
	return out.NewExpiry, err
}

// DialRealtime opens the push channel already joined to wallet's room.
func (a *API) DialRealtime(ctx context.Context, wallet string) (*websocket.Conn, error) {
	u := *a.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"wallet": []string{wallet}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, appErrors.ErrTransport("dial realtime", err)
	}
	return conn, nil
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return appErrors.ErrTransport(method+" "+path, err)
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return statusError(resp.StatusCode, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErrors.ErrTransport("decode "+path, err)
	}
	return nil
}

func statusError(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest:
		return appErrors.InvalidArg(msg)
	case http.StatusUnauthorized:
		return appErrors.Unauthorized(msg)
	case http.StatusNotFound:
		return appErrors.NotFound(msg)
	case http.StatusServiceUnavailable:
		return appErrors.Unavailable(msg)
	default:
		return appErrors.New(appErrors.CodeInternal, fmt.Sprintf("server returned %d: %s", status, msg))
	}
}
