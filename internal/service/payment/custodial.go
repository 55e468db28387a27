package payment

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"

	"wallet_chat/internal/config"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultCustodialURL = "https://api.circle.com/v1/w3s"

type (
	// CustodialClient talks to a developer-controlled wallet API. Every
	// mutating call carries a freshly encrypted entity secret and a new
	// idempotency key.
	CustodialClient struct {
		baseURL      string
		apiKey       string
		entitySecret []byte
		httpClient   *http.Client
		newKey       func() string
	}

	TransferRequest struct {
		WalletID               string   `json:"walletId"`
		TokenID                string   `json:"tokenId"`
		DestinationAddress     string   `json:"destinationAddress"`
		Amounts                []string `json:"amounts"`
		FeeLevel               string   `json:"feeLevel"`
		EntitySecretCiphertext string   `json:"entitySecretCiphertext"`
		IdempotencyKey         string   `json:"idempotencyKey"`
	}

	Transfer struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}

	// CustodialValidator charges the session fee from the proof's wallet.
	CustodialValidator struct {
		client      *CustodialClient
		tokenID     string
		destination string
		amount      string
	}
)

func NewCustodialClient(baseURL, apiKey, entitySecretHex string) (*CustodialClient, error) {
	secret, err := hex.DecodeString(entitySecretHex)
	if err != nil {
		return nil, errors.Wrap(err, "entity secret is not hex")
	}
	if baseURL == "" {
		baseURL = DefaultCustodialURL
	}
	return &CustodialClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		entitySecret: secret,
		httpClient:   &http.Client{},
		newKey:       uuid.NewString,
	}, nil
}

func NewCustodialValidator(cfg config.Custodial) (*CustodialValidator, error) {
	client, err := NewCustodialClient(cfg.BaseURL, cfg.APIKey, cfg.EntitySecret)
	if err != nil {
		return nil, err
	}
	return &CustodialValidator{
		client:      client,
		tokenID:     cfg.TokenID,
		destination: cfg.Destination,
		amount:      cfg.Amount,
	}, nil
}

func (v *CustodialValidator) Validate(ctx context.Context, walletRef string, proof *Proof) error {
	walletID := proof.WalletID
	if walletID == "" {
		walletID = walletRef
	}

	transfer, err := v.client.ExecuteTransfer(ctx, walletID, v.tokenID, v.destination, v.amount)
	if err != nil {
		return err
	}
	switch transfer.State {
	case "FAILED", "DENIED", "CANCELLED":
		return fmt.Errorf("transfer %s %s", transfer.ID, strings.ToLower(transfer.State))
	}
	return nil
}

// EntityPublicKey fetches the RSA key used to encrypt the entity secret.
func (c *CustodialClient) EntityPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	var out struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.do(ctx, http.MethodGet, "/config/entity/publicKey", nil, &out); err != nil {
		return nil, err
	}

	block, _ := pem.Decode([]byte(out.PublicKey))
	if block == nil {
		return nil, errors.New("entity public key is not PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse entity public key")
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("entity public key is not RSA")
	}
	return pub, nil
}

func (c *CustodialClient) entitySecretCiphertext(ctx context.Context) (string, error) {
	pub, err := c.EntityPublicKey(ctx)
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, c.entitySecret, nil)
	if err != nil {
		return "", errors.Wrap(err, "encrypt entity secret")
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (c *CustodialClient) ExecuteTransfer(ctx context.Context, walletID, tokenID, destination, amount string) (*Transfer, error) {
	ciphertext, err := c.entitySecretCiphertext(ctx)
	if err != nil {
		return nil, err
	}

	req := &TransferRequest{
		WalletID:               walletID,
		TokenID:                tokenID,
		DestinationAddress:     destination,
		Amounts:                []string{amount},
		FeeLevel:               "MEDIUM",
		EntitySecretCiphertext: ciphertext,
		IdempotencyKey:         c.newKey(),
	}

	var transfer Transfer
	if err := c.do(ctx, http.MethodPost, "/developer/transactions/transfer", req, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// do sends a JSON request and decodes the "data" member of the response.
func (c *CustodialClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "custodial: marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "custodial: new request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "custodial: "+path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "custodial: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("custodial: %s: status %d: %s", path, resp.StatusCode, respBody)
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return errors.Wrap(err, "custodial: unmarshal response")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Wrap(err, "custodial: unmarshal data")
	}
	return nil
}
