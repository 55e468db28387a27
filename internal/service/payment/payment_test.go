package payment

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wallet_chat/internal/config"
	appErrors "wallet_chat/internal/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validHash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"

type (
	fakeExtender struct {
		mu    sync.Mutex
		calls []time.Duration
		now   time.Time
	}

	validatorFunc func(ctx context.Context, walletRef string, proof *Proof) error

	fakeReceipts map[common.Hash]*types.Receipt
)

func (f validatorFunc) Validate(ctx context.Context, walletRef string, proof *Proof) error {
	return f(ctx, walletRef, proof)
}

func (f *fakeExtender) ExtendSession(_ context.Context, _ string, grant time.Duration) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, grant)
	return f.now.Add(grant), nil
}

func (f *fakeExtender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func (f fakeReceipts) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	r, ok := f[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func TestGateway_ConfirmAndExtend(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("accepted proof extends by grant", func(t *testing.T) {
		ext := &fakeExtender{now: now}
		g := NewGateway(FormatValidator{}, ext, time.Hour, time.Second)

		expiresAt, err := g.ConfirmAndExtend(context.Background(), "wallet-1", &Proof{TxHash: validHash})
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), expiresAt)
		assert.Equal(t, []time.Duration{time.Hour}, ext.calls)
	})

	t.Run("rejected proof never extends", func(t *testing.T) {
		ext := &fakeExtender{now: now}
		g := NewGateway(FormatValidator{}, ext, time.Hour, time.Second)

		_, err := g.ConfirmAndExtend(context.Background(), "wallet-1", &Proof{TxHash: "0x1234"})
		require.Error(t, err)
		assert.Equal(t, appErrors.CodePaymentFailed, appErrors.CodeOf(err))
		assert.Zero(t, ext.count())
	})

	t.Run("timeout fails without extending", func(t *testing.T) {
		ext := &fakeExtender{now: now}
		block := make(chan struct{})
		defer close(block)
		slow := validatorFunc(func(context.Context, string, *Proof) error {
			<-block
			return nil
		})
		g := NewGateway(slow, ext, time.Hour, 20*time.Millisecond)

		_, err := g.ConfirmAndExtend(context.Background(), "wallet-1", &Proof{WalletID: "w"})
		require.Error(t, err)
		assert.Equal(t, appErrors.CodePaymentFailed, appErrors.CodeOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Zero(t, ext.count())
	})

	t.Run("malformed wallet is never charged", func(t *testing.T) {
		ext := &fakeExtender{now: now}
		charged := 0
		counting := validatorFunc(func(context.Context, string, *Proof) error {
			charged++
			return nil
		})
		g := NewGateway(counting, ext, time.Hour, time.Second)

		for _, ref := range []string{"wallet 1", "a:b", " "} {
			_, err := g.ConfirmAndExtend(context.Background(), ref, &Proof{WalletID: ref})
			assert.Error(t, err, "ref %q", ref)
		}
		assert.Zero(t, charged)
		assert.Zero(t, ext.count())
	})

	t.Run("missing wallet", func(t *testing.T) {
		ext := &fakeExtender{now: now}
		g := NewGateway(FormatValidator{}, ext, time.Hour, time.Second)

		_, err := g.ConfirmAndExtend(context.Background(), "", &Proof{TxHash: validHash})
		assert.ErrorIs(t, err, appErrors.ErrMissingField)
	})
}

func TestChainValidator(t *testing.T) {
	ok := common.HexToHash(validHash)
	reverted := common.HexToHash("0x01")
	v := NewChainValidator(fakeReceipts{
		ok:       {Status: types.ReceiptStatusSuccessful},
		reverted: {Status: types.ReceiptStatusFailed},
	})

	tests := []struct {
		name    string
		hash    string
		wantErr bool
	}{
		{name: "mined", hash: validHash},
		{name: "reverted", hash: reverted.Hex(), wantErr: true},
		{name: "unknown", hash: common.HexToHash("0x02").Hex(), wantErr: true},
		{name: "malformed", hash: "0xzz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), "w", &Proof{TxHash: tt.hash})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	accept := validatorFunc(func(context.Context, string, *Proof) error { return nil })

	t.Run("tx hash without receipt validator", func(t *testing.T) {
		r := &Router{TrustClientProof: true}
		assert.ErrorIs(t, r.Validate(ctx, "w", &Proof{TxHash: validHash}), errNoReceiptChecker)
	})

	t.Run("tx hash uses receipt validator", func(t *testing.T) {
		r := &Router{Receipts: FormatValidator{}}
		assert.NoError(t, r.Validate(ctx, "w", &Proof{TxHash: validHash}))
	})

	t.Run("wallet uses custodial", func(t *testing.T) {
		called := false
		r := &Router{Custodial: validatorFunc(func(context.Context, string, *Proof) error {
			called = true
			return nil
		})}
		assert.NoError(t, r.Validate(ctx, "w", &Proof{WalletID: "w"}))
		assert.True(t, called)
	})

	t.Run("wallet without custodial", func(t *testing.T) {
		r := &Router{Receipts: accept}
		assert.ErrorIs(t, r.Validate(ctx, "w", &Proof{}), errNoCustodialClient)
	})

	t.Run("trusted wallet", func(t *testing.T) {
		r := &Router{TrustClientProof: true}
		assert.NoError(t, r.Validate(ctx, "w", &Proof{}))
	})

	t.Run("empty proof", func(t *testing.T) {
		r := &Router{TrustClientProof: true}
		assert.ErrorIs(t, r.Validate(ctx, "", &Proof{}), errMissingProof)
	})
}

func newCustodialServer(t *testing.T, state string) (*httptest.Server, *rsa.PrivateKey, chan *TransferRequest) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	transfers := make(chan *TransferRequest, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/config/entity/publicKey", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"publicKey": string(pubPEM)}})
	})
	mux.HandleFunc("/developer/transactions/transfer", func(w http.ResponseWriter, r *http.Request) {
		var req TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		transfers <- &req
		json.NewEncoder(w).Encode(map[string]any{"data": Transfer{ID: "tx-1", State: state}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, key, transfers
}

func TestCustodialValidator(t *testing.T) {
	const secretHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	t.Run("executes fee transfer", func(t *testing.T) {
		srv, key, transfers := newCustodialServer(t, "INITIATED")
		v, err := NewCustodialValidator(customCfg(srv.URL, secretHex))
		require.NoError(t, err)

		require.NoError(t, v.Validate(context.Background(), "wallet-ref", &Proof{WalletID: "wallet-1"}))

		req := <-transfers
		assert.Equal(t, "wallet-1", req.WalletID)
		assert.Equal(t, "token-1", req.TokenID)
		assert.Equal(t, "0xdest", req.DestinationAddress)
		assert.Equal(t, []string{"0.01"}, req.Amounts)
		assert.NotEmpty(t, req.IdempotencyKey)

		ct, err := base64.StdEncoding.DecodeString(req.EntitySecretCiphertext)
		require.NoError(t, err)
		plain, err := rsa.DecryptOAEP(sha256.New(), nil, key, ct, nil)
		require.NoError(t, err)
		assert.Equal(t, secretHex, hex.EncodeToString(plain))
	})

	t.Run("falls back to wallet ref", func(t *testing.T) {
		srv, _, transfers := newCustodialServer(t, "COMPLETE")
		v, err := NewCustodialValidator(customCfg(srv.URL, secretHex))
		require.NoError(t, err)

		require.NoError(t, v.Validate(context.Background(), "wallet-ref", &Proof{}))
		assert.Equal(t, "wallet-ref", (<-transfers).WalletID)
	})

	t.Run("failed transfer", func(t *testing.T) {
		srv, _, _ := newCustodialServer(t, "FAILED")
		v, err := NewCustodialValidator(customCfg(srv.URL, secretHex))
		require.NoError(t, err)

		assert.Error(t, v.Validate(context.Background(), "w", &Proof{WalletID: "w"}))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv, _, _ := newCustodialServer(t, "COMPLETE")
		cfg := customCfg(srv.URL, secretHex)
		cfg.APIKey = "wrong"
		v, err := NewCustodialValidator(cfg)
		require.NoError(t, err)

		assert.ErrorContains(t, v.Validate(context.Background(), "w", &Proof{WalletID: "w"}), "status 401")
	})

	t.Run("entity secret must be hex", func(t *testing.T) {
		_, err := NewCustodialValidator(customCfg("http://unused", "not-hex"))
		assert.Error(t, err)
	})
}

func customCfg(baseURL, secretHex string) config.Custodial {
	return config.Custodial{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		EntitySecret: secretHex,
		TokenID:      "token-1",
		Destination:  "0xdest",
		Amount:       "0.01",
	}
}

