package payment

import (
	"context"
	"time"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

type (
	// Proof is the evidence a client submits for a fee payment. TxHash
	// references an on-chain transfer, WalletID a custodial wallet the
	// fee is charged from.
	Proof struct {
		TxHash   string `json:"txHash,omitempty"`
		WalletID string `json:"walletId,omitempty"`
	}

	Validator interface {
		Validate(ctx context.Context, walletRef string, proof *Proof) error
	}

	SessionExtender interface {
		ExtendSession(ctx context.Context, walletRef string, grant time.Duration) (time.Time, error)
	}

	Gateway struct {
		validator Validator
		sessions  SessionExtender
		grant     time.Duration
		timeout   time.Duration
	}
)

func NewGateway(validator Validator, sessions SessionExtender, grant, timeout time.Duration) *Gateway {
	return &Gateway{
		validator: validator,
		sessions:  sessions,
		grant:     grant,
		timeout:   timeout,
	}
}

// ConfirmAndExtend validates proof and, only when it is accepted, extends
// the session of walletRef by the configured grant.
func (g *Gateway) ConfirmAndExtend(ctx context.Context, walletRef string, proof *Proof) (time.Time, error) {
	if walletRef == "" {
		return time.Time{}, appErrors.MissingField("walletId")
	}
	// checked before validate, which may charge the wallet
	if _, err := model.NormalizeIdentity(walletRef); err != nil {
		return time.Time{}, err
	}
	if proof == nil {
		proof = &Proof{}
	}

	if err := g.validate(ctx, walletRef, proof); err != nil {
		log.Warn("payment proof rejected", zap.String("walletRef", walletRef), zap.Error(err))
		return time.Time{}, appErrors.ErrPaymentRejected(err)
	}

	expiresAt, err := g.sessions.ExtendSession(ctx, walletRef, g.grant)
	if err != nil {
		log.Error("extend session failed", zap.String("walletRef", walletRef), zap.Error(err))
		return time.Time{}, err
	}

	log.Info("payment confirmed", zap.String("walletRef", walletRef), zap.Time("expiresAt", expiresAt))
	return expiresAt, nil
}

// validate runs the validator under the gateway timeout. A validator that
// ignores its context is abandoned once the deadline passes.
func (g *Gateway) validate(ctx context.Context, walletRef string, proof *Proof) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- g.validator.Validate(ctx, walletRef, proof)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
