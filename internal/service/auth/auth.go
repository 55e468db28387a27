package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"wallet_chat/internal/cryptographic/signature"
	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

const nonceBytes = 16

type (
	ChallengeStore interface {
		Put(ctx context.Context, c *model.Challenge) error
		// Take removes and returns the live challenge, nil if there is none.
		Take(ctx context.Context, identity string) (*model.Challenge, error)
	}

	SessionStore interface {
		ExpiresAt(ctx context.Context, walletRef string) (time.Time, error)
		Extend(ctx context.Context, walletRef string, now time.Time, grant time.Duration) (time.Time, error)
	}

	// Service issues login challenges, exchanges signed challenges for
	// credentials and owns the paid-session expiry window.
	Service struct {
		challenges   ChallengeStore
		sessions     SessionStore
		tokens       *TokenIssuer
		challengeTTL time.Duration

		verify func(identity, message, sig string) bool
		now    func() time.Time
	}
)

// NewService builds the service. challengeTTL of zero keeps a challenge
// alive until it is overwritten or consumed.
func NewService(challenges ChallengeStore, sessions SessionStore, tokens *TokenIssuer, challengeTTL time.Duration) *Service {
	return &Service{
		challenges:   challenges,
		sessions:     sessions,
		tokens:       tokens,
		challengeTTL: challengeTTL,
		verify:       signature.VerifySignature,
		now:          time.Now,
	}
}

func (s *Service) RequestChallenge(ctx context.Context, identity string) (string, error) {
	id, err := model.NormalizeIdentity(identity)
	if err != nil {
		return "", err
	}

	raw := make([]byte, nonceBytes)
	if _, err := rand.Read(raw); err != nil {
		log.Error("failed to generate nonce", zap.Error(err))
		return "", appErrors.Internal("crypto rand failed")
	}
	nonce := hex.EncodeToString(raw)

	c := &model.Challenge{
		Identity: id,
		Nonce:    nonce,
		IssuedAt: s.now(),
	}
	if err := s.challenges.Put(ctx, c); err != nil {
		log.Error("failed to save challenge", zap.String("wallet", id), zap.Error(err))
		return "", appErrors.ErrTransport("save challenge", err)
	}

	return nonce, nil
}

// VerifyChallenge consumes the stored challenge whatever the outcome, so each
// nonce admits a single verification attempt.
func (s *Service) VerifyChallenge(ctx context.Context, identity, sig string) (*model.Credential, error) {
	id, err := model.NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}

	c, err := s.challenges.Take(ctx, id)
	if err != nil {
		log.Error("failed to load challenge", zap.String("wallet", id), zap.Error(err))
		return nil, appErrors.ErrTransport("load challenge", err)
	}
	if c == nil {
		return nil, appErrors.ErrNonceNotFound
	}
	if s.challengeTTL > 0 && s.now().Sub(c.IssuedAt) > s.challengeTTL {
		log.Debug("challenge expired", zap.String("wallet", id))
		return nil, appErrors.ErrNonceNotFound
	}

	if !s.verify(id, c.Nonce, sig) {
		log.Info("signature rejected", zap.String("wallet", id))
		return nil, appErrors.ErrInvalidSignature
	}

	return s.tokens.Issue(id)
}

func (s *Service) ValidateToken(token string) (*model.Credential, error) {
	if token == "" {
		return nil, appErrors.ErrInvalidToken
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return &model.Credential{
		Token:     token,
		Identity:  claims.Wallet,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) IsSessionActive(ctx context.Context, walletRef string) (*model.SessionStatus, error) {
	ref, err := model.NormalizeIdentity(walletRef)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.sessions.ExpiresAt(ctx, ref)
	if err != nil {
		log.Error("failed to read session", zap.String("walletRef", ref), zap.Error(err))
		return nil, appErrors.ErrTransport("read session", err)
	}

	remaining := expiresAt.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return &model.SessionStatus{
		Active:      remaining > 0,
		RemainingMs: remaining.Milliseconds(),
	}, nil
}

// ExtendSession moves expiry to max(now, current) + grant. Only the payment
// gateway calls this, after a proof has been accepted.
func (s *Service) ExtendSession(ctx context.Context, walletRef string, grant time.Duration) (time.Time, error) {
	ref, err := model.NormalizeIdentity(walletRef)
	if err != nil {
		return time.Time{}, err
	}
	if grant <= 0 {
		return time.Time{}, appErrors.InvalidArg("grant duration must be positive")
	}

	expiresAt, err := s.sessions.Extend(ctx, ref, s.now(), grant)
	if err != nil {
		log.Error("failed to extend session", zap.String("walletRef", ref), zap.Error(err))
		return time.Time{}, appErrors.ErrTransport("extend session", err)
	}

	log.Info("session extended", zap.String("walletRef", ref), zap.Time("expiresAt", expiresAt))
	return expiresAt, nil
}
