package auth

import (
	"time"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

type (
	Claims struct {
		Wallet string `json:"wallet"`
		jwt.RegisteredClaims
	}

	// TokenIssuer signs stateless HS256 credentials. Nothing is stored
	// server side: validity comes from the signature and embedded expiry.
	TokenIssuer struct {
		secret []byte
		ttl    time.Duration
		now    func() time.Time
	}
)

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (t *TokenIssuer) Issue(identity string) (*model.Credential, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		Wallet: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeInternal, "sign token", err)
	}

	return &model.Credential{
		Token:     signed,
		Identity:  identity,
		ExpiresAt: expiresAt,
	}, nil
}

func (t *TokenIssuer) Validate(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeUnauthenticated, "invalid or expired token", err)
	}
	return &claims, nil
}
