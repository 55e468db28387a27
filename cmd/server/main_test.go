package main

import (
	"context"
	"testing"
	"time"

	"wallet_chat/internal/config"
	"wallet_chat/internal/repository/blob"
	"wallet_chat/internal/repository/challenge"
	"wallet_chat/internal/repository/message"
	"wallet_chat/internal/repository/publickey"
	"wallet_chat/internal/repository/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStoresWithCloser(closed *int) openStoresFunc {
	return func(context.Context, *config.Config) (*stores, error) {
		return &stores{
			challenges: challenge.NewMemoryStore(),
			sessions:   session.NewMemoryStore(),
			keys:       publickey.NewMemoryRepo(),
			messages:   message.NewMemoryRepo(),
			blobs:      blob.NewMemoryStore(),
			closers: []func(context.Context) error{
				func(context.Context) error {
					*closed++
					return nil
				},
			},
		}, nil
	}
}

func TestRun_ClosesStoresOnValidatorError(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payment.Custodial.APIKey = "key"
	cfg.Payment.Custodial.EntitySecret = "not-hex"

	closed := 0
	err := run(context.Background(), cfg, memoryStoresWithCloser(&closed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init payment validator")
	assert.Equal(t, 1, closed)
}

func TestRun_ClosesStoresOnShutdown(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.JWT.Secret = "secret"
	cfg.JWT.ExpiresIn = time.Hour
	cfg.Session.GrantDuration = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	closed := 0
	require.NoError(t, run(ctx, cfg, memoryStoresWithCloser(&closed)))
	assert.Equal(t, 1, closed)
}

func TestInitMongo_UnreachableReturnsNoClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := initMongo(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200")
	assert.Error(t, err)
	assert.Nil(t, client)
}
