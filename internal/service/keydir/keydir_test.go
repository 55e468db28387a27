package keydir

import (
	"context"
	"errors"
	"testing"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/repository/publickey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct{}

func (failingRepo) Upsert(context.Context, string, string) error { return errors.New("connection reset") }
func (failingRepo) GetByIdentity(context.Context, string) (*model.RegisteredPublicKey, error) {
	return nil, errors.New("connection reset")
}

func TestDirectory_RegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(publickey.NewMemoryRepo())

	_, err := d.LookupPublicKey(ctx, "0xaaa")
	assert.ErrorIs(t, err, appErrors.ErrPublicKeyNotFound)

	require.NoError(t, d.RegisterPublicKey(ctx, "0xAAA", "PK1"))

	for _, id := range []string{"0xaaa", "0xAAA", "0xAaA"} {
		pk, err := d.LookupPublicKey(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "PK1", pk)
	}

	// idempotent upsert, then overwrite
	require.NoError(t, d.RegisterPublicKey(ctx, "0xaaa", "PK1"))
	require.NoError(t, d.RegisterPublicKey(ctx, "0xaaa", "PK2"))
	pk, err := d.LookupPublicKey(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, "PK2", pk)
}

func TestDirectory_MissingFields(t *testing.T) {
	d := NewDirectory(publickey.NewMemoryRepo())

	err := d.RegisterPublicKey(context.Background(), "", "PK1")
	assert.ErrorIs(t, err, appErrors.ErrMissingField)

	err = d.RegisterPublicKey(context.Background(), "0xaaa", " ")
	assert.ErrorIs(t, err, appErrors.ErrMissingField)
}

func TestDirectory_TransportErrorsAreDistinct(t *testing.T) {
	d := NewDirectory(failingRepo{})

	_, err := d.LookupPublicKey(context.Background(), "0xaaa")
	assert.Equal(t, appErrors.CodeUnavailable, appErrors.CodeOf(err))
	assert.NotErrorIs(t, err, appErrors.ErrPublicKeyNotFound)
}
