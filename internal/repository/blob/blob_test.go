package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ContentAddressed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ref1, err := s.Put(ctx, []byte("ciphertext"))
	require.NoError(t, err)
	ref2, err := s.Put(ctx, []byte("ciphertext"))
	require.NoError(t, err)
	ref3, err := s.Put(ctx, []byte("other"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref1, "Qm"))
	assert.Equal(t, ref1, ref2)
	assert.NotEqual(t, ref1, ref3)

	data, err := s.Get(ctx, ref1)
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), data)

	missing, err := s.Get(ctx, "Qmnope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
