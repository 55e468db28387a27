package dh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicFromSecret(t *testing.T) {
	priv, pub, err := NewX25519KeyPair()
	require.NoError(t, err)

	got, err := PublicFromSecret(priv)
	require.NoError(t, err)
	assert.Equal(t, pub, got)
}
