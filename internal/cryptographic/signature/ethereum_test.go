package signature

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr := Address(key)
	nonce := "3f1c0e5a9d2b4c7e8f60a1b2c3d4e5f6"

	sig, err := Sign(key, nonce)
	require.NoError(t, err)

	t.Run("matching address", func(t *testing.T) {
		assert.True(t, VerifySignature(addr, nonce, sig))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.True(t, VerifySignature(strings.ToLower(addr), nonce, sig))
		assert.True(t, VerifySignature("0x"+strings.ToUpper(addr[2:]), nonce, sig))
	})

	t.Run("recovery id 0/1 accepted", func(t *testing.T) {
		raw, err := crypto.Sign(accounts.TextHash([]byte(nonce)), key)
		require.NoError(t, err)
		assert.True(t, VerifySignature(addr, nonce, hexutil.Encode(raw)))
	})

	t.Run("other signer", func(t *testing.T) {
		otherSig, err := Sign(other, nonce)
		require.NoError(t, err)
		assert.False(t, VerifySignature(addr, nonce, otherSig))
	})

	t.Run("different message", func(t *testing.T) {
		assert.False(t, VerifySignature(addr, "another nonce", sig))
	})

	malformed := []string{"", "0x", "not-hex", "0x1234", sig[:len(sig)-2], sig + "00", "0x" + strings.Repeat("ff", 65)}
	for _, m := range malformed {
		assert.False(t, VerifySignature(addr, nonce, m), "signature %q", m)
	}

	assert.False(t, VerifySignature("", nonce, sig))
}

func TestRecoverAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := Sign(key, "hello")
	require.NoError(t, err)

	addr, err := RecoverAddress("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, Address(key), addr)
}
