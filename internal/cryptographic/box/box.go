package box

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"wallet_chat/internal/cryptographic/dh"
	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"

	"golang.org/x/crypto/nacl/box"
)

const (
	KeySize   = 32
	NonceSize = 24
)

// GenerateKeyPair returns a fresh box keypair.
func GenerateKeyPair() (*model.KeyPair, error) {
	priv, pub, err := dh.NewX25519KeyPair()
	if err != nil {
		return nil, err
	}
	return &model.KeyPair{PublicKey: pub, SecretKey: priv}, nil
}

// Encrypt seals plaintext for the recipient and returns base64(nonce || box).
// A fresh random nonce is drawn on every call.
func Encrypt(senderSecretKey, recipientPublicKey *[KeySize]byte, plaintext []byte) (string, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("rand.Read nonce: %w", err)
	}

	sealed := box.Seal(nonce[:], plaintext, &nonce, recipientPublicKey, senderSecretKey)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure, including a
// malformed blob, returns ErrDecryption and no plaintext.
func Decrypt(recipientSecretKey, senderPublicKey *[KeySize]byte, ciphertextBlob string) ([]byte, error) {
	combined, err := base64.StdEncoding.DecodeString(ciphertextBlob)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeDecryption, "ciphertext is not base64", appErrors.ErrDecryption)
	}
	if len(combined) < NonceSize+box.Overhead {
		return nil, appErrors.Wrap(appErrors.CodeDecryption, "ciphertext too short", appErrors.ErrDecryption)
	}

	var nonce [NonceSize]byte
	copy(nonce[:], combined[:NonceSize])

	plain, ok := box.Open(nil, combined[NonceSize:], &nonce, senderPublicKey, recipientSecretKey)
	if !ok {
		return nil, appErrors.ErrDecryption
	}
	return plain, nil
}

// EncodeKey and DecodeKey convert keys to and from the base64 form used on
// the wire and in the key directory.
func EncodeKey(key [KeySize]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

func DecodeKey(s string) (*[KeySize]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) != KeySize {
		return nil, fmt.Errorf("expected %d bytes, got %d", KeySize, len(data))
	}
	var key [KeySize]byte
	copy(key[:], data)
	return &key, nil
}
