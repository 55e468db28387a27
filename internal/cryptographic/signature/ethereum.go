package signature

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

var errSignatureLength = errors.New("signature must be 65 bytes")

// RecoverAddress returns the checksummed address that produced an EIP-191
// personal_sign signature over message.
func RecoverAddress(message string, sig string) (string, error) {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return "", err
	}
	if len(raw) != signatureLength {
		return "", errSignatureLength
	}

	// wallets emit v as 27/28, recovery wants 0/1
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), raw)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// VerifySignature reports whether sig over message was produced by
// claimedIdentity. It fails closed: every decode or recovery error is false.
func VerifySignature(claimedIdentity, message, sig string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if claimedIdentity == "" || sig == "" {
		return false
	}
	addr, err := RecoverAddress(message, sig)
	if err != nil {
		return false
	}
	return strings.EqualFold(addr, claimedIdentity)
}

// Sign produces a personal_sign style signature (v = 27/28), as a browser
// wallet would.
func Sign(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func Address(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
