package app

import (
	"crypto/ecdsa"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"wallet_chat/internal/cryptographic/box"
	"wallet_chat/internal/cryptographic/dh"
	"wallet_chat/internal/cryptographic/signature"
	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const (
	walletKeyFile = "wallet.key"
	boxKeyFile    = "box.key"
)

type (
	// Identity is the local key material: the wallet key that signs login
	// challenges and the box keypair that seals messages.
	Identity struct {
		WalletKey *ecdsa.PrivateKey
		Address   string
		Box       *model.KeyPair
	}
)

// LoadOrCreateIdentity reads keys from dir, generating and saving any that
// are missing.
func LoadOrCreateIdentity(dir string) (*Identity, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	walletKey, err := loadOrCreateWalletKey(filepath.Join(dir, walletKeyFile))
	if err != nil {
		return nil, err
	}
	kp, err := loadOrCreateBoxKey(filepath.Join(dir, boxKeyFile))
	if err != nil {
		return nil, err
	}

	return &Identity{
		WalletKey: walletKey,
		Address:   signature.Address(walletKey),
		Box:       kp,
	}, nil
}

func loadOrCreateWalletKey(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	log.Info("generated wallet key", zap.String("path", path))
	return key, nil
}

func loadOrCreateBoxKey(path string) (*model.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		secret, err := box.DecodeKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, err
		}
		pub, err := dh.PublicFromSecret(*secret)
		if err != nil {
			return nil, err
		}
		return &model.KeyPair{PublicKey: pub, SecretKey: *secret}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	kp, err := box.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(box.EncodeKey(kp.SecretKey)), 0o600); err != nil {
		return nil, err
	}
	log.Info("generated box key", zap.String("path", path))
	return kp, nil
}
