package keydir

import (
	"context"
	"strings"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

type (
	KeyRepo interface {
		Upsert(ctx context.Context, identity, publicKey string) error
		// GetByIdentity returns nil, nil when nothing is registered.
		GetByIdentity(ctx context.Context, identity string) (*model.RegisteredPublicKey, error)
	}

	// Directory maps an identity to its one current public encryption key.
	// Re-registration overwrites; there is no key history.
	Directory struct {
		repo KeyRepo
	}
)

func NewDirectory(repo KeyRepo) *Directory {
	return &Directory{
		repo: repo,
	}
}

func (d *Directory) RegisterPublicKey(ctx context.Context, identity, publicKey string) error {
	if strings.TrimSpace(identity) == "" {
		return appErrors.MissingField("wallet")
	}
	if strings.TrimSpace(publicKey) == "" {
		return appErrors.MissingField("pubKey")
	}

	id, err := model.NormalizeIdentity(identity)
	if err != nil {
		return err
	}

	if err := d.repo.Upsert(ctx, id, publicKey); err != nil {
		log.Error("register public key failed", zap.String("wallet", id), zap.Error(err))
		return appErrors.ErrTransport("register public key", err)
	}
	return nil
}

// LookupPublicKey returns ErrPublicKeyNotFound when the identity has not
// onboarded yet.
func (d *Directory) LookupPublicKey(ctx context.Context, identity string) (string, error) {
	id, err := model.NormalizeIdentity(identity)
	if err != nil {
		return "", err
	}

	key, err := d.repo.GetByIdentity(ctx, id)
	if err != nil {
		log.Error("lookup public key failed", zap.String("wallet", id), zap.Error(err))
		return "", appErrors.ErrTransport("lookup public key", err)
	}
	if key == nil {
		return "", appErrors.ErrPublicKeyNotFound
	}
	return key.PublicKey, nil
}
