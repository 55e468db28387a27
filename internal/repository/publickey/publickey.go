package publickey

import (
	"context"
	"sync"
	"time"

	"wallet_chat/internal/model"
)

type (
	MemoryRepo struct {
		mu   sync.RWMutex
		keys map[string]model.RegisteredPublicKey
	}
)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		keys: make(map[string]model.RegisteredPublicKey),
	}
}

func (r *MemoryRepo) Upsert(ctx context.Context, identity, publicKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys[identity] = model.RegisteredPublicKey{
		Identity:     identity,
		PublicKey:    publicKey,
		RegisteredAt: time.Now(),
	}
	return nil
}

// GetByIdentity returns nil, nil when identity has not registered a key.
func (r *MemoryRepo) GetByIdentity(ctx context.Context, identity string) (*model.RegisteredPublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.keys[identity]
	if !ok {
		return nil, nil
	}
	return &k, nil
}
