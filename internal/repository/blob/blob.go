package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// ContentID is the content-addressed reference for data.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return "Qm" + hex.EncodeToString(sum[:])
}

type (
	MemoryStore struct {
		mu    sync.RWMutex
		blobs map[string][]byte
	}
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	ref := ContentID(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[ref]; !ok {
		s.blobs[ref] = append([]byte(nil), data...)
	}
	return ref, nil
}

// Get returns nil, nil for an unknown ref.
func (s *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[ref]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}
