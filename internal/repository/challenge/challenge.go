package challenge

import (
	"context"
	"sync"

	"wallet_chat/internal/model"
)

type (
	// MemoryStore keeps at most one live challenge per identity.
	MemoryStore struct {
		mu         sync.Mutex
		challenges map[string]model.Challenge
	}
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]model.Challenge),
	}
}

func (s *MemoryStore) Put(ctx context.Context, c *model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[c.Identity] = *c
	return nil
}

// Take removes and returns the challenge for identity, or nil if none.
func (s *MemoryStore) Take(ctx context.Context, identity string) (*model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[identity]
	if !ok {
		return nil, nil
	}
	delete(s.challenges, identity)
	return &c, nil
}
