package session

import (
	"context"
	"sync"
	"time"
)

type (
	MemoryStore struct {
		mu      sync.Mutex
		expires map[string]time.Time
	}
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
	}
}

// ExpiresAt returns the zero time when walletRef has never been extended.
func (s *MemoryStore) ExpiresAt(ctx context.Context, walletRef string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.expires[walletRef], nil
}

// Extend sets expiry to max(now, current) + grant and returns it.
func (s *MemoryStore) Extend(ctx context.Context, walletRef string, now time.Time, grant time.Duration) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.expires[walletRef]
	if now.After(base) {
		base = now
	}
	next := base.Add(grant)
	s.expires[walletRef] = next
	return next, nil
}
