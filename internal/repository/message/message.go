package message

import (
	"context"
	"strings"
	"sync"

	"wallet_chat/internal/model"
)

type (
	// MemoryRepo is an append-only log with per-conversation and
	// per-participant indexes into it.
	MemoryRepo struct {
		mu             sync.RWMutex
		log            []*model.Message
		byConversation map[string][]int
		byParticipant  map[string][]int
	}
)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byConversation: make(map[string][]int),
		byParticipant:  make(map[string][]int),
	}
}

func (r *MemoryRepo) Append(ctx context.Context, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *m
	idx := len(r.log)
	r.log = append(r.log, &stored)
	r.byConversation[m.ConversationID] = append(r.byConversation[m.ConversationID], idx)

	from := strings.ToLower(m.From)
	to := strings.ToLower(m.To)
	r.byParticipant[from] = append(r.byParticipant[from], idx)
	if to != from {
		r.byParticipant[to] = append(r.byParticipant[to], idx)
	}
	return nil
}

// ByConversation returns copies in insertion order.
func (r *MemoryRepo) ByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.byConversation[conversationID]), nil
}

// ByParticipant returns copies of every message sent or received by
// identity (lowercase), in insertion order.
func (r *MemoryRepo) ByParticipant(ctx context.Context, identity string) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.byParticipant[identity]), nil
}

// MarkRead flags messages of the conversation addressed to recipient and
// returns how many changed.
func (r *MemoryRepo) MarkRead(ctx context.Context, conversationID, recipient string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for _, idx := range r.byConversation[conversationID] {
		m := r.log[idx]
		if !m.Read && strings.EqualFold(m.To, recipient) {
			m.Read = true
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryRepo) collect(indexes []int) []*model.Message {
	res := make([]*model.Message, 0, len(indexes))
	for _, idx := range indexes {
		cpy := *r.log[idx]
		res = append(res, &cpy)
	}
	return res
}
