package chat

import (
	"sort"
	"strings"

	"wallet_chat/internal/model"
)

// SummarizeContacts folds every message involving identity into one summary
// per peer, newest conversation first. msgs must be in insertion order.
func SummarizeContacts(identity string, msgs []*model.Message) []*model.ContactSummary {
	byPeer := make(map[string]*model.ContactSummary)
	order := make([]*model.ContactSummary, 0)

	for _, m := range msgs {
		var peer string
		switch {
		case strings.EqualFold(m.From, identity):
			peer = m.To
		case strings.EqualFold(m.To, identity):
			peer = m.From
		default:
			continue
		}

		key := strings.ToLower(peer)
		summary, ok := byPeer[key]
		if !ok {
			summary = &model.ContactSummary{ID: peer, Timestamp: m.Timestamp, Last: m.Content}
			byPeer[key] = summary
			order = append(order, summary)
		}

		if m.Timestamp >= summary.Timestamp {
			summary.ID = peer
			summary.Last = m.Content
			summary.Timestamp = m.Timestamp
		}

		if !m.Read && strings.EqualFold(m.To, identity) && strings.EqualFold(m.From, peer) {
			summary.Unread++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Timestamp > order[j].Timestamp
	})
	return order
}
