package chat

import (
	"context"
	"sort"
	"strings"
	"time"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/model"
	"wallet_chat/internal/utils/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	MessageRepo interface {
		Append(ctx context.Context, m *model.Message) error
		// ByConversation and ByParticipant return messages in insertion order.
		ByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
		ByParticipant(ctx context.Context, identity string) ([]*model.Message, error)
		MarkRead(ctx context.Context, conversationID, recipient string) (int, error)
	}

	// Store is the message ledger. AppendMessage is its only write path for
	// message content; MarkRead only ever flips read flags.
	Store struct {
		repo  MessageRepo
		now   func() time.Time
		newID func() string
	}
)

func NewStore(repo MessageRepo) *Store {
	return &Store{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Store) AppendMessage(ctx context.Context, from, to, content, contentRef string) (*model.Message, error) {
	if strings.TrimSpace(from) == "" {
		return nil, appErrors.MissingField("from")
	}
	if strings.TrimSpace(to) == "" {
		return nil, appErrors.MissingField("to")
	}
	if content == "" && contentRef == "" {
		return nil, appErrors.MissingField("content")
	}
	if _, err := model.NormalizeIdentity(from); err != nil {
		return nil, err
	}
	if _, err := model.NormalizeIdentity(to); err != nil {
		return nil, err
	}

	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	m := &model.Message{
		ID:             s.newID(),
		ConversationID: model.ConversationID(from, to),
		From:           from,
		To:             to,
		Content:        content,
		ContentRef:     contentRef,
		Timestamp:      s.now().UnixMilli(),
		Read:           false,
	}

	if err := s.repo.Append(ctx, m); err != nil {
		log.Error("append message failed", zap.String("conversationId", m.ConversationID), zap.Error(err))
		return nil, appErrors.ErrTransport("append message", err)
	}
	return m, nil
}

// GetConversation returns the conversation sorted by timestamp, ties kept in
// insertion order. When wallet is set it must be one of the participants.
func (s *Store) GetConversation(ctx context.Context, conversationID, wallet string) ([]*model.Message, error) {
	conversationID = strings.ToLower(strings.TrimSpace(conversationID))
	if conversationID == "" {
		return nil, appErrors.MissingField("conversationId")
	}

	if wallet != "" {
		id, err := model.NormalizeIdentity(wallet)
		if err != nil {
			return nil, err
		}
		a, b, ok := model.Participants(conversationID)
		if !ok || (id != a && id != b) {
			return nil, appErrors.ErrNotParticipant
		}
	}

	msgs, err := s.repo.ByConversation(ctx, conversationID)
	if err != nil {
		log.Error("get conversation failed", zap.String("conversationId", conversationID), zap.Error(err))
		return nil, appErrors.ErrTransport("get conversation", err)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
	return msgs, nil
}

// MarkRead is idempotent; it returns how many messages changed state.
func (s *Store) MarkRead(ctx context.Context, conversationID, recipient string) (int, error) {
	conversationID = strings.ToLower(strings.TrimSpace(conversationID))
	if conversationID == "" {
		return 0, appErrors.MissingField("conversationId")
	}
	if strings.TrimSpace(recipient) == "" {
		return 0, appErrors.MissingField("wallet")
	}
	id, err := model.NormalizeIdentity(recipient)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.MarkRead(ctx, conversationID, id)
	if err != nil {
		log.Error("mark read failed", zap.String("conversationId", conversationID), zap.Error(err))
		return 0, appErrors.ErrTransport("mark read", err)
	}
	return n, nil
}

func (s *Store) ListContacts(ctx context.Context, identity string) ([]*model.ContactSummary, error) {
	id, err := model.NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ByParticipant(ctx, id)
	if err != nil {
		log.Error("list contacts failed", zap.String("wallet", id), zap.Error(err))
		return nil, appErrors.ErrTransport("list contacts", err)
	}
	return SummarizeContacts(id, msgs), nil
}
