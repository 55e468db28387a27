package message

import (
	"context"
	"testing"

	"wallet_chat/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_AppendAndIndexes(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	msgs := []*model.Message{
		{ID: "1", ConversationID: "0xaaa:0xbbb", From: "0xAAA", To: "0xBBB", Content: "hi", Timestamp: 1},
		{ID: "2", ConversationID: "0xaaa:0xccc", From: "0xCCC", To: "0xAAA", Content: "yo", Timestamp: 2},
		{ID: "3", ConversationID: "0xaaa:0xbbb", From: "0xBBB", To: "0xAAA", Content: "hey", Timestamp: 3},
	}
	for _, m := range msgs {
		require.NoError(t, r.Append(ctx, m))
	}

	conv, err := r.ByConversation(ctx, "0xaaa:0xbbb")
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "1", conv[0].ID)
	assert.Equal(t, "3", conv[1].ID)

	forA, err := r.ByParticipant(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Len(t, forA, 3)

	forB, err := r.ByParticipant(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Len(t, forB, 2)
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	in := &model.Message{ID: "1", ConversationID: "c", From: "a", To: "b", Content: "x"}
	require.NoError(t, r.Append(ctx, in))
	in.Content = "mutated"

	got, err := r.ByConversation(ctx, "c")
	require.NoError(t, err)
	got[0].Content = "also mutated"

	again, err := r.ByConversation(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "x", again[0].Content)
}

func TestMemoryRepo_MarkRead(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	require.NoError(t, r.Append(ctx, &model.Message{ID: "1", ConversationID: "c", From: "0xAAA", To: "0xBBB"}))
	require.NoError(t, r.Append(ctx, &model.Message{ID: "2", ConversationID: "c", From: "0xBBB", To: "0xAAA"}))
	require.NoError(t, r.Append(ctx, &model.Message{ID: "3", ConversationID: "c", From: "0xAAA", To: "0xbbb"}))

	n, err := r.MarkRead(ctx, "c", "0xbBb")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.MarkRead(ctx, "c", "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	conv, _ := r.ByConversation(ctx, "c")
	assert.True(t, conv[0].Read)
	assert.False(t, conv[1].Read)
	assert.True(t, conv[2].Read)
}
