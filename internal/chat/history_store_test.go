package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhq/haven-ai-platform/internal/llm"
)

func newTestHistoryStore(t *testing.T) (*HistoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryStore(client, nil), mr
}

func TestHistoryStoreLoadEmpty(t *testing.T) {
	store, _ := newTestHistoryStore(t)

	history, err := store.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryStoreAppendAndLoad(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	err := store.Append(ctx, "conv-1",
		llm.ChatMessage{Role: llm.RoleUser, Content: "hi"},
		llm.ChatMessage{Role: llm.RoleAssistant, Content: "hello, how are you feeling?"},
	)
	require.NoError(t, err)

	err = store.Append(ctx, "conv-1", llm.ChatMessage{Role: llm.RoleUser, Content: "tired"})
	require.NoError(t, err)

	history, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "tired", history[2].Content)
}

func TestHistoryStoreIsolatesConversations(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", llm.ChatMessage{Role: llm.RoleUser, Content: "one"}))
	require.NoError(t, store.Append(ctx, "conv-2", llm.ChatMessage{Role: llm.RoleUser, Content: "two"}))

	history, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "one", history[0].Content)
}

func TestHistoryStoreTrimsToMaxTurns(t *testing.T) {
	store, _ := newTestHistoryStore(t)
	ctx := context.Background()

	for i := 0; i < historyMaxTurns+10; i++ {
		require.NoError(t, store.Append(ctx, "conv-1",
			llm.ChatMessage{Role: llm.RoleUser, Content: fmt.Sprintf("turn %d", i)}))
	}

	history, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, history, historyMaxTurns)
	assert.Equal(t, "turn 10", history[0].Content)
	assert.Equal(t, fmt.Sprintf("turn %d", historyMaxTurns+9), history[len(history)-1].Content)
}

func TestHistoryStoreSetsTTL(t *testing.T) {
	store, mr := newTestHistoryStore(t)

	require.NoError(t, store.Append(context.Background(), "conv-1",
		llm.ChatMessage{Role: llm.RoleUser, Content: "hi"}))

	ttl := mr.TTL(historyKey("conv-1"))
	assert.Equal(t, historyTTL, ttl)
}

func TestHistoryStoreExpiry(t *testing.T) {
	store, mr := newTestHistoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1",
		llm.ChatMessage{Role: llm.RoleUser, Content: "hi"}))

	mr.FastForward(historyTTL + time.Minute)

	history, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
