package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/havenhq/haven-ai-platform/internal/llm"
)

const (
	historyTTL      = 24 * time.Hour
	historyMaxTurns = 40
)

// HistoryStore keeps the model-visible conversation context in Redis.
// It is a working cache for prompt assembly; the Postgres message store
// is the durable record.
type HistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewHistoryStore creates a Redis-backed history store.
func NewHistoryStore(client *redis.Client, tracer trace.Tracer) *HistoryStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("haven.internal.chat.history")
	}
	return &HistoryStore{redis: client, tracer: tracer}
}

func historyKey(conversationID string) string {
	return fmt.Sprintf("history:%s", conversationID)
}

// Load returns the stored turns for a conversation. An unknown
// conversation yields an empty history, not an error.
func (s *HistoryStore) Load(ctx context.Context, conversationID string) ([]llm.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(conversationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}

	var history []llm.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode history: %w", err)
	}
	return history, nil
}

// Append adds turns to a conversation's history, trimming to the most
// recent turns and refreshing the TTL.
func (s *HistoryStore) Append(ctx context.Context, conversationID string, turns ...llm.ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "chat.append_history")
	defer span.End()

	history, err := s.Load(ctx, conversationID)
	if err != nil {
		return err
	}
	history = append(history, turns...)
	if len(history) > historyMaxTurns {
		history = history[len(history)-historyMaxTurns:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(conversationID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist history: %w", err)
	}
	return nil
}
