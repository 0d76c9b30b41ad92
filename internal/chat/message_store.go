package chat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/havenhq/haven-ai-platform/internal/safety"
)

// MessageStore persists messages to PostgreSQL.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a message store.
func NewMessageStore(db *sql.DB) *MessageStore {
	if db == nil {
		return nil
	}
	return &MessageStore{db: db}
}

// InsertUser persists a user turn. User messages are never scored: they
// carry risk info and are delivered immediately.
func (s *MessageStore) InsertUser(ctx context.Context, conversationID, content string) (*Message, error) {
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         SenderUser,
		Content:        content,
		RiskLevel:      safety.RiskInfo,
		Status:         StatusDelivered,
		CreatedAt:      time.Now().UTC(),
	}
	return msg, s.insert(ctx, msg)
}

// InsertAssistant persists an assistant turn with its fused verdict.
// A flagged verdict parks the message in pending_review.
func (s *MessageStore) InsertAssistant(ctx context.Context, conversationID, content string, verdict safety.RiskVerdict) (*Message, error) {
	status := StatusDelivered
	if verdict.Flagged {
		status = StatusPendingReview
	}
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         SenderAssistant,
		Content:        content,
		RiskLevel:      verdict.RiskLevel,
		RiskScore:      verdict.RiskScore,
		Triggers:       verdict.RuleTriggers,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	return msg, s.insert(ctx, msg)
}

func (s *MessageStore) insert(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender, content, risk_level, risk_score,
			triggers, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, msg.ID, msg.ConversationID, msg.Sender, msg.Content, string(msg.RiskLevel),
		msg.RiskScore, strings.Join(msg.Triggers, ","), string(msg.Status), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("chat: failed to insert message: %w", err)
	}
	return nil
}

// Get retrieves one message by id.
func (s *MessageStore) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender, content, risk_level, risk_score,
		       triggers, status, created_at
		FROM messages
		WHERE id = $1
	`, id)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: failed to get message: %w", err)
	}
	return msg, nil
}

// ListConversation returns a conversation's messages, oldest first.
func (s *MessageStore) ListConversation(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, sender, content, risk_level, risk_score,
		       triggers, status, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chat: failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("chat: failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	var level, status, triggers string
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content,
		&level, &msg.RiskScore, &triggers, &status, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.RiskLevel = safety.RiskLevel(level)
	msg.Status = MessageStatus(status)
	if triggers != "" {
		msg.Triggers = strings.Split(triggers, ",")
	}
	return &msg, nil
}
