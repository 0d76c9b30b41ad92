package review

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/havenhq/haven-ai-platform/internal/chat"
	"github.com/havenhq/haven-ai-platform/internal/safety"
)

// Store persists reviews and applies review-driven message transitions.
type Store struct {
	db *sql.DB
}

// NewStore creates a review store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// Finalize applies a verdict to a pending message and records the
// review in one transaction. The status condition makes the transition
// at-most-once: a lost race matches no row. A failed review insert
// rolls the status change back, so the message stays reviewable.
func (s *Store) Finalize(ctx context.Context, r *Review) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("review: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	switch r.Verdict {
	case VerdictUnsafe:
		result, err = tx.ExecContext(ctx, `
			UPDATE messages SET status = $1, content = $2
			WHERE id = $3 AND status = $4
		`, string(chat.StatusFinalized), r.CorrectedResponse, r.MessageID, string(chat.StatusPendingReview))
	default:
		result, err = tx.ExecContext(ctx, `
			UPDATE messages SET status = $1
			WHERE id = $2 AND status = $3
		`, string(chat.StatusFinalized), r.MessageID, string(chat.StatusPendingReview))
	}
	if err != nil {
		return fmt.Errorf("review: failed to finalize message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("review: failed to read finalize result: %w", err)
	}
	if affected == 0 {
		return ErrNotPendingReview
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (
			id, message_id, reviewer_id, verdict, feedback,
			corrected_response, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.MessageID, r.ReviewerID, string(r.Verdict), r.Feedback,
		r.CorrectedResponse, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("review: failed to insert review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("review: failed to commit review: %w", err)
	}
	return nil
}

// PendingQueue lists messages awaiting human review, oldest first.
func (s *Store) PendingQueue(ctx context.Context, limit int) ([]chat.Message, error) {
	query := `
		SELECT id, conversation_id, sender, content, risk_level, risk_score,
		       triggers, status, created_at
		FROM messages
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []any{string(chat.StatusPendingReview)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("review: failed to list queue: %w", err)
	}
	defer rows.Close()

	var queue []chat.Message
	for rows.Next() {
		var msg chat.Message
		var level, status, triggers string
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content,
			&level, &msg.RiskScore, &triggers, &status, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("review: failed to scan queue row: %w", err)
		}
		msg.RiskLevel = safety.RiskLevel(level)
		msg.Status = chat.MessageStatus(status)
		if triggers != "" {
			msg.Triggers = strings.Split(triggers, ",")
		}
		queue = append(queue, msg)
	}
	return queue, rows.Err()
}
