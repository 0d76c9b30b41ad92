package review

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IssueUnsafeResponse tags entries created from unsafe review verdicts.
const IssueUnsafeResponse = "unsafe_response"

// DefaultFeedbackLimit bounds how many entries render into a digest.
const DefaultFeedbackLimit = 5

// Entry is one past human correction. Entries are append-only; the core
// never deletes them (retention is an operational concern).
type Entry struct {
	ID            uuid.UUID
	IssueType     string
	Pattern       string
	HumanFeedback string
	CreatedAt     time.Time
}

// FeedbackStore is the append-only record of reviewer corrections,
// consumed most-recent-first as generation context.
type FeedbackStore struct {
	db    *sql.DB
	limit int
}

// NewFeedbackStore creates a feedback-memory store. A non-positive
// limit falls back to DefaultFeedbackLimit.
func NewFeedbackStore(db *sql.DB, limit int) *FeedbackStore {
	if db == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultFeedbackLimit
	}
	return &FeedbackStore{db: db, limit: limit}
}

// Append persists one entry.
func (s *FeedbackStore) Append(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_memory (
			id, issue_type, pattern, human_feedback, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.IssueType, e.Pattern, e.HumanFeedback, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("review: failed to append feedback memory: %w", err)
	}
	return nil
}

// Recent returns the n most recent entries, newest first.
func (s *FeedbackStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = s.limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_type, pattern, human_feedback, created_at
		FROM feedback_memory
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("review: failed to load feedback memory: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IssueType, &e.Pattern, &e.HumanFeedback, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("review: failed to scan feedback entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Digest renders recent corrections as a plain-text block for system
// instructions. An empty memory yields an empty digest.
func (s *FeedbackStore) Digest(ctx context.Context) (string, error) {
	entries, err := s.Recent(ctx, s.limit)
	if err != nil {
		return "", err
	}
	return RenderDigest(entries), nil
}

// RenderDigest formats entries newest-first for prompt context.
func RenderDigest(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Past reviewer corrections, most recent first. Do not repeat these mistakes:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. [%s] problematic reply: %q (reviewer: %s)\n",
			i+1, e.IssueType, e.Pattern, e.HumanFeedback)
	}
	return strings.TrimRight(b.String(), "\n")
}
