package review

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/havenhq/haven-ai-platform/internal/chat"
	"github.com/havenhq/haven-ai-platform/internal/observability/metrics"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// Verdict is a human reviewer's judgment on a flagged message.
type Verdict string

const (
	VerdictSafe   Verdict = "safe"
	VerdictUnsafe Verdict = "unsafe"
)

// Workflow violations are rejected synchronously, never silently
// ignored or auto-corrected.
var (
	ErrNotFound           = errors.New("review: message not found")
	ErrNotPendingReview   = errors.New("review: message is not pending review")
	ErrCorrectionRequired = errors.New("review: unsafe verdict requires a corrected response")
	ErrUnknownVerdict     = errors.New("review: verdict must be safe or unsafe")
)

// Review records one human judgment on one flagged message.
type Review struct {
	ID                uuid.UUID
	MessageID         uuid.UUID
	ReviewerID        string
	Verdict           Verdict
	Feedback          string
	CorrectedResponse string
	CreatedAt         time.Time
}

// SubmitParams are the inputs to a review submission.
type SubmitParams struct {
	MessageID         uuid.UUID
	ReviewerID        string
	Verdict           Verdict
	Feedback          string
	CorrectedResponse string
}

// Workflow governs the transition of flagged messages out of
// pending_review. Reviews apply at most once per message, enforced by
// the conditional status update in the store rather than a lock.
type Workflow struct {
	messages *chat.MessageStore
	store    *Store
	feedback *FeedbackStore
	metrics  *metrics.SafetyMetrics
	logger   *logging.Logger
}

// NewWorkflow creates the review workflow.
func NewWorkflow(messages *chat.MessageStore, store *Store, feedback *FeedbackStore, m *metrics.SafetyMetrics, logger *logging.Logger) *Workflow {
	if messages == nil || store == nil {
		panic("review: message store and review store are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{messages: messages, store: store, feedback: feedback, metrics: m, logger: logger}
}

// SubmitReview finalizes a flagged message. Safe verdicts deliver the
// content unchanged; unsafe verdicts replace it with the reviewer's
// correction and, when feedback was given, append a feedback-memory
// entry keyed to the original content.
func (w *Workflow) SubmitReview(ctx context.Context, p SubmitParams) (*Review, error) {
	if p.Verdict != VerdictSafe && p.Verdict != VerdictUnsafe {
		return nil, ErrUnknownVerdict
	}
	if p.Verdict == VerdictUnsafe && strings.TrimSpace(p.CorrectedResponse) == "" {
		return nil, ErrCorrectionRequired
	}

	msg, err := w.messages.Get(ctx, p.MessageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	if msg.Status != chat.StatusPendingReview {
		return nil, ErrNotPendingReview
	}

	review := &Review{
		ID:                uuid.New(),
		MessageID:         p.MessageID,
		ReviewerID:        p.ReviewerID,
		Verdict:           p.Verdict,
		Feedback:          p.Feedback,
		CorrectedResponse: p.CorrectedResponse,
		CreatedAt:         time.Now().UTC(),
	}
	if err := w.store.Finalize(ctx, review); err != nil {
		return nil, err
	}

	if p.Verdict == VerdictUnsafe && strings.TrimSpace(p.Feedback) != "" && w.feedback != nil {
		entry := Entry{
			IssueType:     IssueUnsafeResponse,
			Pattern:       excerpt(msg.Content, patternExcerptLen),
			HumanFeedback: p.Feedback,
		}
		if err := w.feedback.Append(ctx, entry); err != nil {
			// The review itself succeeded; losing the memory entry is
			// logged, not fatal.
			w.logger.Error("failed to append feedback memory", "error", err.Error())
		}
	}

	w.metrics.ObserveReview(string(p.Verdict))
	w.logger.Info("review submitted",
		"message_id", p.MessageID.String(),
		"reviewer_id", p.ReviewerID,
		"verdict", string(p.Verdict),
	)
	return review, nil
}

// patternExcerptLen bounds the stored excerpt of a problematic reply.
const patternExcerptLen = 120

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so the cut never splits a
	// multi-byte character.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
