package review

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhq/haven-ai-platform/internal/chat"
)

var messageColumns = []string{
	"id", "conversation_id", "sender", "content", "risk_level",
	"risk_score", "triggers", "status", "created_at",
}

func newWorkflowFixture(t *testing.T) (*Workflow, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	workflow := NewWorkflow(chat.NewMessageStore(db), NewStore(db), NewFeedbackStore(db, 0), nil, nil)
	return workflow, mock
}

func expectGetMessage(mock sqlmock.Sqlmock, id uuid.UUID, status chat.MessageStatus, content string) {
	mock.ExpectQuery("SELECT id, conversation_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(messageColumns).AddRow(
			id, "conv-1", chat.SenderAssistant, content, "high", 12,
			"crisis_keyword", string(status), time.Now().UTC(),
		))
}

func TestSubmitReviewSafe(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	expectGetMessage(mock, id, chat.StatusPendingReview, "flagged reply")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WithArgs("finalized", id, "pending_review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	review, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID:  id,
		ReviewerID: "reviewer-1",
		Verdict:    VerdictSafe,
	})
	require.NoError(t, err)

	assert.Equal(t, VerdictSafe, review.Verdict)
	assert.Equal(t, id, review.MessageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewUnsafeWithFeedback(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	expectGetMessage(mock, id, chat.StatusPendingReview, "you should take medication")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WithArgs("finalized", "a safer corrected reply", id, "pending_review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO feedback_memory").
		WithArgs(sqlmock.AnyArg(), IssueUnsafeResponse, "you should take medication", "never suggest medication", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	review, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID:         id,
		ReviewerID:        "reviewer-1",
		Verdict:           VerdictUnsafe,
		Feedback:          "never suggest medication",
		CorrectedResponse: "a safer corrected reply",
	})
	require.NoError(t, err)

	assert.Equal(t, VerdictUnsafe, review.Verdict)
	assert.Equal(t, "a safer corrected reply", review.CorrectedResponse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewUnsafeWithoutFeedbackSkipsMemory(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	expectGetMessage(mock, id, chat.StatusPendingReview, "flagged reply")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID:         id,
		ReviewerID:        "reviewer-1",
		Verdict:           VerdictUnsafe,
		CorrectedResponse: "corrected",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewUnsafeRequiresCorrection(t *testing.T) {
	workflow, _ := newWorkflowFixture(t)

	_, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID: uuid.New(),
		Verdict:   VerdictUnsafe,
		Feedback:  "bad reply",
	})
	assert.ErrorIs(t, err, ErrCorrectionRequired)
}

func TestSubmitReviewUnknownVerdict(t *testing.T) {
	workflow, _ := newWorkflowFixture(t)

	_, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID: uuid.New(),
		Verdict:   "maybe",
	})
	assert.ErrorIs(t, err, ErrUnknownVerdict)
}

func TestSubmitReviewMessageNotFound(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, conversation_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(messageColumns))

	_, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID: id,
		Verdict:   VerdictSafe,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitReviewRejectsNonPending(t *testing.T) {
	tests := []struct {
		name   string
		status chat.MessageStatus
	}{
		{"already finalized", chat.StatusFinalized},
		{"delivered without flag", chat.StatusDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow, mock := newWorkflowFixture(t)
			id := uuid.New()

			expectGetMessage(mock, id, tt.status, "reply")

			_, err := workflow.SubmitReview(context.Background(), SubmitParams{
				MessageID: id,
				Verdict:   VerdictSafe,
			})
			assert.ErrorIs(t, err, ErrNotPendingReview)
		})
	}
}

// Two reviewers race the same message; the second conditional update
// matches no row and the losing submission is rejected.
func TestSubmitReviewAtMostOnce(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	expectGetMessage(mock, id, chat.StatusPendingReview, "flagged reply")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID: id,
		Verdict:   VerdictSafe,
	})
	assert.ErrorIs(t, err, ErrNotPendingReview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A review-record insert failure must not strand the message: the
// status change rolls back with it and a later submission, finding the
// message still pending, can finalize it.
func TestSubmitReviewInsertFailureKeepsMessagePending(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	expectGetMessage(mock, id, chat.StatusPendingReview, "flagged reply")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID:  id,
		ReviewerID: "reviewer-1",
		Verdict:    VerdictSafe,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPendingReview)

	expectGetMessage(mock, id, chat.StatusPendingReview, "flagged reply")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	review, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID:  id,
		ReviewerID: "reviewer-1",
		Verdict:    VerdictSafe,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictSafe, review.Verdict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewFeedbackFailureNotFatal(t *testing.T) {
	workflow, mock := newWorkflowFixture(t)
	id := uuid.New()

	expectGetMessage(mock, id, chat.StatusPendingReview, "flagged reply")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE messages SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO feedback_memory").
		WillReturnError(assert.AnError)

	review, err := workflow.SubmitReview(context.Background(), SubmitParams{
		MessageID:         id,
		Verdict:           VerdictUnsafe,
		Feedback:          "bad reply",
		CorrectedResponse: "corrected",
	})
	require.NoError(t, err)
	assert.NotNil(t, review)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("  short  ", patternExcerptLen))

	long := strings.Repeat("a", patternExcerptLen+30)
	got := excerpt(long, patternExcerptLen)
	assert.Equal(t, patternExcerptLen+len("…"), len(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

// Cutting mid-rune would persist invalid UTF-8 that later flows into
// prompt context; the cut must land on a rune boundary.
func TestExcerptDoesNotSplitRunes(t *testing.T) {
	s := strings.Repeat("a", patternExcerptLen-2) + "😢" + strings.Repeat("b", 10)
	got := excerpt(s, patternExcerptLen)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", patternExcerptLen-2)+"…", got)
}
