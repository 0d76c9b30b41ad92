package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/havenhq/haven-ai-platform/internal/safety"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// MessageStatus is the review-workflow state of a message. User
// messages and clean assistant messages are delivered immediately;
// flagged assistant messages sit in pending_review until a human
// finalizes them.
type MessageStatus string

const (
	StatusDelivered     MessageStatus = "delivered"
	StatusPendingReview MessageStatus = "pending_review"
	StatusFinalized     MessageStatus = "finalized"
)

// Message is one turn in a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID string
	Sender         string
	Content        string
	RiskLevel      safety.RiskLevel
	RiskScore      int
	Triggers       []string
	Status         MessageStatus
	CreatedAt      time.Time
}

// Flagged reports whether the message is withheld pending review.
func (m *Message) Flagged() bool {
	return m.Status == StatusPendingReview
}

// Finalized reports whether the message content is stable. Delivered
// messages are trivially finalized; pending ones are not.
func (m *Message) Finalized() bool {
	return m.Status == StatusFinalized || m.Status == StatusDelivered
}

// Visible reports whether full content may cross the API boundary.
func (m *Message) Visible() bool {
	return !m.Flagged()
}
