package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/havenhq/haven-ai-platform/internal/chat"
	"github.com/havenhq/haven-ai-platform/internal/safety"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// EmailSender defines the interface for sending emails. Implementations
// can be swapped without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a SendGrid email sender. Returns nil when
// no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Haven AI"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// ReviewerNotifier emails the on-call reviewer when an assistant reply
// is withheld pending review. The flagged content itself stays out of
// the email; reviewers read it in the queue.
type ReviewerNotifier struct {
	sender        EmailSender
	reviewerEmail string
	logger        *logging.Logger
}

// NewReviewerNotifier creates a reviewer notifier. Returns nil when no
// sender or reviewer address is configured.
func NewReviewerNotifier(sender EmailSender, reviewerEmail string, logger *logging.Logger) *ReviewerNotifier {
	if sender == nil || strings.TrimSpace(reviewerEmail) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReviewerNotifier{sender: sender, reviewerEmail: reviewerEmail, logger: logger}
}

// NotifyFlagged alerts the reviewer that a message entered the queue.
func (n *ReviewerNotifier) NotifyFlagged(ctx context.Context, msg *chat.Message, verdict safety.RiskVerdict) error {
	if n == nil {
		return nil
	}
	body := fmt.Sprintf(
		"A reply was withheld pending review.\n\nMessage ID: %s\nConversation: %s\nRisk level: %s (score %d)\nTriggers: %s\n\nOpen the review queue to act on it.",
		msg.ID, msg.ConversationID, verdict.RiskLevel, verdict.RiskScore,
		strings.Join(verdict.RuleTriggers, ", "),
	)
	return n.sender.Send(ctx, EmailMessage{
		To:      n.reviewerEmail,
		Subject: fmt.Sprintf("[Haven] Reply flagged %s: %s", verdict.RiskLevel, msg.ID),
		Body:    body,
	})
}
