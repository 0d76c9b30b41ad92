package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/havenhq/haven-ai-platform/internal/llm"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// DefaultResponderTimeout bounds the generation call.
const DefaultResponderTimeout = 25 * time.Second

// Responder generates assistant replies from conversation history plus
// the feedback-memory digest. Provider failures surface with their
// llm.ErrorCategory intact so callers can distinguish auth, quota, and
// timeout problems.
type Responder struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewResponder creates a responder. A zero timeout falls back to
// DefaultResponderTimeout.
func NewResponder(client llm.Client, model string, timeout time.Duration, logger *logging.Logger) *Responder {
	if client == nil {
		panic("chat: responder llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultResponderTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Responder{client: client, model: model, timeout: timeout, logger: logger}
}

// Generate produces a reply to userText given the prior history.
func (r *Responder) Generate(ctx context.Context, history []llm.ChatMessage, userText, feedbackDigest string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", errors.New("chat: user text is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: userText})

	resp, err := r.client.Complete(ctx, llm.Request{
		Model:     r.model,
		System:    buildSystemBlocks(feedbackDigest),
		Messages:  messages,
		MaxTokens: 1024,
	})
	if err != nil {
		r.logger.Error("responder generation failed",
			"error", err.Error(),
			"category", string(llm.CategoryOf(err)),
		)
		return "", llm.Wrap(err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("chat: responder returned empty reply")
	}
	return resp.Text, nil
}
