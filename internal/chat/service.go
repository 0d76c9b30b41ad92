package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/havenhq/haven-ai-platform/internal/llm"
	"github.com/havenhq/haven-ai-platform/internal/observability/metrics"
	"github.com/havenhq/haven-ai-platform/internal/safety"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// FeedbackSource renders past human corrections as generation context.
type FeedbackSource interface {
	Digest(ctx context.Context) (string, error)
}

// FlagNotifier alerts reviewers when a message enters the review queue.
type FlagNotifier interface {
	NotifyFlagged(ctx context.Context, msg *Message, verdict safety.RiskVerdict) error
}

// Reply is the pipeline output for one inbound user message.
type Reply struct {
	Message *Message
	Verdict safety.RiskVerdict
}

// Service runs the full pipeline for one inbound user message: persist
// the user turn, generate a reply, evaluate it, and persist the
// assistant turn with its verdict.
type Service struct {
	messages  *MessageStore
	history   *HistoryStore
	responder *Responder
	detector  *safety.Detector
	critic    *safety.CriticAdapter
	feedback  FeedbackSource
	notifier  FlagNotifier
	metrics   *metrics.SafetyMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
}

// ServiceConfig wires the pipeline's collaborators.
type ServiceConfig struct {
	Messages  *MessageStore
	History   *HistoryStore
	Responder *Responder
	Detector  *safety.Detector
	Critic    *safety.CriticAdapter
	Feedback  FeedbackSource
	Notifier  FlagNotifier
	Metrics   *metrics.SafetyMetrics
	Logger    *logging.Logger
}

// NewService creates the pipeline service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Messages == nil || cfg.Responder == nil || cfg.Detector == nil || cfg.Critic == nil {
		panic("chat: message store, responder, detector, and critic are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		messages:  cfg.Messages,
		history:   cfg.History,
		responder: cfg.Responder,
		detector:  cfg.Detector,
		critic:    cfg.Critic,
		feedback:  cfg.Feedback,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		logger:    logger,
		tracer:    otel.Tracer("haven.internal.chat.service"),
	}
}

// ProcessMessage handles one inbound user message end to end.
func (s *Service) ProcessMessage(ctx context.Context, conversationID, text string) (*Reply, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.New("chat: conversationID required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("chat: message text required")
	}

	ctx, span := s.tracer.Start(ctx, "chat.process_message")
	defer span.End()
	span.SetAttributes(attribute.String("haven.conversation_id", conversationID))

	if _, err := s.messages.InsertUser(ctx, conversationID, text); err != nil {
		span.RecordError(err)
		return nil, err
	}

	history, digest, err := s.loadContext(ctx, conversationID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	reply, err := s.responder.Generate(ctx, history, text, digest)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	verdict := s.evaluate(ctx, text, reply, history, digest)

	// An aborted request must not persist a partial verdict.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chat: evaluation aborted: %w", err)
	}

	msg, err := s.messages.InsertAssistant(ctx, conversationID, reply, verdict)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.history != nil {
		if err := s.history.Append(ctx, conversationID,
			llm.ChatMessage{Role: llm.RoleUser, Content: text},
			llm.ChatMessage{Role: llm.RoleAssistant, Content: reply},
		); err != nil {
			// History is a cache; losing a turn degrades context, not
			// correctness.
			s.logger.Warn("failed to append conversation history", "error", err.Error())
		}
	}

	if verdict.Flagged {
		s.logger.Warn("assistant reply flagged for review",
			"conversation_id", conversationID,
			"message_id", msg.ID.String(),
			"risk_score", verdict.RiskScore,
			"triggers", strings.Join(verdict.RuleTriggers, ","),
		)
		if s.notifier != nil {
			if err := s.notifier.NotifyFlagged(ctx, msg, verdict); err != nil {
				s.logger.Error("failed to notify reviewers", "error", err.Error())
			}
		}
	}

	return &Reply{Message: msg, Verdict: verdict}, nil
}

// loadContext fetches conversation history and the feedback digest.
func (s *Service) loadContext(ctx context.Context, conversationID string) ([]llm.ChatMessage, string, error) {
	var history []llm.ChatMessage
	if s.history != nil {
		var err error
		history, err = s.history.Load(ctx, conversationID)
		if err != nil {
			return nil, "", err
		}
	}

	var digest string
	if s.feedback != nil {
		var err error
		digest, err = s.feedback.Digest(ctx)
		if err != nil {
			// Feedback memory improves generation; its absence must not
			// block the conversation.
			s.logger.Warn("failed to load feedback memory", "error", err.Error())
		}
	}
	return history, digest, nil
}

// evaluate runs the detector and the critic concurrently and fuses
// their outputs. The detector is pure and in-process; the critic call
// is the only suspension point and carries its own bounded wait.
func (s *Service) evaluate(ctx context.Context, userText, assistantText string, history []llm.ChatMessage, digest string) safety.RiskVerdict {
	start := time.Now()

	criticCh := make(chan safety.CriticVerdict, 1)
	go func() {
		criticCh <- s.critic.Evaluate(ctx, userText, assistantText, history, digest)
	}()

	rule := s.detector.Detect(userText, assistantText)
	criticVerdict := <-criticCh

	for _, issue := range criticVerdict.Issues {
		if issue == safety.IssueCriticError || issue == safety.IssueCriticUnparsable {
			s.metrics.ObserveCriticFailure(issue)
		}
	}

	verdict := safety.Fuse(rule, criticVerdict)
	s.metrics.ObserveEvaluation(string(verdict.RiskLevel), verdict.Flagged, time.Since(start).Seconds())
	return verdict
}
