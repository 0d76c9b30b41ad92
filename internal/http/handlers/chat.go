package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/havenhq/haven-ai-platform/internal/chat"
	"github.com/havenhq/haven-ai-platform/internal/llm"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// withheldPlaceholder is what the API shows in place of content that is
// flagged and not yet finalized.
const withheldPlaceholder = "This reply is being reviewed by our care team."

// ChatHandler exposes the conversation endpoints.
type ChatHandler struct {
	service  *chat.Service
	messages *chat.MessageStore
	logger   *logging.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(service *chat.Service, messages *chat.MessageStore, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{service: service, messages: messages, logger: logger}
}

// messageView is the boundary representation of a message. Content is
// withheld while a message is flagged and not finalized; risk level is
// always exposed.
type messageView struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Sender         string `json:"sender"`
	Content        string `json:"content"`
	RiskLevel      string `json:"risk_level"`
	Flagged        bool   `json:"flagged"`
	Finalized      bool   `json:"finalized"`
	Withheld       bool   `json:"withheld,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func viewOf(m *chat.Message) messageView {
	v := messageView{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Content:        m.Content,
		RiskLevel:      string(m.RiskLevel),
		Flagged:        m.Flagged(),
		Finalized:      m.Finalized(),
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
	if !m.Visible() {
		v.Content = withheldPlaceholder
		v.Withheld = true
	}
	return v
}

// HandleMessage runs the pipeline for one inbound user message.
// POST /api/conversations/{conversationID}/messages
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if strings.TrimSpace(conversationID) == "" {
		http.Error(w, "conversationID is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	reply, err := h.service.ProcessMessage(r.Context(), conversationID, req.Text)
	if err != nil {
		h.logger.Error("pipeline failed", "error", err.Error(), "conversation_id", conversationID)
		status := http.StatusInternalServerError
		var ce *llm.CategorizedError
		if errors.As(err, &ce) && ce.Category == llm.ErrorTimeout {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, "failed to process message", status)
		return
	}

	writeJSON(w, http.StatusCreated, viewOf(reply.Message))
}

// HandleHistory lists a conversation's messages with boundary
// redaction applied.
// GET /api/conversations/{conversationID}/messages
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if strings.TrimSpace(conversationID) == "" {
		http.Error(w, "conversationID is required", http.StatusBadRequest)
		return
	}

	messages, err := h.messages.ListConversation(r.Context(), conversationID, 200)
	if err != nil {
		h.logger.Error("failed to list conversation", "error", err.Error())
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}

	views := make([]messageView, 0, len(messages))
	for i := range messages {
		views = append(views, viewOf(&messages[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

// HealthCheck reports liveness.
func (h *ChatHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
