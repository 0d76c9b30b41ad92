package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/havenhq/haven-ai-platform/internal/review"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

// ReviewHandler exposes the human-review endpoints.
type ReviewHandler struct {
	workflow *review.Workflow
	store    *review.Store
	logger   *logging.Logger
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(workflow *review.Workflow, store *review.Store, logger *logging.Logger) *ReviewHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReviewHandler{workflow: workflow, store: store, logger: logger}
}

// HandleQueue lists messages awaiting review. Reviewers see the full
// content here; this is the review surface, not the end-user boundary.
// GET /api/review/queue
func (h *ReviewHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.store.PendingQueue(r.Context(), 100)
	if err != nil {
		h.logger.Error("failed to load review queue", "error", err.Error())
		http.Error(w, "failed to load review queue", http.StatusInternalServerError)
		return
	}

	type queueItem struct {
		ID             string   `json:"id"`
		ConversationID string   `json:"conversation_id"`
		Content        string   `json:"content"`
		RiskLevel      string   `json:"risk_level"`
		RiskScore      int      `json:"risk_score"`
		Triggers       []string `json:"triggers"`
		CreatedAt      string   `json:"created_at"`
	}
	items := make([]queueItem, 0, len(queue))
	for _, msg := range queue {
		items = append(items, queueItem{
			ID:             msg.ID.String(),
			ConversationID: msg.ConversationID,
			Content:        msg.Content,
			RiskLevel:      string(msg.RiskLevel),
			RiskScore:      msg.RiskScore,
			Triggers:       msg.Triggers,
			CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": items})
}

// HandleSubmit applies a human verdict to a flagged message.
// POST /api/review/{messageID}
func (h *ReviewHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	var req struct {
		ReviewerID        string `json:"reviewer_id"`
		Verdict           string `json:"verdict"`
		Feedback          string `json:"feedback"`
		CorrectedResponse string `json:"corrected_response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		http.Error(w, "reviewer_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.workflow.SubmitReview(r.Context(), review.SubmitParams{
		MessageID:         messageID,
		ReviewerID:        req.ReviewerID,
		Verdict:           review.Verdict(req.Verdict),
		Feedback:          req.Feedback,
		CorrectedResponse: req.CorrectedResponse,
	})
	if err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, review.ErrNotPendingReview):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, review.ErrCorrectionRequired), errors.Is(err, review.ErrUnknownVerdict):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("review submission failed", "error", err.Error())
			http.Error(w, "failed to submit review", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"review_id":  result.ID.String(),
		"message_id": result.MessageID.String(),
		"verdict":    string(result.Verdict),
		"created_at": result.CreatedAt.Format(time.RFC3339),
	})
}
