package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rutoken/docs-assistant/internal/feedback"
)

const (
	maxAnswerIDChars       = 120
	maxFeedbackAnswerChars = 12000
)

// feedbackHandler serves POST /api/assistant/feedback.
type feedbackHandler struct {
	store  feedback.Store
	logger *slog.Logger
}

type feedbackRequest struct {
	AnswerID string `json:"answer_id"`
	Vote     string `json:"vote"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (req *feedbackRequest) validate() (code, message string) {
	if strings.TrimSpace(req.AnswerID) == "" {
		return "invalid_request", "answer_id is required"
	}
	if len([]rune(req.AnswerID)) > maxAnswerIDChars {
		return "invalid_request", fmt.Sprintf("answer_id exceeds %d characters", maxAnswerIDChars)
	}
	if req.Vote != feedback.VoteUp && req.Vote != feedback.VoteDown {
		return "invalid_request", fmt.Sprintf("vote must be %q or %q", feedback.VoteUp, feedback.VoteDown)
	}
	if len([]rune(req.Question)) > maxQuestionChars {
		return "invalid_request", fmt.Sprintf("question exceeds %d characters", maxQuestionChars)
	}
	if len([]rune(req.Answer)) > maxFeedbackAnswerChars {
		return "invalid_request", fmt.Sprintf("answer exceeds %d characters", maxFeedbackAnswerChars)
	}
	return "", ""
}

func (h *feedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if code, message := req.validate(); code != "" {
		WriteError(w, http.StatusBadRequest, code, message, h.logger)
		return
	}

	rec := feedback.Record{
		AnswerID: req.AnswerID,
		Vote:     req.Vote,
		Question: req.Question,
		Answer:   req.Answer,
	}
	if err := h.store.Append(r.Context(), rec); err != nil {
		h.logger.Error("failed to record feedback", "error", err, "answer_id", req.AnswerID)
		WriteError(w, http.StatusInternalServerError, "feedback_failed", "failed to record feedback", h.logger)
		return
	}

	h.logger.Info("feedback recorded", "answer_id", req.AnswerID, "vote", req.Vote)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
