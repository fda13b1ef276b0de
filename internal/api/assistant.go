package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rutoken/docs-assistant/internal/assistant"
)

// Request body limits. Oversized fields are rejected before any model call
// so a hostile client cannot burn tokens.
const (
	maxRequestBody     = 1 << 20 // 1MB
	maxQuestionChars   = 4000
	maxHistoryChars    = 6000
	maxTopK            = 12
	maxHistoryMessages = 64
)

// SSE event types for answer streaming.
const (
	eventDelta = "delta" // partial answer text
	eventFinal = "final" // complete Answer payload
	eventError = "error" // terminal failure
)

// deltaPayload is the SSE data payload for streamed text fragments.
type deltaPayload struct {
	Text string `json:"text"`
}

// errorPayload is the SSE data payload for terminal stream failures.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Assistant answers questions. Implemented by assistant.Service.
type Assistant interface {
	Ask(ctx context.Context, question string, history []assistant.HistoryMessage, topK int) (assistant.Answer, error)
	StreamAnswer(ctx context.Context, question string, history []assistant.HistoryMessage, topK int) iter.Seq2[assistant.StreamValue, error]
}

// assistantHandler serves the question answering endpoints.
//
//   - POST /api/assistant        - blocking answer (JSON request/response)
//   - POST /api/assistant/stream - streamed answer (SSE)
type assistantHandler struct {
	svc    Assistant
	logger *slog.Logger
}

type askRequest struct {
	Question string                     `json:"question"`
	History  []assistant.HistoryMessage `json:"history"`
	TopK     int                        `json:"top_k"`
}

// validate checks an ask request before anything outbound happens.
// Returns a stable error code and message, or empty code when valid.
func (req *askRequest) validate() (code, message string) {
	if strings.TrimSpace(req.Question) == "" {
		return "invalid_question", "question is required"
	}
	if len([]rune(req.Question)) > maxQuestionChars {
		return "invalid_question", fmt.Sprintf("question exceeds %d characters", maxQuestionChars)
	}
	if len(req.History) > maxHistoryMessages {
		return "invalid_request", fmt.Sprintf("history exceeds %d messages", maxHistoryMessages)
	}
	for i, m := range req.History {
		if m.Role != assistant.RoleUser && m.Role != assistant.RoleAssistant {
			return "invalid_request", fmt.Sprintf("history[%d]: role must be %q or %q", i, assistant.RoleUser, assistant.RoleAssistant)
		}
		if strings.TrimSpace(m.Content) == "" {
			return "invalid_request", fmt.Sprintf("history[%d]: content is required", i)
		}
		if len([]rune(m.Content)) > maxHistoryChars {
			return "invalid_request", fmt.Sprintf("history[%d]: content exceeds %d characters", i, maxHistoryChars)
		}
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		return "invalid_request", fmt.Sprintf("top_k must be between 1 and %d", maxTopK)
	}
	return "", ""
}

// ask handles POST /api/assistant.
func (h *assistantHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if code, message := req.validate(); code != "" {
		WriteError(w, http.StatusBadRequest, code, message, h.logger)
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Question, req.History, req.TopK)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			WriteError(w, http.StatusBadRequest, "invalid_question", "question is required", h.logger)
			return
		}
		h.logger.Error("answer generation failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		WriteError(w, http.StatusInternalServerError, "assistant_failed", "failed to generate answer", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, answer)
}

// stream handles POST /api/assistant/stream.
//
// The response is text/event-stream. Text fragments arrive as delta events,
// followed by exactly one final event carrying the complete answer. Any
// failure, including invalid input, becomes a terminal error event; the
// stream never ends without either a final or an error event.
func (h *assistantHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "invalid_request", Message: "invalid request body"})
		return
	}
	if code, message := req.validate(); code != "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: code, Message: message})
		return
	}

	ctx := r.Context()
	requestID := requestIDFromContext(ctx)
	h.logger.Debug("sse stream started", "request_id", requestID)

	for value, err := range h.svc.StreamAnswer(ctx, req.Question, req.History, req.TopK) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected mid-stream", "request_id", requestID)
			return
		default:
		}

		if err != nil {
			h.writeStreamError(w, flusher, err, requestID)
			return
		}

		if value.Done {
			_ = writeEvent(w, flusher, eventFinal, value.Final)
			h.logger.Debug("sse stream completed", "request_id", requestID, "answer_id", value.Final.AnswerID)
			return
		}

		if value.Delta != "" {
			if err := writeEvent(w, flusher, eventDelta, deltaPayload{Text: value.Delta}); err != nil {
				// Write failure usually means the connection closed.
				h.logger.Debug("failed to write delta", "error", err, "request_id", requestID)
				return
			}
		}
	}
}

// writeStreamError maps a pipeline error to a terminal SSE error event.
func (h *assistantHandler) writeStreamError(w io.Writer, f http.Flusher, err error, requestID string) {
	code := "assistant_failed"
	message := "failed to generate answer"
	if errors.Is(err, assistant.ErrEmptyQuestion) {
		code = "invalid_question"
		message = "question is required"
	} else {
		h.logger.Error("stream failed", "error", err, "request_id", requestID)
	}
	_ = writeEvent(w, f, eventError, errorPayload{Code: code, Message: message})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
