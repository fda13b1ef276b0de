package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutoken/docs-assistant/internal/feedback"
	"github.com/rutoken/docs-assistant/internal/testutil"
)

type failingStore struct{}

func (failingStore) Append(context.Context, feedback.Record) error {
	return errors.New("pg: connection reset")
}

func TestFeedback_HappyPath(t *testing.T) {
	t.Parallel()

	store := feedback.NewMemoryStore()
	h := &feedbackHandler{store: store, logger: testutil.DiscardLogger()}

	body := `{"answer_id":"answer-1","vote":"up","question":"Как?","answer":"Так."}`
	w := postJSON(t, h.submit, "/api/assistant/feedback", body)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["ok"])

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "answer-1", records[0].AnswerID)
	assert.Equal(t, feedback.VoteUp, records[0].Vote)
	assert.Equal(t, "Как?", records[0].Question)
}

func TestFeedback_Validation(t *testing.T) {
	t.Parallel()

	longID := strings.Repeat("a", maxAnswerIDChars+1)
	longAnswer := strings.Repeat("щ", maxFeedbackAnswerChars+1)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"vote":`},
		{"missing answer_id", `{"vote":"up"}`},
		{"blank answer_id", `{"answer_id":"  ","vote":"up"}`},
		{"oversized answer_id", `{"answer_id":"` + longID + `","vote":"up"}`},
		{"unknown vote", `{"answer_id":"a1","vote":"meh"}`},
		{"missing vote", `{"answer_id":"a1"}`},
		{"oversized answer", `{"answer_id":"a1","vote":"down","answer":"` + longAnswer + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := feedback.NewMemoryStore()
			h := &feedbackHandler{store: store, logger: testutil.DiscardLogger()}

			w := postJSON(t, h.submit, "/api/assistant/feedback", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
			assert.Empty(t, store.Records(), "rejected feedback must not be stored")
		})
	}
}

func TestFeedback_StoreFailure(t *testing.T) {
	t.Parallel()

	h := &feedbackHandler{store: failingStore{}, logger: testutil.DiscardLogger()}

	w := postJSON(t, h.submit, "/api/assistant/feedback", `{"answer_id":"a1","vote":"down"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "feedback_failed", resp.Error)
}
