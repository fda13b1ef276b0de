package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutoken/docs-assistant/internal/testutil"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "hello", result["message"])
}

func TestWriteError_Envelope(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "invalid_request", "bad body", testutil.DiscardLogger())

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "invalid_request", result.Error)
	assert.Equal(t, "bad body", result.Message)
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code, "encode failure must not leak a 200")
}
