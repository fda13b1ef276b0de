package qdrant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutoken/docs-assistant/internal/log"
)

// fakeQdrant simulates a Qdrant server of a given version, accepting either
// the legacy or the modern search call.
type fakeQdrant struct {
	version     string
	searchCalls int
	queryCalls  int
	hits        []map[string]any
	lastBody    map[string]any
	lastAPIKey  string
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		f.lastAPIKey = r.Header.Get("api-key")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":   "qdrant - vector search engine",
			"version": f.version,
		})
	})
	mux.HandleFunc("POST /collections/{name}/points/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls++
		f.lastAPIKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"result": f.hits})
	})
	mux.HandleFunc("POST /collections/{name}/points/query", func(w http.ResponseWriter, r *http.Request) {
		f.queryCalls++
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"points": f.hits},
		})
	})
	mux.HandleFunc("GET /collections/{name}", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "green"}})
	})
	return mux
}

func testHits() []map[string]any {
	return []map[string]any{
		{"id": 1, "score": 0.92, "payload": map[string]any{"text": "first"}},
		{"id": 2, "score": 0.85, "payload": map[string]any{"text": "second"}},
	}
}

func TestSearch_ModernServerUsesQueryAPI(t *testing.T) {
	t.Parallel()

	fake := &fakeQdrant{version: "1.12.4", hits: testHits()}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(Config{URL: srv.URL, Collection: "docs"}, log.NewNop())
	require.True(t, c.useQueryAPI)

	hits, err := c.Search(t.Context(), []float64{0.1, 0.2}, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.queryCalls)
	assert.Zero(t, fake.searchCalls)
	require.Len(t, hits, 2)
	assert.InDelta(t, 0.92, hits[0].Score, 1e-9)
	assert.Equal(t, "first", hits[0].Payload["text"])

	// Modern call carries the vector under "query".
	assert.Contains(t, fake.lastBody, "query")
	assert.Equal(t, true, fake.lastBody["with_payload"])
	assert.Equal(t, float64(5), fake.lastBody["limit"])
}

func TestSearch_LegacyServerUsesSearchAPI(t *testing.T) {
	t.Parallel()

	fake := &fakeQdrant{version: "1.9.2", hits: testHits()}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(Config{URL: srv.URL, Collection: "docs"}, log.NewNop())
	require.False(t, c.useQueryAPI)

	hits, err := c.Search(t.Context(), []float64{0.1, 0.2}, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.searchCalls)
	assert.Zero(t, fake.queryCalls)
	assert.Len(t, hits, 2)

	// Legacy call carries the vector under "vector".
	assert.Contains(t, fake.lastBody, "vector")
}

func TestNew_ProbeFailureFallsBackToLegacy(t *testing.T) {
	t.Parallel()

	// Unreachable server: probe fails, client still constructs.
	c := New(Config{
		URL:        "http://127.0.0.1:1",
		Collection: "docs",
		Timeout:    200 * time.Millisecond,
	}, log.NewNop())

	assert.False(t, c.useQueryAPI)
}

func TestSearch_APIKeyHeader(t *testing.T) {
	t.Parallel()

	fake := &fakeQdrant{version: "1.9.0", hits: nil}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(Config{URL: srv.URL, APIKey: "secret", Collection: "docs"}, log.NewNop())
	_, err := c.Search(t.Context(), []float64{0.5}, 1)
	require.NoError(t, err)
	assert.Equal(t, "secret", fake.lastAPIKey)
}

func TestSearch_ServerErrorPropagates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_ = json.NewEncoder(w).Encode(map[string]any{"version": "1.9.0"})
			return
		}
		http.Error(w, `{"status":{"error":"collection not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Collection: "missing"}, log.NewNop())
	_, err := c.Search(t.Context(), []float64{0.5}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPing(t *testing.T) {
	t.Parallel()

	fake := &fakeQdrant{version: "1.12.0"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := New(Config{URL: srv.URL, Collection: "docs"}, log.NewNop())
	assert.NoError(t, c.Ping(t.Context()))
}

func TestVersionAtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		minimum string
		want    bool
	}{
		{"1.10.0", "1.10", true},
		{"1.10", "1.10", true},
		{"1.12.4", "1.10", true},
		{"2.0.0", "1.10", true},
		{"1.9.7", "1.10", false},
		{"0.11.5", "1.10", false},
		{"1", "1.10", false},
		{"garbage", "1.10", false},
		{"1.x", "1.10", false},
	}

	for _, tc := range tests {
		t.Run(tc.version, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, versionAtLeast(tc.version, tc.minimum))
		})
	}
}
