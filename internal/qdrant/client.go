// Package qdrant is a minimal REST client for Qdrant similarity search.
//
// Qdrant changed its search API in 1.10: the legacy POST
// /collections/{name}/points/search call was superseded by POST
// /collections/{name}/points/query, which wraps hits in a "points" object.
// Both shapes remain deployed, so the client probes the server version once
// at construction and picks the call to use; an unreachable or unparsable
// version banner falls back to the legacy call, which every release accepts.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rutoken/docs-assistant/internal/log"
)

// queryAPIMinVersion is the first release shipping points/query.
const queryAPIMinVersion = "1.10"

// Hit is a single scored search result with its payload attached.
type Hit struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Config configures the client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Client talks to one Qdrant collection.
type Client struct {
	baseURL     string
	apiKey      string
	collection  string
	httpc       *http.Client
	useQueryAPI bool
	logger      log.Logger
}

// New creates a client and probes the server for points/query support.
// The probe is best-effort: a failure selects the legacy search call and is
// logged, not returned, so construction works while Qdrant is still booting.
func New(cfg Config, logger log.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpc:      &http.Client{Timeout: timeout},
		logger:     logger,
	}
	c.useQueryAPI = c.probeQueryAPI()
	return c
}

// probeQueryAPI fetches the root version banner and reports whether the
// server understands points/query.
func (c *Client) probeQueryAPI() bool {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("qdrant version probe failed, using legacy search API", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	var banner struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&banner); err != nil || banner.Version == "" {
		c.logger.Warn("qdrant version banner unreadable, using legacy search API")
		return false
	}

	supported := versionAtLeast(banner.Version, queryAPIMinVersion)
	c.logger.Debug("qdrant capability probe",
		"version", banner.Version,
		"query_api", supported)
	return supported
}

// versionAtLeast compares dotted numeric versions component-wise.
// Non-numeric components (pre-release suffixes) terminate the comparison.
func versionAtLeast(version, minimum string) bool {
	vp := strings.Split(version, ".")
	mp := strings.Split(minimum, ".")
	for i := 0; i < len(mp); i++ {
		if i >= len(vp) {
			return false
		}
		v, err := strconv.Atoi(strings.TrimSpace(vp[i]))
		if err != nil {
			return false
		}
		m, err := strconv.Atoi(mp[i])
		if err != nil {
			return false
		}
		if v != m {
			return v > m
		}
	}
	return true
}

// Search returns the limit nearest points to vector, payload attached,
// ordered by the server's own relevance ranking.
func (c *Client) Search(ctx context.Context, vector []float64, limit int) ([]Hit, error) {
	if c.useQueryAPI {
		return c.queryPoints(ctx, vector, limit)
	}
	return c.searchPoints(ctx, vector, limit)
}

// searchPoints uses the legacy points/search call. Hits arrive directly
// under "result".
func (c *Client) searchPoints(ctx context.Context, vector []float64, limit int) ([]Hit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var out struct {
		Result []Hit `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// queryPoints uses the current points/query call. Hits arrive under
// "result.points".
func (c *Client) queryPoints(ctx context.Context, vector []float64, limit int) ([]Hit, error) {
	body := map[string]any{
		"query":        vector,
		"limit":        limit,
		"with_payload": true,
	}
	var out struct {
		Result struct {
			Points []Hit `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return out.Result.Points, nil
}

// Ping checks that the configured collection exists and is reachable.
func (c *Client) Ping(ctx context.Context) error {
	path := fmt.Sprintf("/collections/%s", c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant ping: collection %q: %s", c.collection, resp.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		// Bounded read: error bodies are small, but never trust that.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant POST %s: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding qdrant response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
