// Package api is the HTTP surface of the assistant: request decoding and
// validation, the answer and feedback endpoints, SSE streaming, and the
// middleware stack around them.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rutoken/docs-assistant/internal/feedback"
)

// ServerConfig contains the dependencies and knobs for the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Assistant   Assistant      // Required
	Feedback    feedback.Store // Required
	Vector      Pinger         // Optional: nil disables the qdrant check in /ready
	Pool        *pgxpool.Pool  // Optional: nil disables the database check in /ready
	CORSOrigins []string       // Allowed origins for CORS
	TrustProxy  bool           // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int            // Rate limiter burst size per IP (0 = default 30)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("assistant service is required")
	}
	if cfg.Feedback == nil {
		return nil, errors.New("feedback store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &assistantHandler{svc: cfg.Assistant, logger: logger}
	fh := &feedbackHandler{store: cfg.Feedback, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/assistant", ah.ask)
	mux.HandleFunc("POST /api/assistant/stream", ah.stream)
	mux.HandleFunc("POST /api/assistant/feedback", fh.submit)

	// Rate limiter: per-IP token bucket (1 token/sec refill).
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	inner := handler
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		inner.ServeHTTP(w, r)
	})

	// Health probes stay outside the middleware stack so orchestrator
	// polling is never rate limited or logged per request.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Vector, cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
