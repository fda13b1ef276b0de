package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const readinessTimeout = 5 * time.Second

// Pinger reports whether a backing service is reachable.
// Implemented by the vector store client; pgxpool.Pool matches it too.
type Pinger interface {
	Ping(ctx context.Context) error
}

// health is the liveness probe. Always 200, no dependency checks.
func health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness is the readiness probe. It pings the vector store and, when a
// database pool is configured, the database. Any failure degrades to 503.
func readiness(vector Pinger, pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true

		if vector != nil {
			if err := vector.Ping(ctx); err != nil {
				checks["qdrant"] = err.Error()
				ready = false
			} else {
				checks["qdrant"] = "ok"
			}
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				checks["database"] = err.Error()
				ready = false
			} else {
				checks["database"] = "ok"
			}
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		WriteJSON(w, status, map[string]any{"status": state, "checks": checks})
	})
}
