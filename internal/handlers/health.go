package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	Database Pinger
	Timeout  time.Duration
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Database != nil {
		timeout := h.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := h.Database.Ping(pingCtx); err != nil {
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
