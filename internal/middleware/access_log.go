package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pingup/backend/internal/logging"
)

// ActorHeader carries the caller's user id. The identity provider in front of
// the service verifies the session and sets it.
const ActorHeader = "X-User-ID"

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}

// RequestLogger scopes a logger to each request, tagged with the request id
// and acting user, and writes one access line when the handler returns.
// A panicking handler is answered with 500.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			id := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			actor := strings.TrimSpace(r.Header.Get(ActorHeader))

			logger := base.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			ctx := logging.WithRequestID(r.Context(), id)
			if actor != "" {
				logger = logger.With("actor_id", actor)
				ctx = logging.WithActorID(ctx, actor)
			}
			ctx = logging.WithLogger(ctx, logger)

			w.Header().Set(requestIDHeader, id)
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if p := recover(); p != nil {
					logger.Error("handler panicked", "panic", p)
					http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
				logger.Info("http request",
					"status", rec.status(),
					"duration", time.Since(started),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}
