package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span represents a logical unit of work tied to a request trace.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from the provided context, enriching the logger
// with tracing metadata and the supplied attributes. It returns the derived
// context and the span handle.
func StartSpan(ctx context.Context, name string, attrs ...slog.Attr) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	parentSpanID := SpanIDFromContext(ctx)
	spanID := uuid.NewString()

	args := []any{
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	}
	if parentSpanID != "" {
		args = append(args, slog.String("parent_span_id", parentSpanID))
	}
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger = logger.With(args...)

	ctx = WithLogger(ctx, logger)
	ctx = WithSpanID(ctx, spanID)

	span := &Span{
		name:   name,
		logger: logger,
		start:  time.Now(),
	}

	return ctx, span
}

// End finalizes the span and emits a completion log entry. A non-nil err is
// attached to the entry and raises it to warning level.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.logger.Warn("span failed", slog.Duration("duration", time.Since(s.start)), slog.Any("error", err))
		return
	}
	s.logger.Info("span completed", slog.Duration("duration", time.Since(s.start)))
}
