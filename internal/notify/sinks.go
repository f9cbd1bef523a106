package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	Logger *slog.Logger
}

// Deliver logs the event.
func (s LogSink) Deliver(_ context.Context, event Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("relationship event",
		slog.String("event", event.Name),
		slog.String("requestId", event.RequestID),
		slog.String("fromUserId", event.FromUserID),
		slog.String("toUserId", event.ToUserID),
		slog.Time("occurredAt", event.OccurredAt),
	)
	return nil
}

// ObjectWriter stores a named object, e.g. storage.S3Storage.
type ObjectWriter interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// ErrObjectWriterUnavailable indicates the archive sink has no object writer configured.
var ErrObjectWriterUnavailable = errors.New("object writer unavailable")

// ArchiveSink writes every event as a JSON object under
// <prefix>/<event name>/<request id>.json so other services can pick them up.
type ArchiveSink struct {
	Objects ObjectWriter
	Prefix  string
}

// Deliver encodes and stores the event.
func (s ArchiveSink) Deliver(ctx context.Context, event Event) error {
	if s.Objects == nil {
		return ErrObjectWriterUnavailable
	}
	if strings.TrimSpace(event.RequestID) == "" {
		return errors.New("archive sink: event has no request id")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := s.Objects.Save(ctx, s.key(event), bytes.NewReader(body)); err != nil {
		return fmt.Errorf("archive event %s: %w", event.RequestID, err)
	}
	return nil
}

func (s ArchiveSink) key(event Event) string {
	name := strings.ReplaceAll(strings.Trim(event.Name, "/"), "/", "-")
	return path.Join(s.Prefix, name, event.RequestID+".json")
}
