package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pingup/backend/internal/config"
	"github.com/pingup/backend/internal/db"
	"github.com/pingup/backend/internal/handlers"
	"github.com/pingup/backend/internal/middleware"
	"github.com/pingup/backend/internal/notify"
	"github.com/pingup/backend/internal/relationships"
	"github.com/pingup/backend/internal/repositories"
	"github.com/pingup/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains pending notifications.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	sink, err := buildSink(ctx, cfg.Notify, logger)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	dispatcher := notify.NewDispatcher(sink, notify.DispatcherConfig{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
	}, logger)

	svc := relationships.NewService(
		repositories.NewPostgresUserRepository(pool),
		repositories.NewPostgresConnectionRepository(pool),
		relationships.Options{
			MaxPendingRequests: cfg.MaxPendingRequests,
			RequestWindow:      cfg.RequestWindow,
			Notifier:           dispatcher,
		},
	)

	limiter := middleware.NewActorThrottle(middleware.ThrottleRule{
		Requests: cfg.Throttle.Requests,
		Window:   cfg.Throttle.Window,
		Burst:    cfg.Throttle.Burst,
		IdleTTL:  cfg.Throttle.TTL,
	})

	return handlers.Dependencies{
		Relationships: svc,
		Limiter:       limiter,
		Database:      pool,
	}, dispatcher.Shutdown, nil
}

func buildSink(ctx context.Context, cfg config.NotifyConfig, logger *slog.Logger) (notify.Sink, error) {
	switch cfg.Sink {
	case config.NotifySinkLog, "":
		return notify.LogSink{Logger: logger}, nil
	case config.NotifySinkS3:
		objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("configure notification archive: %w", err)
		}
		return notify.ArchiveSink{Objects: objects, Prefix: cfg.ObjectStore.Prefix}, nil
	default:
		return nil, fmt.Errorf("unknown notification sink %q", cfg.Sink)
	}
}
