package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pingup/backend/internal/config"
	"github.com/pingup/backend/internal/db"
	"github.com/pingup/backend/internal/handlers"
	"github.com/pingup/backend/internal/httpserver"
	"github.com/pingup/backend/internal/middleware"
)

// Run bootstraps the PingUp backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrate(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level}))
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMax)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(mux)

	srv := httpserver.New(cfg.AppPort, handler)

	logger.Info("starting http server", "port", cfg.AppPort, "notifySink", cfg.Notify.Sink)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if err := cleanup(shutdownCtx); err != nil {
		logger.Warn("notification dispatcher did not drain", "error", err)
	}

	return runErr
}

func parseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func runMigrate(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("migrate takes no arguments, got %q", args)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, err := resolveDir(cfg.MigrationDir)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMax)
	if err != nil {
		return err
	}
	defer pool.Close()

	files, err := bootstrapSchema(ctx, pool, dir)
	if err != nil {
		return err
	}
	slog.Info("schema ready", "dir", dir, "files", files)
	return nil
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a single seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, err := resolveDir(cfg.SeedDir)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMax)
	if err != nil {
		return err
	}
	defer pool.Close()

	file, err := applySeed(ctx, pool, dir, args[0])
	if err != nil {
		return err
	}
	slog.Info("seed applied", "file", file)
	return nil
}
