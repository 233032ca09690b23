package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/coursegate/internal/pkg/config"
	"github.com/tjfontaine/coursegate/internal/runtime"
	"github.com/tjfontaine/coursegate/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("coursegate exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger
	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.Telemetry.Tracing {
		shutdown, err := telemetry.InitTracer("coursegate", logger,
			telemetry.WithServiceVersion(version),
			telemetry.WithEnvironment(cfg.Env),
		)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	app, err := runtime.New(
		runtime.WithConfig(cfg),
		runtime.WithLogger(logger),
		runtime.WithVersion(version),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping coursegate")
	case serveErr = <-app.Errors():
		if serveErr == nil {
			serveErr = errors.New("server stopped unexpectedly")
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return errors.Join(serveErr, app.Shutdown(shutdownCtx))
}
