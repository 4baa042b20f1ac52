package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kapu/gamehub-backend-go/internal/app"
	"github.com/kapu/gamehub-backend-go/internal/config"
	"github.com/kapu/gamehub-backend-go/internal/health"
	"github.com/kapu/gamehub-backend-go/internal/logging"
)

const buildTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:      cfg.Logging.Level,
		Dir:        cfg.Logging.Dir,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	health.Init(cfg.Version)
	logger.Info("GameHub backend starting...",
		slog.String("version", cfg.Version),
		slog.String("log_level", cfg.Logging.Level),
		slog.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buildCtx, buildCancel := context.WithTimeout(ctx, buildTimeout)
	container, err := app.BuildContainer(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", slog.Any("error", err))
		os.Exit(1)
	}
	defer container.Close()

	if err := container.Run(ctx); err != nil {
		logger.Error("Server terminated with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
