package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/cardgate-bot/internal/app/broadcastsender"
	"github.com/magabrotheeeer/cardgate-bot/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting broadcast sender", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := broadcastsender.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize broadcast sender", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("broadcast sender stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("broadcast sender stopped gracefully")
}
