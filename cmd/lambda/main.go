package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"tourism-chat/handler"
	"tourism-chat/internal/app"
	"tourism-chat/internal/config"
	"tourism-chat/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", "config", cfg)

	// ---- Clients ----
	var params app.Params
	if app.NeedsParams(cfg) {
		ps, err := app.NewParamStore(ctx)
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		params = ps
	}

	dispatcher, err := app.NewDispatcher(ctx, cfg, params, usecase.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(dispatcher, handler.WithAllowedOrigin(cfg.AllowedOrigin), handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
