package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"nft-curator/handler"
	"nft-curator/internal/app"
	"nft-curator/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := app.SetupLogging(cfg.SlogLevel())

	// ---- Service graph ----
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build curator service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(a.Curator)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
