package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nft-curator/internal/api"
	"nft-curator/internal/app"
	"nft-curator/internal/config"
	"nft-curator/internal/integrations/bus"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := app.SetupLogging(cfg.SlogLevel())
	logger.Info("nft-curator starting", "port", cfg.APIPort, "inbox", cfg.BusInboxSubject)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build curator service", "err", err)
		os.Exit(1)
	}

	client, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.Serve(ctx, cfg.BusInboxSubject, cfg.BusOutboxSubject, a.Curator); err != nil {
		logger.Error("failed to subscribe", "err", err)
		os.Exit(1)
	}

	srv := api.NewServer(cfg.APIPort, a.Store, client.Connected, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("API server failed", "err", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown", "err", err)
	}
	cancel()
}
