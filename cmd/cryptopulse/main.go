package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adawang1210/crypto-discord-bot/internal/app"
	"github.com/adawang1210/crypto-discord-bot/internal/config"
	"github.com/adawang1210/crypto-discord-bot/internal/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "once" {
		// One-shot mode for cron-style deployments and manual runs.
		if err := application.TriggerRun(ctx); err != nil {
			log.Error("digest run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.Run(ctx); err != nil {
		log.Error("app exited with error", "error", err)
		os.Exit(1)
	}
}
