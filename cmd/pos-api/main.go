package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aq2208/gorder-pos/cmd/pos-api/app"
	"github.com/aq2208/gorder-pos/configs"
	"github.com/aq2208/gorder-pos/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Init(cfg.App.Name, cfg.App.LogLevel, cfg.App.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg)
	if err != nil {
		logger.Error("pos-api: init failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("pos-api: listening", "env", env, "addr", cfg.App.HTTPAddr,
		"storage", cfg.Storage.Driver, "inventory_mode", cfg.Checkout.InventoryMode)
	if err := a.Run(ctx); err != nil {
		logger.Error("pos-api: stopped with error", "err", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("pos-api: shut down")
}
