package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/phillip-england/hrms/internal/clientapp"
	"github.com/phillip-england/hrms/internal/config"
	"github.com/phillip-england/hrms/internal/envutil"
	"github.com/phillip-england/hrms/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	settings, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(settings.LogLevel, false)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := clientapp.ConfigFrom(settings, logger)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("client stopped", zap.Error(err))
	}
}
