package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k0kubun/pp"

	"github.com/johnrirwin/socialfeed/internal/app"
	"github.com/johnrirwin/socialfeed/internal/config"
	"github.com/johnrirwin/socialfeed/internal/logging"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.New(logging.LevelError).Error("Invalid configuration", logging.WithField("error", err.Error()))
		os.Exit(2)
	}

	application, err := app.New(cfg)
	if err != nil {
		logging.New(logging.LevelError).Error("Failed to start", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	logger := application.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = application.HTTPServer.Shutdown(shutdownCtx)
	}()

	runErr := application.Run(ctx)

	if runErr == nil && cfg.Server.Dump {
		state := application.Composer.State()
		pp.Println(state.Items)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	_ = application.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("Run failed", logging.WithField("error", runErr.Error()))
		os.Exit(1)
	}
}
