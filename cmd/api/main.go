package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"splay/cmd/config"
	"splay/internal/utils"
	"splay/internal/utils/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := utils.GetAppConfig()
	log := logger.NewForEnvironment(cfg.Environment, cfg.LogLevel)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg utils.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(log)
	if err != nil {
		return err
	}

	app, err := config.NewApp(ctx, db, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("environment", cfg.Environment))
		serveErr <- app.Fiber.Listen(addr)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}
