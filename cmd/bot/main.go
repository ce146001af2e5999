package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	environment "tondar-bot/internal/env"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := environment.Setup(ctx)
	if err != nil {
		log.Fatalf("Failed to setup environment: %v", err)
	}

	logger := env.Logger
	logger.Info("Starting tondar-bot")

	go func() {
		logger.Info("Starting observability server", slog.String("addr", env.Servers.HTTP.Observability.Addr))
		if err := env.Servers.HTTP.Observability.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Observability server error", slog.Any("error", err))
		}
	}()

	if err := env.Clients.TelegramBot.Start(ctx); err != nil {
		logger.Error("Failed to start telegram bot", slog.Any("error", err))
		return
	}
	go routeUpdates(ctx, env)

	if err := env.Services.Workers.Start(); err != nil {
		logger.Error("Failed to start workers", slog.Any("error", err))
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Bot started. Press Ctrl+C to stop.")
	<-quit

	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), env.Config.ShutdownDuration)
	defer shutdownCancel()

	env.Services.Workers.Stop()
	env.Clients.TelegramBot.Stop()

	if err := env.Servers.HTTP.Observability.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		logger.Error("Observability server shutdown error", slog.Any("error", err))
	}

	for _, closer := range env.Closers {
		closer()
	}

	logger.Info("Stopped")
}

func routeUpdates(ctx context.Context, env *environment.Env) {
	logger := env.Logger
	updates := env.Clients.TelegramBot.GetUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := env.Services.TelegramRouter.Route(&update); err != nil {
				logger.Error("Failed to handle update", slog.Any("error", err))
			}
		}
	}
}
