package environment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tondar-bot/internal/config"
	"tondar-bot/internal/infra/panels"
	"tondar-bot/internal/infra/sqlite3"
	"tondar-bot/internal/infra/telegram"
)

type Clients struct {
	SQLiteDB    *sqlite3.DB
	TelegramBot *telegram.Client
	Panels      *panels.Factory
}

func newClients(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Clients, error) {
	sqliteDB, err := provideSQLiteDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	telegramBot, err := telegram.NewClient(cfg.Telegram.BotToken, logger.WithGroup("telegram"))
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}

	panelFactory := panels.NewFactory(
		logger.WithGroup("panels"),
		panels.WithTimeout(cfg.Panel.Timeout),
		panels.WithMaxRetries(cfg.Panel.MaxRetries),
		panels.WithRetryBackoff(cfg.Panel.RetryBackoff),
		panels.WithInsecureSkipVerify(cfg.Panel.InsecureSkipVerify),
	)

	return &Clients{
		SQLiteDB:    sqliteDB,
		TelegramBot: telegramBot,
		Panels:      panelFactory,
	}, nil
}

func provideSQLiteDB(ctx context.Context, cfg config.Config) (*sqlite3.DB, error) {
	maxLifetimeStr := cfg.DB.MaxLifetime
	if maxLifetimeStr == "" {
		maxLifetimeStr = "5m"
	}
	maxLifetime, err := time.ParseDuration(maxLifetimeStr)
	if err != nil {
		return nil, err
	}

	opts := []sqlite3.Option{
		sqlite3.WithDSN(cfg.DB.Path),
		sqlite3.WithMaxOpenConns(cfg.DB.MaxOpenConns),
		sqlite3.WithMaxIdleConns(cfg.DB.MaxIdleConns),
		sqlite3.WithConnMaxLifetime(maxLifetime),
	}

	return sqlite3.New(ctx, opts...)
}
