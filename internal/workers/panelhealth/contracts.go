package panelhealth

import (
	"context"

	"tondar-bot/internal/stories/servers"
)

type Storage interface {
	ListServers(ctx context.Context, criteria servers.ListCriteria) ([]*servers.Server, error)
}

type Checker interface {
	CheckConnection(ctx context.Context, baseURL, username, password string) bool
}

type Notifier interface {
	SendText(ctx context.Context, telegramID int64, text string) error
}
