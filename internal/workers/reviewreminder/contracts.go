package reviewreminder

import (
	"context"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/users"
)

type (
	Storage interface {
		ListOrders(ctx context.Context, criteria orders.ListCriteria) ([]*orders.Order, error)
		ListUsers(ctx context.Context, criteria users.ListCriteria) ([]*users.User, error)
	}

	Notifier interface {
		SendText(ctx context.Context, telegramID int64, text string) error
	}
)
