package expiration

import (
	"context"
	"time"

	"tondar-bot/internal/stories/orders"
)

type (
	// Lifecycle is the order service surface the worker drives.
	Lifecycle interface {
		ListExpired(ctx context.Context, now time.Time) ([]*orders.Order, error)
		ExpireOrder(ctx context.Context, order *orders.Order) error
	}
)
