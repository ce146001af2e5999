package reviewreminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/users"
)

// Worker pings accountants once a day about receipts still waiting for
// review, so orders do not rot in PENDING_REVIEW unnoticed.
const defaultSchedule = "0 9 * * *"

type Worker struct {
	storage  Storage
	notifier Notifier
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewWorker(storage Storage, notifier Notifier, schedule string, logger *slog.Logger) *Worker {
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Worker{
		storage:  storage,
		notifier: notifier,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

func (w *Worker) Name() string {
	return "reviewreminder"
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		if err := w.run(context.Background()); err != nil {
			w.logger.Error("Review reminder failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule review reminder: %w", err)
	}

	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Worker) run(ctx context.Context) error {
	pending, err := w.storage.ListOrders(ctx, orders.ListCriteria{
		Statuses: []orders.Status{orders.StatusPendingReview},
	})
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	accountants, err := w.storage.ListUsers(ctx, users.ListCriteria{
		Role: lo.ToPtr(users.RoleAccountant),
	})
	if err != nil {
		return fmt.Errorf("list accountants: %w", err)
	}
	if len(accountants) == 0 {
		w.logger.Warn("Pending receipts but no accountants to remind", "count", len(pending))
		return nil
	}

	text := fmt.Sprintf("%d payment receipt(s) are waiting for review. Use /receipts to process them.", len(pending))
	for _, accountant := range accountants {
		if err := w.notifier.SendText(ctx, accountant.TelegramID, text); err != nil {
			w.logger.Warn("Failed to remind accountant",
				"telegram_id", accountant.TelegramID,
				"error", err)
		}
	}

	w.logger.Info("Review reminders sent",
		"pending_orders", len(pending),
		"accountants", len(accountants))
	return nil
}
