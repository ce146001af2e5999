package environment

import (
	"context"
	"log/slog"
	"time"

	"tondar-bot/internal/config"
	"tondar-bot/internal/security"
	"tondar-bot/internal/storage"
	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/pricing"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/telegram"
	"tondar-bot/internal/telegram/states"
	"tondar-bot/internal/workers"
	"tondar-bot/internal/workers/expiration"
	"tondar-bot/internal/workers/panelhealth"
	"tondar-bot/internal/workers/reviewreminder"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Services struct {
	TelegramRouter *telegram.Router
	Orders         *orders.Service
	Workers        *workers.Manager
}

func newServices(ctx context.Context, clients *Clients, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	var s Services

	storageImpl := storage.New(clients.SQLiteDB.DB)
	if err := storageImpl.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	now := func() time.Time { return time.Now().UTC() }

	userService := users.NewService(storageImpl)
	planService := plans.NewService(storageImpl, pricingModel(cfg.Pricing))
	serverService := servers.NewService(storageImpl, clients.Panels)
	orderService := orders.NewService(
		storageImpl,
		clients.Panels,
		clients.TelegramBot,
		logger.WithGroup("orders"),
		now,
	)
	s.Orders = orderService

	s.TelegramRouter = telegram.NewRouter(telegram.RouterDeps{
		Bot:           clients.TelegramBot,
		Photos:        clients.TelegramBot,
		StateManager:  states.NewManager(),
		Limiter:       security.NewRateLimiter(cfg.Telegram.RateLimitPerMinute),
		Logger:        logger.WithGroup("router"),
		UserService:   userService,
		OrderService:  orderService,
		PlanService:   planService,
		ServerService: serverService,
		Settings:      storageImpl,
		Traffic:       clients.Panels,
		AdminIDs:      cfg.Telegram.AdminIDs,
	})

	s.Workers = workers.NewManager(
		logger.WithGroup("workers"),
		expiration.NewWorker(orderService, cfg.Workers.ExpirationInterval, logger.WithGroup("expiration"), now),
		reviewreminder.NewWorker(storageImpl, clients.TelegramBot, cfg.Workers.ReviewReminderCron, logger.WithGroup("reviewreminder")),
		panelhealth.NewWorker(
			storageImpl,
			clients.Panels,
			clients.TelegramBot,
			cfg.Telegram.AdminIDs,
			cfg.Workers.PanelHealthInterval,
			logger.WithGroup("panelhealth"),
		),
	)

	return &s, nil
}

// pricingModel builds the optional plan price calculator. Disabled
// entirely when no per-GB price is configured.
func pricingModel(cfg config.PricingConfig) *pricing.Model {
	if cfg.PricePerGB <= 0 {
		return nil
	}
	model := &pricing.Model{
		PricePerGB:     cfg.PricePerGB,
		AdditionalUser: cfg.AdditionalUser,
		MaxMonths:      cfg.MaxMonths,
	}
	if cfg.ExtraMonthPercent > 0 {
		model.ExtraMonthPercent = lo.ToPtr(cfg.ExtraMonthPercent)
	}
	return model
}
