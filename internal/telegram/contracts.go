package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/telegram/states"
	"tondar-bot/internal/xui"
)

type (
	botApi interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
		Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	}

	stateManager interface {
		GetState(chatID int64) states.State
		SetState(chatID int64, state states.State, data any)
		Clear(chatID int64)
		GetBuyData(chatID int64) (*states.BuyFlowData, error)
	}

	userService interface {
		GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*users.User, error)
		PromoteUser(ctx context.Context, username, role string) (*users.User, error)
		ListByRole(ctx context.Context, role string) ([]*users.User, error)
	}

	orderService interface {
		StartPurchase(ctx context.Context, userID, planID int64) (*orders.Order, error)
		AttachReceipt(ctx context.Context, orderID int64, receiptFileID string) (*orders.Order, error)
		Approve(ctx context.Context, orderID int64) (*orders.Order, error)
		Reject(ctx context.Context, orderID int64) (*orders.Order, error)
		GetOrder(ctx context.Context, orderID int64) (*orders.Order, error)
		ListOrders(ctx context.Context, criteria orders.ListCriteria) ([]*orders.Order, error)
	}

	planService interface {
		CreatePlan(ctx context.Context, plan plans.Plan) (*plans.Plan, error)
		GetPlan(ctx context.Context, planID int64) (*plans.Plan, error)
		ListPlans(ctx context.Context) ([]*plans.Plan, error)
		DeletePlan(ctx context.Context, planID int64) error
	}

	serverService interface {
		CreateServer(ctx context.Context, server servers.Server) (*servers.Server, error)
		GetServer(ctx context.Context, serverID int64) (*servers.Server, error)
		ListServers(ctx context.Context) ([]*servers.Server, error)
		DeleteServer(ctx context.Context, serverID int64) error
	}

	settingsStorage interface {
		GetSetting(ctx context.Context, key string) (string, error)
		SetSetting(ctx context.Context, key, value string) error
	}

	// trafficReader serves best-effort usage lookups for order listings.
	trafficReader interface {
		ClientTraffic(ctx context.Context, server *servers.Server, clientID string) (*xui.ClientTraffic, error)
	}

	rateLimiter interface {
		Allow(telegramID int64) bool
	}

	photoSender interface {
		SendPhoto(ctx context.Context, chatID int64, fileID, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	}
)
