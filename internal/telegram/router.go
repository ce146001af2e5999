package telegram

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/telegram/messages"
	"tondar-bot/internal/telegram/states"
)

// Router dispatches Telegram updates to command, callback and
// conversation-state handlers. Updates are processed one at a time by
// the caller's loop.
type Router struct {
	bot          botApi
	photos       photoSender
	stateManager stateManager
	limiter      rateLimiter
	logger       *slog.Logger

	userService   userService
	orderService  orderService
	planService   planService
	serverService serverService
	settings      settingsStorage
	traffic       trafficReader

	adminIDs []int64
}

type RouterDeps struct {
	Bot          botApi
	Photos       photoSender
	StateManager stateManager
	Limiter      rateLimiter
	Logger       *slog.Logger

	UserService   userService
	OrderService  orderService
	PlanService   planService
	ServerService serverService
	Settings      settingsStorage
	Traffic       trafficReader

	AdminIDs []int64
}

func NewRouter(deps RouterDeps) *Router {
	return &Router{
		bot:           deps.Bot,
		photos:        deps.Photos,
		stateManager:  deps.StateManager,
		limiter:       deps.Limiter,
		logger:        deps.Logger,
		userService:   deps.UserService,
		orderService:  deps.OrderService,
		planService:   deps.PlanService,
		serverService: deps.ServerService,
		settings:      deps.Settings,
		traffic:       deps.Traffic,
		adminIDs:      deps.AdminIDs,
	}
}

// Route handles one update.
func (r *Router) Route(update *tgbotapi.Update) error {
	ctx := context.Background()

	from := extractFrom(update)
	if from == nil {
		return nil
	}
	chatID := extractChatID(update)

	if !r.limiter.Allow(from.ID) {
		return r.reply(chatID, messages.RateLimited)
	}

	user, err := r.userService.GetOrCreateUser(ctx, from.ID, from.UserName, from.FirstName)
	if err != nil {
		r.logger.Error("Failed to resolve user", "telegram_id", from.ID, "error", err)
		return r.reply(chatID, messages.Error)
	}

	// Commands cancel any conversation in progress.
	if update.Message != nil && update.Message.IsCommand() {
		r.stateManager.Clear(chatID)
		return r.handleCommand(ctx, update, user)
	}

	if update.CallbackQuery != nil {
		return r.handleCallback(ctx, update, user)
	}

	switch r.stateManager.GetState(chatID) {
	case states.BuyWaitReceipt:
		return r.handleReceiptPhoto(ctx, update, user)
	case states.AdminWaitServerDetails:
		return r.adminOnly(user, chatID, func() error { return r.handleServerDetails(ctx, update) })
	case states.AdminWaitPlanDetails:
		return r.adminOnly(user, chatID, func() error { return r.handlePlanDetails(ctx, update) })
	case states.AdminWaitBankCard:
		return r.adminOnly(user, chatID, func() error { return r.handleBankCard(ctx, update) })
	case states.AdminWaitRoleAssign:
		return r.adminOnly(user, chatID, func() error { return r.handleRoleAssign(ctx, update) })
	}

	return r.sendHelp(chatID, user)
}

func (r *Router) handleCommand(ctx context.Context, update *tgbotapi.Update, user *users.User) error {
	chatID := update.Message.Chat.ID

	switch update.Message.Command() {
	case "start":
		return r.sendWelcome(chatID, user)
	case "plans":
		return r.showPlans(ctx, chatID)
	case "myorders":
		return r.showUserOrders(ctx, chatID, user)
	case "receipts":
		if !r.canReview(user) {
			return r.reply(chatID, messages.AccessDenied)
		}
		return r.showPendingReceipts(ctx, chatID)
	case "servers":
		if !r.isAdmin(user) {
			return r.reply(chatID, messages.AccessDenied)
		}
		return r.showServers(ctx, chatID)
	case "addserver":
		if !r.isAdmin(user) {
			return r.reply(chatID, messages.AccessDenied)
		}
		r.stateManager.SetState(chatID, states.AdminWaitServerDetails, nil)
		return r.reply(chatID, messages.SendServerDetails)
	case "addplan":
		if !r.isAdmin(user) {
			return r.reply(chatID, messages.AccessDenied)
		}
		r.stateManager.SetState(chatID, states.AdminWaitPlanDetails, nil)
		return r.reply(chatID, messages.SendPlanDetails)
	case "setcard":
		if !r.isAdmin(user) {
			return r.reply(chatID, messages.AccessDenied)
		}
		r.stateManager.SetState(chatID, states.AdminWaitBankCard, nil)
		return r.reply(chatID, messages.SendBankCard)
	case "setrole":
		if !r.isAdmin(user) {
			return r.reply(chatID, messages.AccessDenied)
		}
		r.stateManager.SetState(chatID, states.AdminWaitRoleAssign, nil)
		return r.reply(chatID, messages.SendRoleAssignment)
	default:
		return r.sendHelp(chatID, user)
	}
}

func (r *Router) handleCallback(ctx context.Context, update *tgbotapi.Update, user *users.User) error {
	data := update.CallbackQuery.Data
	chatID := extractChatID(update)

	switch {
	case strings.HasPrefix(data, "buy:"):
		return r.handleBuyCallback(ctx, update, user)
	case strings.HasPrefix(data, "approve:"), strings.HasPrefix(data, "reject:"):
		if !r.canReview(user) {
			r.answerCallback(update.CallbackQuery.ID, messages.AccessDenied)
			return nil
		}
		return r.handleReviewCallback(ctx, update)
	case strings.HasPrefix(data, "delsrv:"):
		if !r.isAdmin(user) {
			r.answerCallback(update.CallbackQuery.ID, messages.AccessDenied)
			return nil
		}
		return r.handleDeleteServer(ctx, update)
	case strings.HasPrefix(data, "delplan:"):
		if !r.isAdmin(user) {
			r.answerCallback(update.CallbackQuery.ID, messages.AccessDenied)
			return nil
		}
		return r.handleDeletePlan(ctx, update)
	case data == "cancel":
		r.stateManager.Clear(chatID)
		r.answerCallback(update.CallbackQuery.ID, "")
		return r.reply(chatID, messages.Cancelled)
	}

	r.answerCallback(update.CallbackQuery.ID, "")
	return nil
}

func (r *Router) isAdmin(user *users.User) bool {
	return user.Role == users.RoleAdmin || slices.Contains(r.adminIDs, user.TelegramID)
}

func (r *Router) canReview(user *users.User) bool {
	return user.Role == users.RoleAccountant || r.isAdmin(user)
}

func (r *Router) adminOnly(user *users.User, chatID int64, fn func() error) error {
	if !r.isAdmin(user) {
		r.stateManager.Clear(chatID)
		return r.reply(chatID, messages.AccessDenied)
	}
	return fn()
}

func (r *Router) reply(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (r *Router) answerCallback(callbackID, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		r.logger.Warn("Failed to answer callback", "error", err)
	}
}

func (r *Router) sendWelcome(chatID int64, user *users.User) error {
	lines := []string{
		"Welcome to the VPN shop!",
		"",
		"/plans - browse available plans",
		"/myorders - your orders and usage",
	}
	if r.canReview(user) {
		lines = append(lines, "/receipts - receipts waiting for review")
	}
	if r.isAdmin(user) {
		lines = append(lines,
			"/servers - manage panel servers",
			"/addserver - register a panel server",
			"/addplan - create a plan",
			"/setcard - set the payment card",
			"/setrole - assign ADMIN or ACCOUNTANT",
		)
	}
	return r.reply(chatID, strings.Join(lines, "\n"))
}

func (r *Router) sendHelp(chatID int64, user *users.User) error {
	return r.sendWelcome(chatID, user)
}

func extractFrom(update *tgbotapi.Update) *tgbotapi.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From
	default:
		return nil
	}
}

func extractChatID(update *tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	default:
		return 0
	}
}

func parseCallbackID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
