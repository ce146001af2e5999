package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"tondar-bot/internal/security"
	"tondar-bot/internal/storage"
	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/telegram/messages"
)

func (r *Router) showServers(ctx context.Context, chatID int64) error {
	list, err := r.serverService.ListServers(ctx)
	if err != nil {
		r.logger.Error("Failed to list servers", "error", err)
		return r.reply(chatID, messages.Error)
	}
	if len(list) == 0 {
		return r.reply(chatID, "No servers configured. Use /addserver to add one.")
	}

	lines := []string{"Servers:"}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, server := range list {
		lines = append(lines, fmt.Sprintf("#%d %s (%s)", server.ID, server.Title, server.BaseURL))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Delete %s", server.Title),
				fmt.Sprintf("delsrv:%d", server.ID),
			),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = r.bot.Send(msg)
	return err
}

func (r *Router) handleServerDetails(ctx context.Context, update *tgbotapi.Update) error {
	chatID := extractChatID(update)
	parts := strings.Split(security.Sanitize(update.Message.Text), ",")
	if len(parts) != 4 {
		return r.reply(chatID, messages.InvalidServer)
	}

	server := servers.Server{
		Title:    strings.TrimSpace(parts[0]),
		BaseURL:  strings.TrimSpace(parts[1]),
		Username: strings.TrimSpace(parts[2]),
		Password: strings.TrimSpace(parts[3]),
	}
	if server.Title == "" || server.Username == "" || server.Password == "" || !security.ValidURL(server.BaseURL) {
		return r.reply(chatID, messages.InvalidServer)
	}

	if _, err := r.serverService.CreateServer(ctx, server); err != nil {
		if errors.Is(err, servers.ErrUnreachable) {
			return r.reply(chatID, messages.ServerUnreachable)
		}
		r.logger.Error("Failed to create server", "error", err)
		return r.reply(chatID, messages.Error)
	}

	r.stateManager.Clear(chatID)
	return r.reply(chatID, messages.ServerSaved)
}

func (r *Router) handlePlanDetails(ctx context.Context, update *tgbotapi.Update) error {
	chatID := extractChatID(update)
	parts := strings.Split(security.Sanitize(update.Message.Text), ",")
	if len(parts) != 8 {
		return r.reply(chatID, messages.InvalidPlan)
	}

	serverID, okServer := security.ParseInt(parts[0], 1, security.MaxNumericValue)
	inboundID, okInbound := security.ParseInt(parts[3], 1, security.MaxNumericValue)
	volumeGB, okVolume := security.ParseInt(parts[4], 1, security.MaxNumericValue)
	durationDays, okDuration := security.ParseInt(parts[5], 1, security.MaxNumericValue)
	multiUser, okMulti := security.ParseInt(parts[6], 1, security.MaxNumericValue)
	price, okPrice := security.ParseFloat(parts[7], 0, security.MaxNumericValue)
	if !okServer || !okInbound || !okVolume || !okDuration || !okMulti || !okPrice {
		return r.reply(chatID, messages.PlanNumericFields)
	}

	name := strings.TrimSpace(parts[1])
	country := strings.TrimSpace(parts[2])
	if name == "" || country == "" {
		return r.reply(chatID, messages.InvalidPlan)
	}

	server, err := r.serverService.GetServer(ctx, int64(serverID))
	if err != nil || server == nil {
		return r.reply(chatID, fmt.Sprintf("Server #%d does not exist.", serverID))
	}

	plan := plans.Plan{
		ServerID:     server.ID,
		Name:         name,
		Country:      country,
		InboundID:    inboundID,
		VolumeGB:     volumeGB,
		DurationDays: durationDays,
		MultiUser:    multiUser,
		Price:        price,
	}
	if _, err := r.planService.CreatePlan(ctx, plan); err != nil {
		r.logger.Error("Failed to create plan", "error", err)
		return r.reply(chatID, messages.Error)
	}

	r.stateManager.Clear(chatID)
	return r.reply(chatID, messages.PlanSaved)
}

func (r *Router) handleBankCard(ctx context.Context, update *tgbotapi.Update) error {
	chatID := extractChatID(update)
	card := security.SanitizeN(update.Message.Text, 64)
	if card == "" {
		return r.reply(chatID, messages.BankCardEmpty)
	}

	if err := r.settings.SetSetting(ctx, storage.BankCardKey, card); err != nil {
		r.logger.Error("Failed to save bank card", "error", err)
		return r.reply(chatID, messages.Error)
	}

	r.stateManager.Clear(chatID)
	return r.reply(chatID, messages.BankCardSaved)
}

func (r *Router) handleRoleAssign(ctx context.Context, update *tgbotapi.Update) error {
	chatID := extractChatID(update)
	parts := strings.Fields(security.Sanitize(update.Message.Text))
	if len(parts) != 2 {
		return r.reply(chatID, messages.InvalidAssignment)
	}

	username := strings.TrimPrefix(parts[0], "@")
	if !security.ValidUsername(username) {
		return r.reply(chatID, messages.InvalidAssignment)
	}

	role := strings.ToUpper(parts[1])
	if role != users.RoleAdmin && role != users.RoleAccountant {
		return r.reply(chatID, messages.InvalidRole)
	}

	user, err := r.userService.PromoteUser(ctx, username, role)
	if err != nil {
		r.logger.Error("Failed to promote user", "username", username, "error", err)
		return r.reply(chatID, messages.Error)
	}
	if user == nil {
		return r.reply(chatID, messages.UserNotFound)
	}

	r.stateManager.Clear(chatID)
	return r.reply(chatID, fmt.Sprintf("@%s is now %s.", username, role))
}

func (r *Router) handleDeleteServer(ctx context.Context, update *tgbotapi.Update) error {
	serverID, ok := parseCallbackID(update.CallbackQuery.Data, "delsrv:")
	if !ok {
		r.answerCallback(update.CallbackQuery.ID, messages.Error)
		return nil
	}
	if err := r.serverService.DeleteServer(ctx, serverID); err != nil {
		r.logger.Error("Failed to delete server", "server_id", serverID, "error", err)
		r.answerCallback(update.CallbackQuery.ID, messages.Error)
		return nil
	}
	r.answerCallback(update.CallbackQuery.ID, fmt.Sprintf("Server #%d deleted.", serverID))
	return nil
}

func (r *Router) handleDeletePlan(ctx context.Context, update *tgbotapi.Update) error {
	planID, ok := parseCallbackID(update.CallbackQuery.Data, "delplan:")
	if !ok {
		r.answerCallback(update.CallbackQuery.ID, messages.Error)
		return nil
	}
	if err := r.planService.DeletePlan(ctx, planID); err != nil {
		r.logger.Error("Failed to delete plan", "plan_id", planID, "error", err)
		r.answerCallback(update.CallbackQuery.ID, messages.Error)
		return nil
	}
	r.answerCallback(update.CallbackQuery.ID, fmt.Sprintf("Plan #%d deleted.", planID))
	return nil
}
