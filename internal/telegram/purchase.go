package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tondar-bot/internal/storage"
	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/telegram/messages"
	"tondar-bot/internal/telegram/states"
)

func (r *Router) showPlans(ctx context.Context, chatID int64) error {
	plans, err := r.planService.ListPlans(ctx)
	if err != nil {
		r.logger.Error("Failed to list plans", "error", err)
		return r.reply(chatID, messages.Error)
	}
	if len(plans) == 0 {
		return r.reply(chatID, messages.NoPlans)
	}

	lines := []string{messages.ChoosePlan}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, plan := range plans {
		lines = append(lines, fmt.Sprintf("#%d %s (%s) - %d GB, %d days, %d user(s), $%.2f",
			plan.ID, plan.Name, plan.Country, plan.VolumeGB, plan.DurationDays, plan.MultiUser, plan.Price))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", messages.ButtonBuy, plan.Name),
				fmt.Sprintf("buy:%d", plan.ID),
			),
		))
	}

	if card, err := r.settings.GetSetting(ctx, storage.BankCardKey); err == nil && card != "" {
		lines = append(lines, "", fmt.Sprintf("Pay to card: %s", card))
	}

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = r.bot.Send(msg)
	return err
}

func (r *Router) handleBuyCallback(ctx context.Context, update *tgbotapi.Update, user *users.User) error {
	chatID := extractChatID(update)

	planID, ok := parseCallbackID(update.CallbackQuery.Data, "buy:")
	if !ok {
		r.answerCallback(update.CallbackQuery.ID, messages.PlanNotFound)
		return nil
	}
	plan, err := r.planService.GetPlan(ctx, planID)
	if err != nil || plan == nil {
		r.answerCallback(update.CallbackQuery.ID, messages.PlanNotFound)
		return nil
	}

	order, err := r.orderService.StartPurchase(ctx, user.ID, plan.ID)
	if err != nil {
		r.logger.Error("Failed to start purchase", "plan_id", plan.ID, "error", err)
		r.answerCallback(update.CallbackQuery.ID, messages.Error)
		return nil
	}

	r.stateManager.SetState(chatID, states.BuyWaitReceipt, &states.BuyFlowData{OrderID: order.ID})
	r.answerCallback(update.CallbackQuery.ID, "")
	return r.reply(chatID, fmt.Sprintf("Send payment receipt photo for order #%d.", order.ID))
}

func (r *Router) handleReceiptPhoto(ctx context.Context, update *tgbotapi.Update, user *users.User) error {
	chatID := extractChatID(update)

	if update.Message == nil || len(update.Message.Photo) == 0 {
		return r.reply(chatID, messages.SendReceiptPhoto)
	}

	flowData, err := r.stateManager.GetBuyData(chatID)
	if err != nil {
		r.stateManager.Clear(chatID)
		return r.reply(chatID, messages.Error)
	}

	// Telegram sends several sizes; the last one is the largest.
	photos := update.Message.Photo
	fileID := photos[len(photos)-1].FileID

	order, err := r.orderService.AttachReceipt(ctx, flowData.OrderID, fileID)
	if err != nil {
		r.logger.Error("Failed to attach receipt", "order_id", flowData.OrderID, "error", err)
		return r.reply(chatID, messages.Error)
	}
	r.stateManager.Clear(chatID)

	r.notifyReviewers(ctx, order, fileID)
	return r.reply(chatID, messages.ReceiptReceived)
}

// notifyReviewers forwards the receipt to every accountant with
// approve/reject buttons. Best-effort.
func (r *Router) notifyReviewers(ctx context.Context, order *orders.Order, fileID string) {
	keyboard := reviewKeyboard(order.ID)
	caption := fmt.Sprintf("Receipt for order #%d", order.ID)

	for _, role := range []string{users.RoleAccountant, users.RoleAdmin} {
		reviewers, err := r.userService.ListByRole(ctx, role)
		if err != nil {
			r.logger.Warn("Failed to list reviewers", "role", role, "error", err)
			continue
		}
		for _, reviewer := range reviewers {
			if err := r.photos.SendPhoto(ctx, reviewer.TelegramID, fileID, caption, &keyboard); err != nil {
				r.logger.Warn("Failed to forward receipt",
					"telegram_id", reviewer.TelegramID,
					"order_id", order.ID,
					"error", err)
			}
		}
	}
}

func (r *Router) showUserOrders(ctx context.Context, chatID int64, user *users.User) error {
	list, err := r.orderService.ListOrders(ctx, orders.ListCriteria{UserID: &user.ID})
	if err != nil {
		r.logger.Error("Failed to list orders", "user_id", user.ID, "error", err)
		return r.reply(chatID, messages.Error)
	}
	if len(list) == 0 {
		return r.reply(chatID, messages.NoOrders)
	}

	var blocks []string
	for _, order := range list {
		plan, _ := r.planService.GetPlan(ctx, order.PlanID)
		name := "?"
		if plan != nil {
			name = plan.Name
		}
		expires := "-"
		if order.ExpiresAt != nil {
			expires = order.ExpiresAt.Format(time.RFC3339)
		}

		block := fmt.Sprintf("Order #%d - %s\nStatus: %s\nExpires: %s", order.ID, name, order.Status, expires)
		if used := r.usedTraffic(ctx, order); used != "" {
			block += "\nUsed: " + used
		}
		if order.ConfigLink != nil && order.Status == orders.StatusActive {
			block += "\nConfig: " + *order.ConfigLink
		}
		blocks = append(blocks, block)
	}

	return r.reply(chatID, strings.Join(blocks, "\n\n"))
}

// usedTraffic renders live panel usage for an active order, or an
// empty string when the panel has nothing.
func (r *Router) usedTraffic(ctx context.Context, order *orders.Order) string {
	if order.Status != orders.StatusActive || order.ConfigID == nil {
		return ""
	}
	server, err := r.serverService.GetServer(ctx, order.ServerID)
	if err != nil || server == nil {
		return ""
	}
	traffic, err := r.traffic.ClientTraffic(ctx, server, *order.ConfigID)
	if err != nil || traffic == nil {
		return ""
	}
	usedGB := float64(traffic.Up+traffic.Down) / float64(1<<30)
	return fmt.Sprintf("%.2f GB", usedGB)
}

func reviewKeyboard(orderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonApprove, fmt.Sprintf("approve:%d", orderID)),
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonReject, fmt.Sprintf("reject:%d", orderID)),
		),
	)
}
