package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/telegram/messages"
	"tondar-bot/internal/xui"
)

func (r *Router) showPendingReceipts(ctx context.Context, chatID int64) error {
	pending, err := r.orderService.ListOrders(ctx, orders.ListCriteria{
		Statuses: []orders.Status{orders.StatusPendingReview},
	})
	if err != nil {
		r.logger.Error("Failed to list pending orders", "error", err)
		return r.reply(chatID, messages.Error)
	}
	if len(pending) == 0 {
		return r.reply(chatID, messages.NoPendingReceipts)
	}

	for _, order := range pending {
		keyboard := reviewKeyboard(order.ID)
		caption := r.receiptCaption(ctx, order)

		if order.ReceiptFileID == nil {
			msg := tgbotapi.NewMessage(chatID, caption)
			msg.ReplyMarkup = keyboard
			if _, err := r.bot.Send(msg); err != nil {
				return err
			}
			continue
		}
		if err := r.photos.SendPhoto(ctx, chatID, *order.ReceiptFileID, caption, &keyboard); err != nil {
			r.logger.Warn("Failed to send receipt photo", "order_id", order.ID, "error", err)
		}
	}
	return nil
}

func (r *Router) receiptCaption(ctx context.Context, order *orders.Order) string {
	lines := []string{fmt.Sprintf("Order #%d", order.ID)}
	if plan, err := r.planService.GetPlan(ctx, order.PlanID); err == nil && plan != nil {
		lines = append(lines, fmt.Sprintf("Plan: %s ($%.2f)", plan.Name, plan.Price))
	}
	return strings.Join(lines, "\n")
}

func (r *Router) handleReviewCallback(ctx context.Context, update *tgbotapi.Update) error {
	chatID := extractChatID(update)
	data := update.CallbackQuery.Data

	approve := strings.HasPrefix(data, "approve:")
	prefix := "reject:"
	if approve {
		prefix = "approve:"
	}
	orderID, ok := parseCallbackID(data, prefix)
	if !ok {
		r.answerCallback(update.CallbackQuery.ID, messages.OrderNotFound)
		return nil
	}

	var err error
	if approve {
		_, err = r.orderService.Approve(ctx, orderID)
	} else {
		_, err = r.orderService.Reject(ctx, orderID)
	}

	switch {
	case err == nil:
	case errors.Is(err, orders.ErrNotFound):
		r.answerCallback(update.CallbackQuery.ID, messages.OrderNotFound)
		return nil
	case errors.Is(err, orders.ErrInvalidTransition):
		r.answerCallback(update.CallbackQuery.ID, messages.OrderNotAwaitingReview)
		return nil
	default:
		r.logger.Error("Failed to review order", "order_id", orderID, "approve", approve, "error", err)
		r.answerCallback(update.CallbackQuery.ID, "")
		return r.reply(chatID, r.reviewFailureText(err))
	}

	if approve {
		r.answerCallback(update.CallbackQuery.ID, fmt.Sprintf("Order #%d approved.", orderID))
	} else {
		r.answerCallback(update.CallbackQuery.ID, fmt.Sprintf("Order #%d rejected.", orderID))
	}
	return nil
}

// reviewFailureText surfaces panel failures to the reviewer so they can
// retry or fix the server instead of guessing.
func (r *Router) reviewFailureText(err error) string {
	var panelErr *xui.PanelError
	var connErr *xui.ConnError
	if errors.As(err, &panelErr) || errors.As(err, &connErr) {
		return fmt.Sprintf("Panel error: %s. The order is still waiting for review.", err)
	}
	return messages.Error
}
