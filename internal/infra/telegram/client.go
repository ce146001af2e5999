package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// DeliveryError marks a failure to hand a message to Telegram, so
// callers can tell delivery problems apart from local ones and choose
// to log instead of propagate.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver message to chat %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type Client struct {
	api     *tgbotapi.BotAPI
	logger  *slog.Logger
	limiter *rate.Limiter
	updates <-chan tgbotapi.Update
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewClient(token string, logger *slog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	// Telegram allows roughly 30 messages per second bot-wide.
	limiter := rate.NewLimiter(30, 1)

	return &Client{
		api:     bot,
		logger:  logger,
		limiter: limiter,
	}, nil
}

// Start begins long polling for updates.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	c.updates = c.api.GetUpdatesChan(u)

	c.logger.Info("Telegram bot started", "username", c.api.Self.UserName)
	return nil
}

// Stop halts update polling.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.api.StopReceivingUpdates()
	c.logger.Info("Telegram bot stopped")
}

// GetUpdates returns the update channel.
func (c *Client) GetUpdates() <-chan tgbotapi.Update {
	return c.updates
}

// SendText sends a plain text message to the chat, rate limited.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.api.Send(msg); err != nil {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// SendKeyboard sends a text message with an inline keyboard attached.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard

	if _, err := c.api.Send(msg); err != nil {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// SendPhoto forwards a photo by Telegram file id with a caption and an
// optional keyboard. Used to relay receipt photos to reviewers.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	if keyboard != nil {
		photo.ReplyMarkup = keyboard
	}

	if _, err := c.api.Send(photo); err != nil {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// Send sends any chattable with rate limiting, for router-level use.
func (c *Client) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("rate limiting: %w", err)
	}

	message, err := c.api.Send(chattable)
	if err != nil {
		c.logger.Error("Failed to send message", slog.Any("error", err))
		return tgbotapi.Message{}, fmt.Errorf("send message: %w", err)
	}
	return message, nil
}

// Request performs a raw API request with rate limiting.
func (c *Client) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return nil, fmt.Errorf("rate limiting: %w", err)
	}

	resp, err := c.api.Request(chattable)
	if err != nil {
		c.logger.Error("Telegram API request failed", slog.Any("error", err))
		return nil, fmt.Errorf("telegram api request: %w", err)
	}
	return resp, nil
}
