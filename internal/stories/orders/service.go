package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"tondar-bot/internal/sharelink"
	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/xui"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

const bytesPerGB = 1 << 30

type Service struct {
	storage  Storage
	panels   PanelFactory
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(storage Storage, panels PanelFactory, notifier Notifier, logger *slog.Logger, now func() time.Time) *Service {
	return &Service{
		storage:  storage,
		panels:   panels,
		notifier: notifier,
		logger:   logger,
		now:      now,
	}
}

// StartPurchase opens an order for the plan and parks it until the
// user sends a payment receipt.
func (s *Service) StartPurchase(ctx context.Context, userID, planID int64) (*Order, error) {
	plan, err := s.storage.GetPlan(ctx, plans.GetCriteria{ID: &planID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get plan from storage")
	}
	if plan == nil {
		return nil, errors.Errorf("plan %d not found", planID)
	}

	order, err := s.storage.CreateOrder(ctx, Order{
		UserID:   userID,
		PlanID:   plan.ID,
		ServerID: plan.ServerID,
		Status:   StatusWaitingReceipt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order in storage")
	}
	return order, nil
}

// AttachReceipt records the proof-of-payment and moves the order to
// review. No panel interaction happens here.
func (s *Service) AttachReceipt(ctx context.Context, orderID int64, receiptFileID string) (*Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusWaitingReceipt {
		return nil, errors.Wrapf(ErrInvalidTransition, "order %d is %s, expected %s", orderID, order.Status, StatusWaitingReceipt)
	}

	updated, err := s.storage.UpdateOrder(ctx, orderID, UpdateParams{
		Status:        lo.ToPtr(StatusPendingReview),
		ReceiptFileID: &receiptFileID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update order in storage")
	}
	return updated, nil
}

// Approve provisions a panel client for the order and activates it.
// A panel failure aborts the transition: the order stays in review and
// the error surfaces to the caller. Local state only advances after
// the remote side confirmed provisioning.
func (s *Service) Approve(ctx context.Context, orderID int64) (*Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPendingReview {
		return nil, errors.Wrapf(ErrInvalidTransition, "order %d is %s, expected %s", orderID, order.Status, StatusPendingReview)
	}

	plan, err := s.storage.GetPlan(ctx, plans.GetCriteria{ID: &order.PlanID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get plan from storage")
	}
	if plan == nil {
		return nil, errors.Errorf("plan %d not found for order %d", order.PlanID, orderID)
	}
	server, err := s.storage.GetServer(ctx, servers.GetCriteria{ID: &plan.ServerID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get server from storage")
	}
	if server == nil {
		return nil, errors.Errorf("server %d not found for plan %d", plan.ServerID, plan.ID)
	}

	panel, err := s.panels.ClientFor(server)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build panel client")
	}

	now := s.now()
	expiresAt := now.AddDate(0, 0, plan.DurationDays)

	created, err := panel.CreateClient(ctx, plan.InboundID, xui.ClientSpec{
		Email:      fmt.Sprintf("order-%d", orderID),
		TotalBytes: int64(plan.VolumeGB) * bytesPerGB,
		LimitIP:    plan.MultiUser,
		ExpiryTime: expiresAt.UnixMilli(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to provision client for order %d", orderID)
	}
	configID := created.Client.ID

	link := s.buildLink(ctx, panel, server, plan.InboundID, created.Client)

	params := UpdateParams{
		Status:     lo.ToPtr(StatusActive),
		ConfigID:   &configID,
		ApprovedAt: &now,
		ExpiresAt:  &expiresAt,
	}
	if link != "" {
		params.ConfigLink = &link
	}
	updated, err := s.storage.UpdateOrder(ctx, orderID, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to activate order in storage")
	}

	s.notify(ctx, updated.UserID, approvalMessage(plan, expiresAt, link))
	return updated, nil
}

// buildLink looks up the freshly created client entry on the inbound
// and renders a connection string. Best-effort: any failure is logged
// and approval proceeds without a link.
func (s *Service) buildLink(ctx context.Context, panel PanelClient, server *servers.Server, inboundID int, client xui.ClientEntry) string {
	inbound, err := panel.GetInbound(ctx, inboundID)
	if err != nil {
		s.logger.Warn("failed to load inbound for connection link",
			slog.Int("inbound_id", inboundID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	if entry, ok := inbound.FindClient(client.ID, client.Email); ok {
		client = entry
	}
	return sharelink.Build(server.BaseURL, inbound, client)
}

// Reject closes the order without touching the panel.
func (s *Service) Reject(ctx context.Context, orderID int64) (*Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPendingReview {
		return nil, errors.Wrapf(ErrInvalidTransition, "order %d is %s, expected %s", orderID, order.Status, StatusPendingReview)
	}

	updated, err := s.storage.UpdateOrder(ctx, orderID, UpdateParams{
		Status: lo.ToPtr(StatusRejected),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to reject order in storage")
	}

	s.notify(ctx, updated.UserID, "Your payment receipt was rejected.")
	return updated, nil
}

// ExpireOrder de-provisions the panel client and marks the order
// expired. Panel removal is best-effort: a stale remote entry can be
// cleaned up later, while an order stuck in ACTIVE cannot.
func (s *Service) ExpireOrder(ctx context.Context, order *Order) error {
	if order == nil {
		return ErrNotFound
	}
	if order.Status != StatusActive {
		return errors.Wrapf(ErrInvalidTransition, "order %d is %s, expected %s", order.ID, order.Status, StatusActive)
	}

	s.removeFromPanel(ctx, order)

	if _, err := s.storage.UpdateOrder(ctx, order.ID, UpdateParams{
		Status:        lo.ToPtr(StatusExpired),
		ClearConfigID: true,
	}); err != nil {
		return errors.Wrapf(err, "failed to expire order %d in storage", order.ID)
	}

	s.notify(ctx, order.UserID, fmt.Sprintf("Your VPN subscription for order #%d has expired.", order.ID))
	return nil
}

func (s *Service) removeFromPanel(ctx context.Context, order *Order) {
	if order.ConfigID == nil || *order.ConfigID == "" {
		s.logger.Warn("expired order has no provisioned client id, skipping panel removal", slog.Int64("order_id", order.ID))
		return
	}
	plan, err := s.storage.GetPlan(ctx, plans.GetCriteria{ID: &order.PlanID})
	if err != nil || plan == nil {
		s.logger.Warn("failed to resolve plan for expired order", slog.Int64("order_id", order.ID))
		return
	}
	server, err := s.storage.GetServer(ctx, servers.GetCriteria{ID: &order.ServerID})
	if err != nil || server == nil {
		s.logger.Warn("failed to resolve server for expired order", slog.Int64("order_id", order.ID))
		return
	}
	panel, err := s.panels.ClientFor(server)
	if err != nil {
		s.logger.Warn("failed to build panel client for expired order",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := panel.RemoveClient(ctx, plan.InboundID, *order.ConfigID); err != nil {
		s.logger.Warn("failed to remove client from panel for expired order",
			slog.Int64("order_id", order.ID),
			slog.String("client_id", *order.ConfigID),
			slog.String("error", err.Error()),
		)
	}
}

// ListExpired returns active orders whose expiry is at or before now.
func (s *Service) ListExpired(ctx context.Context, now time.Time) ([]*Order, error) {
	list, err := s.storage.ListOrders(ctx, ListCriteria{
		Statuses:      []Status{StatusActive},
		ExpiresBefore: &now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list expired orders from storage")
	}
	return list, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *Service) ListOrders(ctx context.Context, criteria ListCriteria) ([]*Order, error) {
	list, err := s.storage.ListOrders(ctx, criteria)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders from storage")
	}
	return list, nil
}

func (s *Service) getOrder(ctx context.Context, orderID int64) (*Order, error) {
	order, err := s.storage.GetOrder(ctx, GetCriteria{ID: &orderID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order from storage")
	}
	if order == nil {
		return nil, errors.Wrapf(ErrNotFound, "order %d", orderID)
	}
	return order, nil
}

// notify resolves the order owner's chat and sends the text. Delivery
// problems are logged, never returned: the state change already
// happened and must stand.
func (s *Service) notify(ctx context.Context, userID int64, text string) {
	user, err := s.storage.GetUser(ctx, users.GetCriteria{ID: &userID})
	if err != nil || user == nil {
		s.logger.Warn("failed to resolve order owner for notification", slog.Int64("user_id", userID))
		return
	}
	if err := s.notifier.SendText(ctx, user.TelegramID, text); err != nil {
		s.logger.Warn("failed to notify user",
			slog.Int64("telegram_id", user.TelegramID),
			slog.String("error", err.Error()),
		)
	}
}

func approvalMessage(plan *plans.Plan, expiresAt time.Time, link string) string {
	lines := []string{
		"Your VPN configuration is ready!",
		fmt.Sprintf("Plan: %s", plan.Name),
		fmt.Sprintf("Expires: %s", expiresAt.Format(time.RFC3339)),
	}
	if link != "" {
		lines = append(lines, "", fmt.Sprintf("Config: %s", link))
	}
	return strings.Join(lines, "\n")
}
