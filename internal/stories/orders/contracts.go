package orders

import (
	"context"

	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/xui"
)

type (
	Storage interface {
		CreateOrder(ctx context.Context, order Order) (*Order, error)
		GetOrder(ctx context.Context, criteria GetCriteria) (*Order, error)
		ListOrders(ctx context.Context, criteria ListCriteria) ([]*Order, error)
		UpdateOrder(ctx context.Context, orderID int64, params UpdateParams) (*Order, error)
		GetPlan(ctx context.Context, criteria plans.GetCriteria) (*plans.Plan, error)
		GetServer(ctx context.Context, criteria servers.GetCriteria) (*servers.Server, error)
		GetUser(ctx context.Context, criteria users.GetCriteria) (*users.User, error)
	}

	// PanelClient is the slice of the x-ui client the lifecycle needs.
	PanelClient interface {
		CreateClient(ctx context.Context, inboundID int, spec xui.ClientSpec) (*xui.CreateClientResult, error)
		RemoveClient(ctx context.Context, inboundID int, clientID string) error
		GetInbound(ctx context.Context, inboundID int) (*xui.Inbound, error)
	}

	// PanelFactory hands out a panel client for a given server row.
	// Implementations cache sessions so the approval path and the
	// expiration worker share one authenticated session per server.
	PanelFactory interface {
		ClientFor(server *servers.Server) (PanelClient, error)
	}

	// Notifier delivers user-facing messages. Delivery errors are
	// logged by the lifecycle, never propagated.
	Notifier interface {
		SendText(ctx context.Context, telegramID int64, text string) error
	}
)
