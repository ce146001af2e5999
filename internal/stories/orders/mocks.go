package orders

import (
	"context"
	"sync"
	"time"

	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/xui"
)

// MockStorage is an in-memory Storage for lifecycle tests.
type MockStorage struct {
	mu      sync.Mutex
	nextID  int64
	Orders  map[int64]*Order
	Plans   map[int64]*plans.Plan
	Servers map[int64]*servers.Server
	Users   map[int64]*users.User

	UpdateErr error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Orders:  map[int64]*Order{},
		Plans:   map[int64]*plans.Plan{},
		Servers: map[int64]*servers.Server{},
		Users:   map[int64]*users.User{},
	}
}

func (m *MockStorage) CreateOrder(_ context.Context, order Order) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	m.Orders[order.ID] = &order
	copied := order
	return &copied, nil
}

func (m *MockStorage) GetOrder(_ context.Context, criteria GetCriteria) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if criteria.ID == nil {
		return nil, nil
	}
	order, ok := m.Orders[*criteria.ID]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (m *MockStorage) ListOrders(_ context.Context, criteria ListCriteria) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, order := range m.Orders {
		if criteria.UserID != nil && order.UserID != *criteria.UserID {
			continue
		}
		if len(criteria.Statuses) > 0 && !containsStatus(criteria.Statuses, order.Status) {
			continue
		}
		if criteria.ExpiresBefore != nil {
			if order.ExpiresAt == nil || order.ExpiresAt.After(*criteria.ExpiresBefore) {
				continue
			}
		}
		copied := *order
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockStorage) UpdateOrder(_ context.Context, orderID int64, params UpdateParams) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	order, ok := m.Orders[orderID]
	if !ok {
		return nil, nil
	}
	if params.Status != nil {
		order.Status = *params.Status
	}
	if params.ReceiptFileID != nil {
		order.ReceiptFileID = params.ReceiptFileID
	}
	if params.ConfigID != nil {
		order.ConfigID = params.ConfigID
	}
	if params.ClearConfigID {
		order.ConfigID = nil
	}
	if params.ConfigLink != nil {
		order.ConfigLink = params.ConfigLink
	}
	if params.ApprovedAt != nil {
		order.ApprovedAt = params.ApprovedAt
	}
	if params.ExpiresAt != nil {
		order.ExpiresAt = params.ExpiresAt
	}
	copied := *order
	return &copied, nil
}

func (m *MockStorage) GetPlan(_ context.Context, criteria plans.GetCriteria) (*plans.Plan, error) {
	if criteria.ID == nil {
		return nil, nil
	}
	return m.Plans[*criteria.ID], nil
}

func (m *MockStorage) GetServer(_ context.Context, criteria servers.GetCriteria) (*servers.Server, error) {
	if criteria.ID == nil {
		return nil, nil
	}
	return m.Servers[*criteria.ID], nil
}

func (m *MockStorage) GetUser(_ context.Context, criteria users.GetCriteria) (*users.User, error) {
	if criteria.ID == nil {
		return nil, nil
	}
	return m.Users[*criteria.ID], nil
}

func containsStatus(list []Status, status Status) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

// MockPanelClient records panel calls and can be primed to fail.
type MockPanelClient struct {
	CreateErr  error
	RemoveErr  error
	InboundErr error
	Inbound    *xui.Inbound

	Created []xui.ClientSpec
	Removed []string
}

func (m *MockPanelClient) CreateClient(_ context.Context, inboundID int, spec xui.ClientSpec) (*xui.CreateClientResult, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, spec)
	entry := xui.ClientEntry{
		ID:         "generated-" + spec.Email,
		Email:      spec.Email,
		LimitIP:    spec.LimitIP,
		TotalGB:    spec.TotalBytes,
		ExpiryTime: spec.ExpiryTime,
		Enable:     true,
	}
	return &xui.CreateClientResult{Client: entry}, nil
}

func (m *MockPanelClient) RemoveClient(_ context.Context, inboundID int, clientID string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.Removed = append(m.Removed, clientID)
	return nil
}

func (m *MockPanelClient) GetInbound(_ context.Context, inboundID int) (*xui.Inbound, error) {
	if m.InboundErr != nil {
		return nil, m.InboundErr
	}
	return m.Inbound, nil
}

// MockPanelFactory hands out the same client for every server.
type MockPanelFactory struct {
	Client *MockPanelClient
	Err    error
}

func (m *MockPanelFactory) ClientFor(_ *servers.Server) (PanelClient, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Client, nil
}

// MockNotifier records outgoing texts per recipient.
type MockNotifier struct {
	Err  error
	Sent []SentText
}

type SentText struct {
	TelegramID int64
	Text       string
}

func (m *MockNotifier) SendText(_ context.Context, telegramID int64, text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentText{TelegramID: telegramID, Text: text})
	return nil
}
