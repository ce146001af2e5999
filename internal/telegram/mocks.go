package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/xui"
)

type MockBot struct {
	Sent      []tgbotapi.Chattable
	Requested []tgbotapi.Chattable
	SendErr   error
}

func (m *MockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.SendErr != nil {
		return tgbotapi.Message{}, m.SendErr
	}
	m.Sent = append(m.Sent, c)
	return tgbotapi.Message{}, nil
}

func (m *MockBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.Requested = append(m.Requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type SentPhoto struct {
	ChatID   int64
	FileID   string
	Caption  string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

type MockPhotoSender struct {
	Photos []SentPhoto
	Err    error
}

func (m *MockPhotoSender) SendPhoto(_ context.Context, chatID int64, fileID, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if m.Err != nil {
		return m.Err
	}
	m.Photos = append(m.Photos, SentPhoto{ChatID: chatID, FileID: fileID, Caption: caption, Keyboard: keyboard})
	return nil
}

type MockUserService struct {
	Users         map[int64]*users.User // keyed by telegram ID
	ByRole        map[string][]*users.User
	PromoteResult *users.User
	PromoteErr    error
	Promoted      []string
}

func (m *MockUserService) GetOrCreateUser(_ context.Context, telegramID int64, username, firstName string) (*users.User, error) {
	if user, ok := m.Users[telegramID]; ok {
		return user, nil
	}
	user := &users.User{ID: telegramID, TelegramID: telegramID, Username: username, FirstName: firstName, Role: users.RoleUser}
	if m.Users == nil {
		m.Users = make(map[int64]*users.User)
	}
	m.Users[telegramID] = user
	return user, nil
}

func (m *MockUserService) PromoteUser(_ context.Context, username, role string) (*users.User, error) {
	m.Promoted = append(m.Promoted, username+" "+role)
	return m.PromoteResult, m.PromoteErr
}

func (m *MockUserService) ListByRole(_ context.Context, role string) ([]*users.User, error) {
	return m.ByRole[role], nil
}

type MockOrderService struct {
	Orders []*orders.Order

	StartResult *orders.Order
	StartErr    error
	Started     []int64

	AttachResult *orders.Order
	AttachErr    error
	Attached     []string

	ApproveResult *orders.Order
	ApproveErr    error
	Approved      []int64

	RejectResult *orders.Order
	RejectErr    error
	Rejected     []int64
}

func (m *MockOrderService) StartPurchase(_ context.Context, _, planID int64) (*orders.Order, error) {
	m.Started = append(m.Started, planID)
	return m.StartResult, m.StartErr
}

func (m *MockOrderService) AttachReceipt(_ context.Context, _ int64, receiptFileID string) (*orders.Order, error) {
	m.Attached = append(m.Attached, receiptFileID)
	return m.AttachResult, m.AttachErr
}

func (m *MockOrderService) Approve(_ context.Context, orderID int64) (*orders.Order, error) {
	m.Approved = append(m.Approved, orderID)
	return m.ApproveResult, m.ApproveErr
}

func (m *MockOrderService) Reject(_ context.Context, orderID int64) (*orders.Order, error) {
	m.Rejected = append(m.Rejected, orderID)
	return m.RejectResult, m.RejectErr
}

func (m *MockOrderService) GetOrder(_ context.Context, orderID int64) (*orders.Order, error) {
	for _, order := range m.Orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return nil, orders.ErrNotFound
}

func (m *MockOrderService) ListOrders(_ context.Context, criteria orders.ListCriteria) ([]*orders.Order, error) {
	var out []*orders.Order
	for _, order := range m.Orders {
		if criteria.UserID != nil && order.UserID != *criteria.UserID {
			continue
		}
		if len(criteria.Statuses) > 0 {
			matched := false
			for _, status := range criteria.Statuses {
				if order.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, order)
	}
	return out, nil
}

type MockPlanService struct {
	Plans     []*plans.Plan
	Created   []plans.Plan
	CreateErr error
	Deleted   []int64
}

func (m *MockPlanService) CreatePlan(_ context.Context, plan plans.Plan) (*plans.Plan, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, plan)
	return &plan, nil
}

func (m *MockPlanService) GetPlan(_ context.Context, planID int64) (*plans.Plan, error) {
	for _, plan := range m.Plans {
		if plan.ID == planID {
			return plan, nil
		}
	}
	return nil, nil
}

func (m *MockPlanService) ListPlans(_ context.Context) ([]*plans.Plan, error) {
	return m.Plans, nil
}

func (m *MockPlanService) DeletePlan(_ context.Context, planID int64) error {
	m.Deleted = append(m.Deleted, planID)
	return nil
}

type MockServerService struct {
	Servers   []*servers.Server
	Created   []servers.Server
	CreateErr error
	Deleted   []int64
}

func (m *MockServerService) CreateServer(_ context.Context, server servers.Server) (*servers.Server, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, server)
	return &server, nil
}

func (m *MockServerService) GetServer(_ context.Context, serverID int64) (*servers.Server, error) {
	for _, server := range m.Servers {
		if server.ID == serverID {
			return server, nil
		}
	}
	return nil, nil
}

func (m *MockServerService) ListServers(_ context.Context) ([]*servers.Server, error) {
	return m.Servers, nil
}

func (m *MockServerService) DeleteServer(_ context.Context, serverID int64) error {
	m.Deleted = append(m.Deleted, serverID)
	return nil
}

type MockSettings struct {
	Values map[string]string
}

func (m *MockSettings) GetSetting(_ context.Context, key string) (string, error) {
	return m.Values[key], nil
}

func (m *MockSettings) SetSetting(_ context.Context, key, value string) error {
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
	return nil
}

type MockTrafficReader struct {
	Traffic *xui.ClientTraffic
	Err     error
}

func (m *MockTrafficReader) ClientTraffic(_ context.Context, _ *servers.Server, _ string) (*xui.ClientTraffic, error) {
	return m.Traffic, m.Err
}

type MockRateLimiter struct {
	Blocked bool
}

func (m *MockRateLimiter) Allow(_ int64) bool {
	return !m.Blocked
}
