package telegram

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/plans"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/stories/users"
	"tondar-bot/internal/telegram/messages"
	"tondar-bot/internal/telegram/states"
	"tondar-bot/internal/xui"
)

const (
	testChatID  = int64(1234)
	testAdminID = int64(999)
)

type routerMocks struct {
	bot      *MockBot
	photos   *MockPhotoSender
	states   *states.Manager
	limiter  *MockRateLimiter
	users    *MockUserService
	orders   *MockOrderService
	plans    *MockPlanService
	servers  *MockServerService
	settings *MockSettings
	traffic  *MockTrafficReader
}

func newTestRouter(t *testing.T) (*Router, *routerMocks) {
	t.Helper()

	m := &routerMocks{
		bot:      &MockBot{},
		photos:   &MockPhotoSender{},
		states:   states.NewManager(),
		limiter:  &MockRateLimiter{},
		users:    &MockUserService{Users: map[int64]*users.User{}},
		orders:   &MockOrderService{},
		plans:    &MockPlanService{},
		servers:  &MockServerService{},
		settings: &MockSettings{Values: map[string]string{}},
		traffic:  &MockTrafficReader{},
	}

	router := NewRouter(RouterDeps{
		Bot:           m.bot,
		Photos:        m.photos,
		StateManager:  m.states,
		Limiter:       m.limiter,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		UserService:   m.users,
		OrderService:  m.orders,
		PlanService:   m.plans,
		ServerService: m.servers,
		Settings:      m.settings,
		Traffic:       m.traffic,
		AdminIDs:      []int64{testAdminID},
	})
	return router, m
}

func commandUpdate(telegramID int64, command string) *tgbotapi.Update {
	text := "/" + command
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: telegramID, UserName: "someone"},
			Chat: &tgbotapi.Chat{ID: testChatID},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(text)},
			},
		},
	}
}

func textUpdate(telegramID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: telegramID, UserName: "someone"},
			Chat: &tgbotapi.Chat{ID: testChatID},
			Text: text,
		},
	}
}

func photoUpdate(telegramID int64, fileIDs ...string) *tgbotapi.Update {
	var photos []tgbotapi.PhotoSize
	for _, id := range fileIDs {
		photos = append(photos, tgbotapi.PhotoSize{FileID: id})
	}
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:  &tgbotapi.User{ID: telegramID},
			Chat:  &tgbotapi.Chat{ID: testChatID},
			Photo: photos,
		},
	}
}

func callbackUpdate(telegramID int64, data string) *tgbotapi.Update {
	return &tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: telegramID},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}},
			Data:    data,
		},
	}
}

func sentTexts(bot *MockBot) []string {
	var out []string
	for _, c := range bot.Sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func lastText(t *testing.T, bot *MockBot) string {
	t.Helper()
	texts := sentTexts(bot)
	if len(texts) == 0 {
		t.Fatal("expected at least one message to be sent")
	}
	return texts[len(texts)-1]
}

func callbackAnswers(bot *MockBot) []string {
	var out []string
	for _, c := range bot.Requested {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb.Text)
		}
	}
	return out
}

func asAdmin(m *routerMocks, telegramID int64) {
	m.users.Users[telegramID] = &users.User{ID: telegramID, TelegramID: telegramID, Role: users.RoleAdmin}
}

func asAccountant(m *routerMocks, telegramID int64) {
	m.users.Users[telegramID] = &users.User{ID: telegramID, TelegramID: telegramID, Role: users.RoleAccountant}
}

func TestPlansCommandListsPlansWithBuyButtons(t *testing.T) {
	router, m := newTestRouter(t)
	m.plans.Plans = []*plans.Plan{
		{ID: 1, Name: "Gold", Country: "DE", VolumeGB: 50, DurationDays: 30, MultiUser: 2, Price: 12.5},
	}
	m.settings.Values["bank_card"] = "1234 5678"

	if err := router.Route(commandUpdate(100, "plans")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := lastText(t, m.bot)
	if !strings.Contains(text, "Gold") {
		t.Errorf("expected plan name in listing, got %q", text)
	}
	if !strings.Contains(text, "1234 5678") {
		t.Errorf("expected bank card in listing, got %q", text)
	}

	msg := m.bot.Sent[len(m.bot.Sent)-1].(tgbotapi.MessageConfig)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatal("expected an inline keyboard")
	}
	if got := keyboard.InlineKeyboard[0][0].CallbackData; got == nil || *got != "buy:1" {
		t.Errorf("expected buy:1 callback, got %v", got)
	}
}

func TestBuyCallbackStartsPurchase(t *testing.T) {
	router, m := newTestRouter(t)
	m.plans.Plans = []*plans.Plan{{ID: 2, Name: "Silver"}}
	m.orders.StartResult = &orders.Order{ID: 77, Status: orders.StatusWaitingReceipt}

	if err := router.Route(callbackUpdate(100, "buy:2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.orders.Started) != 1 || m.orders.Started[0] != 2 {
		t.Fatalf("expected purchase started for plan 2, got %v", m.orders.Started)
	}
	if got := m.states.GetState(testChatID); got != states.BuyWaitReceipt {
		t.Errorf("expected receipt-wait state, got %q", got)
	}
	if text := lastText(t, m.bot); !strings.Contains(text, "order #77") {
		t.Errorf("expected order number in prompt, got %q", text)
	}
}

func TestBuyCallbackUnknownPlan(t *testing.T) {
	router, m := newTestRouter(t)

	if err := router.Route(callbackUpdate(100, "buy:42")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.orders.Started) != 0 {
		t.Fatal("expected no purchase for an unknown plan")
	}
	answers := callbackAnswers(m.bot)
	if len(answers) == 0 || answers[0] != messages.PlanNotFound {
		t.Errorf("expected plan-not-found answer, got %v", answers)
	}
}

func TestReceiptPhotoAttachesAndNotifiesReviewers(t *testing.T) {
	router, m := newTestRouter(t)
	m.states.SetState(testChatID, states.BuyWaitReceipt, &states.BuyFlowData{OrderID: 77})
	m.orders.AttachResult = &orders.Order{ID: 77, Status: orders.StatusPendingReview}
	m.users.ByRole = map[string][]*users.User{
		users.RoleAccountant: {{ID: 5, TelegramID: 5005, Role: users.RoleAccountant}},
	}

	if err := router.Route(photoUpdate(100, "small-file", "large-file")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.orders.Attached) != 1 || m.orders.Attached[0] != "large-file" {
		t.Fatalf("expected largest photo size attached, got %v", m.orders.Attached)
	}
	if got := m.states.GetState(testChatID); got != states.StateNone {
		t.Errorf("expected state cleared, got %q", got)
	}
	if len(m.photos.Photos) != 1 || m.photos.Photos[0].ChatID != 5005 {
		t.Fatalf("expected receipt forwarded to accountant, got %+v", m.photos.Photos)
	}
	if m.photos.Photos[0].Keyboard == nil {
		t.Error("expected approve/reject keyboard on forwarded receipt")
	}
	if text := lastText(t, m.bot); text != messages.ReceiptReceived {
		t.Errorf("expected receipt confirmation, got %q", text)
	}
}

func TestReceiptWithoutPhotoAsksAgain(t *testing.T) {
	router, m := newTestRouter(t)
	m.states.SetState(testChatID, states.BuyWaitReceipt, &states.BuyFlowData{OrderID: 77})

	if err := router.Route(textUpdate(100, "here is my receipt")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.orders.Attached) != 0 {
		t.Fatal("expected nothing attached for a text message")
	}
	if text := lastText(t, m.bot); text != messages.SendReceiptPhoto {
		t.Errorf("expected photo prompt, got %q", text)
	}
}

func TestReviewCallbackRequiresReviewer(t *testing.T) {
	router, m := newTestRouter(t)

	if err := router.Route(callbackUpdate(100, "approve:7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.orders.Approved) != 0 {
		t.Fatal("expected no approval from a regular user")
	}
	answers := callbackAnswers(m.bot)
	if len(answers) == 0 || answers[0] != messages.AccessDenied {
		t.Errorf("expected access-denied answer, got %v", answers)
	}
}

func TestApproveCallbackApprovesOrder(t *testing.T) {
	router, m := newTestRouter(t)
	asAccountant(m, 200)
	m.orders.ApproveResult = &orders.Order{ID: 7, Status: orders.StatusActive}

	if err := router.Route(callbackUpdate(200, "approve:7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.orders.Approved) != 1 || m.orders.Approved[0] != 7 {
		t.Fatalf("expected order 7 approved, got %v", m.orders.Approved)
	}
}

func TestApproveCallbackSurfacesPanelFailure(t *testing.T) {
	router, m := newTestRouter(t)
	asAccountant(m, 200)
	m.orders.ApproveErr = errors.Wrap(
		&xui.PanelError{Op: "addClient", Payload: "success=false"},
		"failed to create panel client",
	)

	if err := router.Route(callbackUpdate(200, "approve:7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text := lastText(t, m.bot); !strings.Contains(text, "Panel error:") {
		t.Errorf("expected panel failure surfaced to reviewer, got %q", text)
	}
}

func TestRejectCallbackOnWrongStatus(t *testing.T) {
	router, m := newTestRouter(t)
	asAccountant(m, 200)
	m.orders.RejectErr = orders.ErrInvalidTransition

	if err := router.Route(callbackUpdate(200, "reject:7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answers := callbackAnswers(m.bot)
	if len(answers) == 0 || answers[0] != messages.OrderNotAwaitingReview {
		t.Errorf("expected invalid-transition answer, got %v", answers)
	}
}

func TestAddServerFlow(t *testing.T) {
	router, m := newTestRouter(t)
	asAdmin(m, 300)

	if err := router.Route(commandUpdate(300, "addserver")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.states.GetState(testChatID); got != states.AdminWaitServerDetails {
		t.Fatalf("expected server-details state, got %q", got)
	}

	if err := router.Route(textUpdate(300, "Frankfurt,https://panel.example.com:2053,admin,secret")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.servers.Created) != 1 {
		t.Fatalf("expected one server created, got %d", len(m.servers.Created))
	}
	created := m.servers.Created[0]
	if created.Title != "Frankfurt" || created.BaseURL != "https://panel.example.com:2053" {
		t.Errorf("unexpected server parsed: %+v", created)
	}
	if got := m.states.GetState(testChatID); got != states.StateNone {
		t.Errorf("expected state cleared after save, got %q", got)
	}
	if text := lastText(t, m.bot); text != messages.ServerSaved {
		t.Errorf("expected saved confirmation, got %q", text)
	}
}

func TestAddServerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
		want string
	}{
		{name: "too few fields", text: "Frankfurt,https://x.com", want: messages.InvalidServer},
		{name: "bad url", text: "Frankfurt,ftp://x,admin,pw", want: messages.InvalidServer},
		{name: "unreachable panel", text: "Frankfurt,https://panel.example.com,admin,pw", err: servers.ErrUnreachable, want: messages.ServerUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newTestRouter(t)
			asAdmin(m, 300)
			m.states.SetState(testChatID, states.AdminWaitServerDetails, nil)
			m.servers.CreateErr = tt.err

			if err := router.Route(textUpdate(300, tt.text)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text := lastText(t, m.bot); text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, text)
			}
		})
	}
}

func TestAddPlanFlow(t *testing.T) {
	router, m := newTestRouter(t)
	asAdmin(m, 300)
	m.servers.Servers = []*servers.Server{{ID: 1, Title: "Frankfurt"}}
	m.states.SetState(testChatID, states.AdminWaitPlanDetails, nil)

	if err := router.Route(textUpdate(300, "1,Gold,DE,7,50,30,2,12.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.plans.Created) != 1 {
		t.Fatalf("expected one plan created, got %d", len(m.plans.Created))
	}
	plan := m.plans.Created[0]
	if plan.ServerID != 1 || plan.Name != "Gold" || plan.Country != "DE" ||
		plan.InboundID != 7 || plan.VolumeGB != 50 || plan.DurationDays != 30 ||
		plan.MultiUser != 2 || plan.Price != 12.5 {
		t.Errorf("unexpected plan parsed: %+v", plan)
	}
}

func TestAddPlanRejectsNonNumericFields(t *testing.T) {
	router, m := newTestRouter(t)
	asAdmin(m, 300)
	m.states.SetState(testChatID, states.AdminWaitPlanDetails, nil)

	if err := router.Route(textUpdate(300, "one,Gold,DE,7,50,30,2,12.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.plans.Created) != 0 {
		t.Fatal("expected no plan created")
	}
	if text := lastText(t, m.bot); text != messages.PlanNumericFields {
		t.Errorf("expected numeric-fields error, got %q", text)
	}
}

func TestSetRoleFlow(t *testing.T) {
	router, m := newTestRouter(t)
	asAdmin(m, 300)
	m.states.SetState(testChatID, states.AdminWaitRoleAssign, nil)
	m.users.PromoteResult = &users.User{ID: 5, Username: "bobby", Role: users.RoleAccountant}

	if err := router.Route(textUpdate(300, "@bobby ACCOUNTANT")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.users.Promoted) != 1 || m.users.Promoted[0] != "bobby ACCOUNTANT" {
		t.Fatalf("expected bobby promoted, got %v", m.users.Promoted)
	}
	if text := lastText(t, m.bot); !strings.Contains(text, "@bobby is now ACCOUNTANT") {
		t.Errorf("expected promotion confirmation, got %q", text)
	}
}

func TestSetRoleRejectsUnknownRoleAndUser(t *testing.T) {
	router, m := newTestRouter(t)
	asAdmin(m, 300)

	m.states.SetState(testChatID, states.AdminWaitRoleAssign, nil)
	if err := router.Route(textUpdate(300, "@bobby OVERLORD")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := lastText(t, m.bot); text != messages.InvalidRole {
		t.Errorf("expected invalid-role error, got %q", text)
	}

	m.states.SetState(testChatID, states.AdminWaitRoleAssign, nil)
	m.users.PromoteResult = nil
	if err := router.Route(textUpdate(300, "@ghost ADMIN")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := lastText(t, m.bot); text != messages.UserNotFound {
		t.Errorf("expected user-not-found error, got %q", text)
	}
}

func TestAdminStateDeniedForRegularUser(t *testing.T) {
	router, m := newTestRouter(t)
	m.states.SetState(testChatID, states.AdminWaitServerDetails, nil)

	if err := router.Route(textUpdate(100, "Frankfurt,https://x.com,admin,pw")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.servers.Created) != 0 {
		t.Fatal("expected no server created by a regular user")
	}
	if text := lastText(t, m.bot); text != messages.AccessDenied {
		t.Errorf("expected access denied, got %q", text)
	}
	if got := m.states.GetState(testChatID); got != states.StateNone {
		t.Errorf("expected state cleared, got %q", got)
	}
}

func TestAdminByConfiguredID(t *testing.T) {
	router, m := newTestRouter(t)

	// testAdminID is in AdminIDs but has no elevated DB role.
	if err := router.Route(commandUpdate(testAdminID, "servers")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text := lastText(t, m.bot); text == messages.AccessDenied {
		t.Error("expected configured admin ID to pass the role check")
	}
}

func TestRateLimitBlocksUpdate(t *testing.T) {
	router, m := newTestRouter(t)
	m.limiter.Blocked = true

	if err := router.Route(commandUpdate(100, "plans")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text := lastText(t, m.bot); text != messages.RateLimited {
		t.Errorf("expected rate-limit notice, got %q", text)
	}
	if len(m.users.Users) != 0 {
		t.Error("expected no user lookup for a throttled update")
	}
}

func TestCommandClearsConversationState(t *testing.T) {
	router, m := newTestRouter(t)
	m.states.SetState(testChatID, states.BuyWaitReceipt, &states.BuyFlowData{OrderID: 77})

	if err := router.Route(commandUpdate(100, "start")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.states.GetState(testChatID); got != states.StateNone {
		t.Errorf("expected state cleared by command, got %q", got)
	}
}

func TestMyOrdersShowsUsageAndConfig(t *testing.T) {
	router, m := newTestRouter(t)
	user := &users.User{ID: 100, TelegramID: 100, Role: users.RoleUser}
	m.users.Users[100] = user

	configID := "client-uuid"
	link := "vless://client-uuid@host:443?type=tcp#Gold"
	m.orders.Orders = []*orders.Order{
		{ID: 7, UserID: 100, PlanID: 1, ServerID: 1, Status: orders.StatusActive, ConfigID: &configID, ConfigLink: &link},
	}
	m.plans.Plans = []*plans.Plan{{ID: 1, Name: "Gold"}}
	m.servers.Servers = []*servers.Server{{ID: 1}}
	m.traffic.Traffic = &xui.ClientTraffic{Up: 1 << 30, Down: 2 << 30}

	if err := router.Route(commandUpdate(100, "myorders")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := lastText(t, m.bot)
	if !strings.Contains(text, "Used: 3.00 GB") {
		t.Errorf("expected traffic usage in listing, got %q", text)
	}
	if !strings.Contains(text, link) {
		t.Errorf("expected config link in listing, got %q", text)
	}
}

func TestReceiptsCommandSendsPendingPhotos(t *testing.T) {
	router, m := newTestRouter(t)
	asAccountant(m, 200)

	fileID := "receipt-file"
	m.orders.Orders = []*orders.Order{
		{ID: 7, UserID: 100, PlanID: 1, Status: orders.StatusPendingReview, ReceiptFileID: &fileID},
		{ID: 8, UserID: 100, PlanID: 1, Status: orders.StatusActive},
	}
	m.plans.Plans = []*plans.Plan{{ID: 1, Name: "Gold", Price: 12.5}}

	if err := router.Route(commandUpdate(200, "receipts")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.photos.Photos) != 1 {
		t.Fatalf("expected one pending receipt photo, got %d", len(m.photos.Photos))
	}
	sent := m.photos.Photos[0]
	if sent.FileID != fileID {
		t.Errorf("expected receipt file forwarded, got %q", sent.FileID)
	}
	if !strings.Contains(sent.Caption, "Order #7") || !strings.Contains(sent.Caption, "Gold") {
		t.Errorf("unexpected caption %q", sent.Caption)
	}
}

func TestDeleteServerCallback(t *testing.T) {
	router, m := newTestRouter(t)
	asAdmin(m, 300)

	if err := router.Route(callbackUpdate(300, "delsrv:3")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.servers.Deleted) != 1 || m.servers.Deleted[0] != 3 {
		t.Fatalf("expected server 3 deleted, got %v", m.servers.Deleted)
	}
}
