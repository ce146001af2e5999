package panelhealth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"tondar-bot/internal/stories/servers"
)

type fakeStorage struct {
	servers []*servers.Server
}

func (f *fakeStorage) ListServers(_ context.Context, _ servers.ListCriteria) ([]*servers.Server, error) {
	return f.servers, nil
}

type fakeChecker struct {
	up map[int64]bool
}

func (f *fakeChecker) CheckConnection(_ context.Context, baseURL, _, _ string) bool {
	// Test URLs end with the server ID.
	if strings.HasSuffix(baseURL, "1") {
		return f.up[1]
	}
	return f.up[2]
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) SendText(_ context.Context, _ int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func newTestWorker(storage *fakeStorage, checker *fakeChecker, notifier *fakeNotifier) *Worker {
	return NewWorker(storage, checker, notifier, []int64{42}, 0,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifiesOnDownTransition(t *testing.T) {
	storage := &fakeStorage{servers: []*servers.Server{
		{ID: 1, Title: "Frankfurt", BaseURL: "https://panel1"},
	}}
	checker := &fakeChecker{up: map[int64]bool{1: true}}
	notifier := &fakeNotifier{}
	w := newTestWorker(storage, checker, notifier)

	w.checkPanels(context.Background())
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notification while up, got %v", notifier.sent)
	}

	checker.up[1] = false
	w.checkPanels(context.Background())
	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "not responding") {
		t.Fatalf("expected down notification, got %v", notifier.sent)
	}

	// Staying down does not repeat the alert.
	w.checkPanels(context.Background())
	if len(notifier.sent) != 1 {
		t.Fatalf("expected no repeat alert, got %v", notifier.sent)
	}
}

func TestNotifiesOnRecovery(t *testing.T) {
	storage := &fakeStorage{servers: []*servers.Server{
		{ID: 1, Title: "Frankfurt", BaseURL: "https://panel1"},
	}}
	checker := &fakeChecker{up: map[int64]bool{1: false}}
	notifier := &fakeNotifier{}
	w := newTestWorker(storage, checker, notifier)

	w.checkPanels(context.Background())
	checker.up[1] = true
	w.checkPanels(context.Background())

	if len(notifier.sent) != 2 {
		t.Fatalf("expected down and recovery notifications, got %v", notifier.sent)
	}
	if !strings.Contains(notifier.sent[1], "back after") {
		t.Errorf("expected recovery text, got %q", notifier.sent[1])
	}
}
