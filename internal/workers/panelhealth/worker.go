package panelhealth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tondar-bot/internal/stories/servers"
)

const defaultInterval = 5 * time.Minute

type panelStatus struct {
	isUp         bool
	lastCheck    time.Time
	failureCount int
}

// Worker periodically logs in to every configured panel and tells
// admins when one stops answering, so broken credentials or a downed
// panel are noticed before the next approval fails.
type Worker struct {
	storage  Storage
	checker  Checker
	notifier Notifier
	adminIDs []int64
	interval time.Duration
	logger   *slog.Logger

	statusMu sync.Mutex
	statuses map[int64]*panelStatus

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWorker(
	storage Storage,
	checker Checker,
	notifier Notifier,
	adminIDs []int64,
	interval time.Duration,
	logger *slog.Logger,
) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		storage:  storage,
		checker:  checker,
		notifier: notifier,
		adminIDs: adminIDs,
		interval: interval,
		logger:   logger,
		statuses: make(map[int64]*panelStatus),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return "panelhealth"
}

func (w *Worker) Start() error {
	w.logger.Info("Starting panel health worker",
		"interval", w.interval,
		"admin_count", len(w.adminIDs))

	go w.run()
	return nil
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping panel health worker")
	close(w.stopCh)
	<-w.doneCh
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkPanels(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) checkPanels(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic in panel health check", "panic", r)
		}
	}()

	list, err := w.storage.ListServers(ctx, servers.ListCriteria{})
	if err != nil {
		w.logger.Error("Failed to list servers", "error", err)
		return
	}

	for _, server := range list {
		isUp := w.checker.CheckConnection(ctx, server.BaseURL, server.Username, server.Password)
		w.updateStatus(ctx, server, isUp)
	}
}

func (w *Worker) updateStatus(ctx context.Context, server *servers.Server, isUp bool) {
	w.statusMu.Lock()

	now := time.Now()
	status, exists := w.statuses[server.ID]
	if !exists {
		status = &panelStatus{isUp: true, lastCheck: now}
		w.statuses[server.ID] = status
	}

	var notifyText string
	switch {
	case status.isUp && !isUp:
		status.isUp = false
		status.failureCount = 1
		notifyText = fmt.Sprintf("Panel %s (%s) is not responding.", server.Title, server.BaseURL)
	case !status.isUp && !isUp:
		status.failureCount++
		w.logger.Warn("Panel still down",
			"server", server.Title,
			"failed_checks", status.failureCount)
	case !status.isUp && isUp:
		downtime := now.Sub(status.lastCheck)
		status.isUp = true
		status.failureCount = 0
		notifyText = fmt.Sprintf("Panel %s (%s) is back after %s of downtime.",
			server.Title, server.BaseURL, formatDuration(downtime))
	}
	if isUp || notifyText != "" {
		status.lastCheck = now
	}

	w.statusMu.Unlock()

	if notifyText != "" {
		w.notifyAdmins(ctx, notifyText)
	}
}

func (w *Worker) notifyAdmins(ctx context.Context, text string) {
	for _, adminID := range w.adminIDs {
		if err := w.notifier.SendText(ctx, adminID, text); err != nil {
			w.logger.Warn("Failed to notify admin",
				"admin_id", adminID,
				"error", err)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d sec", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d min", int(d.Minutes()))
	}
	return fmt.Sprintf("%d h %d min", int(d.Hours()), int(d.Minutes())%60)
}
