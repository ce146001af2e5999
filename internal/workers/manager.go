package workers

import (
	"fmt"
	"log/slog"
)

// Manager starts and stops a set of workers as one unit.
type Manager struct {
	workers []Worker
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger, workers ...Worker) *Manager {
	return &Manager{
		workers: workers,
		logger:  logger,
	}
}

// Start launches all workers in order. The first failure aborts the
// startup and is returned; already started workers keep running and
// are stopped by the caller's shutdown path.
func (m *Manager) Start() error {
	m.logger.Info("Starting workers", "count", len(m.workers))

	for _, worker := range m.workers {
		if err := worker.Start(); err != nil {
			return fmt.Errorf("failed to start worker %s: %w", worker.Name(), err)
		}
		m.logger.Info("Worker started", "name", worker.Name())
	}
	return nil
}

// Stop stops all workers, waiting for each to exit.
func (m *Manager) Stop() {
	for _, worker := range m.workers {
		m.logger.Info("Stopping worker", "name", worker.Name())
		worker.Stop()
	}
	m.logger.Info("All workers stopped")
}
