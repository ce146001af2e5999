package workers

// Worker is a background loop with an explicit lifecycle.
type Worker interface {
	// Start launches the worker's loop.
	Start() error

	// Stop signals the loop and waits for it to exit.
	Stop()

	// Name identifies the worker in logs.
	Name() string
}
