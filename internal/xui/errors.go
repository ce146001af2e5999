package xui

import "fmt"

// ConnError is returned when the panel cannot be reached at all:
// TLS handshake failures, refused connections, timeouts. It carries a
// remediation hint because the most common causes are operator mistakes
// (wrong scheme, wrong port) rather than code bugs.
type ConnError struct {
	URL  string
	Hint string
	Err  error
}

func (e *ConnError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("failed to connect to panel at %s: %v. %s", e.URL, e.Err, e.Hint)
	}
	return fmt.Sprintf("failed to connect to panel at %s: %v", e.URL, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// PanelError is returned when the panel is reachable but rejects the
// operation or answers with something we cannot interpret. These are
// not retried beyond the built-in encoding fallback.
type PanelError struct {
	Op      string
	Status  int
	Payload string
}

func (e *PanelError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("panel %s failed with status %d: %s", e.Op, e.Status, e.Payload)
	}
	return fmt.Sprintf("panel %s failed: %s", e.Op, e.Payload)
}
