// Package panels hands out authenticated x-ui clients per server row.
// Clients are cached by server credentials so the interactive approval
// path and the expiration worker share one session per panel instead
// of logging in on every call.
package panels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tondar-bot/internal/stories/orders"
	"tondar-bot/internal/stories/servers"
	"tondar-bot/internal/xui"
)

type Factory struct {
	insecureSkipVerify bool
	timeout            time.Duration
	maxRetries         int
	retryBackoff       time.Duration
	logger             *slog.Logger

	mu    sync.Mutex
	cache map[string]*xui.Client
}

type Option func(*Factory)

// WithInsecureSkipVerify disables TLS certificate verification for
// panels behind self-signed certificates.
func WithInsecureSkipVerify(skip bool) Option {
	return func(f *Factory) {
		f.insecureSkipVerify = skip
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(f *Factory) {
		f.timeout = timeout
	}
}

func WithMaxRetries(retries int) Option {
	return func(f *Factory) {
		f.maxRetries = retries
	}
}

func WithRetryBackoff(backoff time.Duration) Option {
	return func(f *Factory) {
		f.retryBackoff = backoff
	}
}

func NewFactory(logger *slog.Logger, opts ...Option) *Factory {
	f := &Factory{
		logger: logger,
		cache:  map[string]*xui.Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ClientFor returns the cached client for the server, building one on
// first use. The cache key includes the credentials, so rotating a
// server's password yields a fresh session.
func (f *Factory) ClientFor(server *servers.Server) (orders.PanelClient, error) {
	return f.clientFor(server)
}

func (f *Factory) clientFor(server *servers.Server) (*xui.Client, error) {
	key := fmt.Sprintf("%s|%s|%s", server.BaseURL, server.Username, server.Password)

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.cache[key]; ok {
		return client, nil
	}

	client, err := f.build(server)
	if err != nil {
		return nil, err
	}
	f.cache[key] = client
	return client, nil
}

// ClientTraffic reads usage stats for a provisioned client. Lookups
// are best-effort: a (nil, nil) result means the panel had nothing to
// say.
func (f *Factory) ClientTraffic(ctx context.Context, server *servers.Server, clientID string) (*xui.ClientTraffic, error) {
	client, err := f.clientFor(server)
	if err != nil {
		return nil, err
	}
	return client.ClientTrafficByID(ctx, clientID)
}

// Build constructs an uncached client, for credential validation
// before a server row is persisted.
func (f *Factory) Build(baseURL, username, password string) (*xui.Client, error) {
	return f.build(&servers.Server{BaseURL: baseURL, Username: username, Password: password})
}

// CheckConnection validates credentials by attempting a login.
// All failures collapse into false; this runs before a server row is
// saved and the operator only needs a yes or no.
func (f *Factory) CheckConnection(ctx context.Context, baseURL, username, password string) bool {
	client, err := f.Build(baseURL, username, password)
	if err != nil {
		f.logger.Warn("failed to build panel client for connection check",
			slog.String("base_url", baseURL),
			slog.String("error", err.Error()),
		)
		return false
	}
	return client.CheckConnection(ctx)
}

func (f *Factory) build(server *servers.Server) (*xui.Client, error) {
	opts := []xui.Option{
		xui.WithLogger(f.logger),
	}
	if f.insecureSkipVerify {
		opts = append(opts, xui.WithInsecureSkipVerify(true))
	}
	if f.timeout > 0 {
		opts = append(opts, xui.WithTimeout(f.timeout))
	}
	if f.maxRetries > 0 {
		opts = append(opts, xui.WithMaxRetries(f.maxRetries))
	}
	if f.retryBackoff > 0 {
		opts = append(opts, xui.WithRetryBackoff(f.retryBackoff))
	}

	client, err := xui.New(server.BaseURL, server.Username, server.Password, opts...)
	if err != nil {
		return nil, fmt.Errorf("build panel client for %s: %w", server.BaseURL, err)
	}
	return client, nil
}
