package xui

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

const (
	hintTLS     = "This usually means the panel URL uses https:// but the server expects http://, or the server has a broken TLS setup. Try changing the server URL from https:// to http://."
	hintRefused = "Make sure the panel is running and the port is correct."
	hintTimeout = "The server took too long to respond. Check network connectivity."
)

type config struct {
	timeout            time.Duration
	maxRetries         int
	backoff            time.Duration
	insecureSkipVerify bool
	logger             *slog.Logger
}

type Option func(*config)

func WithTimeout(timeout time.Duration) Option {
	return func(c *config) { c.timeout = timeout }
}

func WithRetryBackoff(backoff time.Duration) Option {
	return func(c *config) { c.backoff = backoff }
}

func WithMaxRetries(retries int) Option {
	return func(c *config) { c.maxRetries = retries }
}

// WithInsecureSkipVerify disables certificate verification. Most 3x-ui
// installs run on self-signed certificates, so this is commonly on.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *config) { c.insecureSkipVerify = skip }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Session holds the authentication state against one panel base URL.
// It is safe for concurrent use: a server may be shared between the
// interactive approval path and the background expiration worker.
type Session struct {
	baseURL    string
	loginURL   *url.URL
	apiBaseURL *url.URL
	username   string
	password   string
	maxRetries int
	backoff    time.Duration
	http       *http.Client
	logger     *slog.Logger
	sleep      func(time.Duration)

	mu            sync.Mutex
	authenticated bool
}

func newSession(baseURL, username, password string, opts ...Option) (*Session, error) {
	cfg := &config{
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	normalized, loginRaw, apiRaw := deriveURLs(baseURL)

	loginURL, err := url.Parse(loginRaw)
	if err != nil {
		return nil, fmt.Errorf("parse login url: %w", err)
	}
	apiURL, err := url.Parse(apiRaw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Session{
		baseURL:    normalized,
		loginURL:   loginURL,
		apiBaseURL: apiURL,
		username:   username,
		password:   password,
		maxRetries: cfg.maxRetries,
		backoff:    cfg.backoff,
		http: &http.Client{
			Jar:       jar,
			Timeout:   cfg.timeout,
			Transport: transport,
		},
		logger: cfg.logger,
		sleep:  time.Sleep,
	}, nil
}

// deriveURLs normalizes the configured base URL and splits it into the
// login URL and the API base URL. Some deployments expose the login
// form at a dedicated /login sub-path while others treat the root as
// the login endpoint; stripping the suffix keeps API calls working for
// both, including panels that live under nested paths.
func deriveURLs(raw string) (normalized, loginURL, apiBase string) {
	normalized = strings.TrimRight(raw, "/") + "/"
	loginURL = normalized
	apiBase = normalized
	trimmed := strings.TrimRight(normalized, "/")
	if strings.HasSuffix(strings.ToLower(trimmed), "/login") {
		apiBase = strings.TrimRight(trimmed[:len(trimmed)-len("/login")], "/") + "/"
	}
	return normalized, loginURL, apiBase
}

// buildURL resolves an API path against the API base URL, preserving
// nested deployment paths (e.g. https://host:port/testpatch/).
func (s *Session) buildURL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return s.apiBaseURL.String() + path
	}
	return s.apiBaseURL.ResolveReference(ref).String()
}

func (s *Session) isAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Session) invalidate() {
	s.mu.Lock()
	s.authenticated = false
	s.mu.Unlock()
}

// Login authenticates against the panel, retrying transport failures
// with a linearly increasing backoff. Each attempt submits credentials
// as JSON first and falls back to form encoding, because panel builds
// disagree on which they accept.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLocked(ctx)
}

func (s *Session) ensureLogin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated {
		return nil
	}
	return s.loginLocked(ctx)
}

func (s *Session) loginLocked(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		env, err := s.tryLogin(ctx, true)
		if err == nil {
			if s.validateLogin(env) {
				s.authenticated = true
				loginsTotal.WithLabelValues("json").Inc()
				s.logger.Info("logged in to panel", "url", s.baseURL, "encoding", "json")
				return nil
			}

			// Some panel builds only accept form-encoded credentials.
			env, err = s.tryLogin(ctx, false)
			if err == nil {
				if s.validateLogin(env) {
					s.authenticated = true
					loginsTotal.WithLabelValues("form").Inc()
					s.logger.Info("logged in to panel", "url", s.baseURL, "encoding", "form")
					return nil
				}
				loginsTotal.WithLabelValues("rejected").Inc()
				payload := "no response"
				if env != nil {
					payload = preview(env.raw)
				}
				return &PanelError{Op: "login", Payload: payload}
			}
		}

		lastErr = err
		s.logger.Warn("panel login attempt failed",
			"attempt", attempt,
			"max_attempts", s.maxRetries,
			"url", s.baseURL,
			"error", err)
		if attempt < s.maxRetries {
			s.sleep(s.backoff * time.Duration(attempt))
		}
	}

	loginsTotal.WithLabelValues("unreachable").Inc()
	return s.connError(lastErr)
}

// tryLogin performs a single login request. Transport-level failures
// are returned for retry handling; an unparseable or non-2xx response
// yields (nil, nil) so the caller moves on to the next strategy.
func (s *Session) tryLogin(ctx context.Context, asJSON bool) (*envelope, error) {
	var (
		body        io.Reader
		contentType string
	)
	if asJSON {
		creds, err := json.Marshal(map[string]string{
			"username": s.username,
			"password": s.password,
		})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(creds)
		contentType = "application/json"
	} else {
		form := url.Values{}
		form.Set("username", s.username)
		form.Set("password", s.password)
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		s.logger.Warn("login request rejected",
			"status", resp.StatusCode,
			"body", preview(raw))
		return nil, nil
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		s.logger.Warn("failed to decode login response",
			"error", err,
			"body", preview(raw))
		return nil, nil
	}
	return env, nil
}

// validateLogin judges a login response. Session detection is
// cookie-name-agnostic: any cookie in the jar counts, because panel
// builds use arbitrary cookie names. A success without cookie or token
// is still trusted, matching observed panel behavior, but logged.
func (s *Session) validateLogin(env *envelope) bool {
	if env == nil || !env.OK() {
		return false
	}
	if len(s.http.Jar.Cookies(s.loginURL)) > 0 {
		return true
	}
	if env.hasToken() {
		s.logger.Debug("login succeeded with token in response body")
		return true
	}
	s.logger.Warn("login reported success but set no session cookie or token; trusting it anyway",
		"url", s.baseURL)
	return true
}

func (s *Session) connError(err error) *ConnError {
	var hint string
	switch {
	case isTLSError(err):
		hint = hintTLS
	case isRefused(err):
		hint = hintRefused
	case isTimeout(err):
		hint = hintTimeout
	}
	return &ConnError{URL: s.baseURL, Hint: hint, Err: err}
}

func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "ssl") || strings.Contains(msg, "tls") || strings.Contains(msg, "certificate")
}

func isRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout")
}
