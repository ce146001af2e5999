package xui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// expiryMillisThreshold separates seconds from milliseconds since
// epoch. Anything below it (roughly year 2001 in milliseconds) is
// assumed to be seconds.
const expiryMillisThreshold = int64(1_000_000_000_000)

// Client performs authenticated operations against inbound client
// entries on one 3x-ui panel.
type Client struct {
	*Session
}

// New builds a panel client for the given base URL and credentials.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	session, err := newSession(baseURL, username, password, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Session: session}, nil
}

type addClientRequest struct {
	ID int `json:"id"`
	// Settings is a JSON-stringified object, not a nested one. The
	// panel rejects a plain object here.
	Settings string `json:"settings"`
}

type delClientRequest struct {
	ID        int      `json:"id"`
	ClientIDs []string `json:"clientIds"`
}

// CreateClient provisions a client entry on the inbound. The entry id
// falls back from spec.ID to the email to a fresh uuid, and the expiry
// is normalized to milliseconds.
func (c *Client) CreateClient(ctx context.Context, inboundID int, spec ClientSpec) (*CreateClientResult, error) {
	id := spec.ID
	if id == "" {
		id = spec.Email
	}
	if id == "" {
		id = uuid.New().String()
	}

	email := spec.Email
	if email == "" {
		email = id
	}

	subID := spec.SubID
	if subID == "" {
		subID = shortID(id)
	}

	limitIP := spec.LimitIP
	if limitIP == 0 {
		limitIP = 1
	}

	entry := ClientEntry{
		ID:         id,
		Flow:       spec.Flow,
		Email:      email,
		LimitIP:    limitIP,
		TotalGB:    spec.TotalBytes,
		ExpiryTime: normalizeExpiryMillis(spec.ExpiryTime),
		Enable:     true,
		TgID:       spec.TgID,
		SubID:      subID,
		Reset:      spec.Reset,
	}

	settings, err := json.Marshal(map[string][]ClientEntry{"clients": {entry}})
	if err != nil {
		return nil, fmt.Errorf("marshal client settings: %w", err)
	}

	env, err := c.request(ctx, http.MethodPost, "panel/api/inbounds/addClient", addClientRequest{
		ID:       inboundID,
		Settings: string(settings),
	})
	if err != nil {
		return nil, err
	}

	return &CreateClientResult{Client: entry, Msg: env.Msg()}, nil
}

// RemoveClient deletes a single client entry from the inbound.
func (c *Client) RemoveClient(ctx context.Context, inboundID int, clientID string) error {
	_, err := c.request(ctx, http.MethodPost, "panel/api/inbounds/delClient", delClientRequest{
		ID:        inboundID,
		ClientIDs: []string{clientID},
	})
	return err
}

// GetInbound fetches the inbound definition, used for building
// shareable connection strings.
func (c *Client) GetInbound(ctx context.Context, inboundID int) (*Inbound, error) {
	env, err := c.request(ctx, http.MethodGet, fmt.Sprintf("panel/api/inbounds/get/%d", inboundID), nil)
	if err != nil {
		return nil, err
	}

	var inbound Inbound
	if err := json.Unmarshal(env.Payload(), &inbound); err != nil {
		return nil, &PanelError{Op: "get inbound", Payload: preview(env.raw)}
	}
	return &inbound, nil
}

// ListInbounds returns all inbounds configured on the panel. A missing
// or non-list payload yields an empty slice rather than an error.
func (c *Client) ListInbounds(ctx context.Context) ([]Inbound, error) {
	env, err := c.request(ctx, http.MethodGet, "panel/api/inbounds/list", nil)
	if err != nil {
		return nil, err
	}

	payload := env.Payload()
	if payload == nil {
		return []Inbound{}, nil
	}
	var inbounds []Inbound
	if err := json.Unmarshal(payload, &inbounds); err != nil {
		return []Inbound{}, nil
	}
	return inbounds, nil
}

// ClientTraffic returns usage statistics for a client on a known
// inbound.
func (c *Client) ClientTraffic(ctx context.Context, inboundID int, clientID string) (*ClientTraffic, error) {
	path := fmt.Sprintf("panel/api/inbounds/getClientTraffics/%d?clientId=%s", inboundID, clientID)
	env, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeTraffic(env), nil
}

// ClientTrafficByID returns usage statistics looked up by client id
// alone. The lookup is best-effort: panel and connection failures are
// swallowed and reported as absence.
func (c *Client) ClientTrafficByID(ctx context.Context, clientID string) (*ClientTraffic, error) {
	env, err := c.request(ctx, http.MethodGet, "panel/api/inbounds/getClientTrafficsById/"+clientID, nil)
	if err != nil {
		var panelErr *PanelError
		var connErr *ConnError
		if errors.As(err, &panelErr) || errors.As(err, &connErr) {
			return nil, nil
		}
		return nil, err
	}
	return decodeTraffic(env), nil
}

// decodeTraffic normalizes both list-wrapped and bare-object response
// shapes into a single record.
func decodeTraffic(env *envelope) *ClientTraffic {
	payload := env.Payload()
	if payload == nil {
		return nil
	}

	var list []ClientTraffic
	if err := json.Unmarshal(payload, &list); err == nil {
		if len(list) == 0 {
			return nil
		}
		return &list[0]
	}

	var single ClientTraffic
	if err := json.Unmarshal(payload, &single); err == nil {
		return &single
	}
	return nil
}

// CheckConnection performs only the login step and reports the result
// as a boolean, swallowing all errors. Used to validate credentials
// before a server is persisted.
func (c *Client) CheckConnection(ctx context.Context) bool {
	if c.isAuthenticated() {
		return true
	}
	return c.Login(ctx) == nil
}

// request performs an authenticated call. An authentication-failure
// status (401 or 403 — panel builds are inconsistent about which one
// signals session expiry) triggers exactly one re-login followed by one
// retried call; the second pass never re-authenticates again.
func (c *Client) request(ctx context.Context, method, path string, body any) (*envelope, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	reqURL := c.buildURL(path)

	for pass := 0; pass < 2; pass++ {
		status, raw, err := c.send(ctx, method, reqURL, payload)
		if err != nil {
			return nil, err
		}

		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			if pass > 0 {
				requestsTotal.WithLabelValues(method, "auth_rejected").Inc()
				return nil, &PanelError{Op: path, Status: status, Payload: "session rejected after re-authentication"}
			}
			c.logger.Debug("panel session expired, re-authenticating", "status", status, "path", path)
			c.invalidate()
			if err := c.Login(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if status >= http.StatusBadRequest {
			requestsTotal.WithLabelValues(method, "error").Inc()
			return nil, &PanelError{Op: path, Status: status, Payload: preview(raw)}
		}

		// Some endpoints answer 200 with an empty body on success.
		if len(bytes.TrimSpace(raw)) == 0 {
			requestsTotal.WithLabelValues(method, "ok").Inc()
			return &envelope{fields: map[string]json.RawMessage{"success": json.RawMessage("true")}}, nil
		}

		env, err := decodeEnvelope(raw)
		if err != nil {
			requestsTotal.WithLabelValues(method, "error").Inc()
			return nil, &PanelError{Op: path, Payload: "invalid JSON response: " + preview(raw)}
		}
		if !env.OK() {
			requestsTotal.WithLabelValues(method, "error").Inc()
			return nil, &PanelError{Op: path, Payload: preview(raw)}
		}

		requestsTotal.WithLabelValues(method, "ok").Inc()
		return env, nil
	}

	// Unreachable: the second pass always returns.
	return nil, &PanelError{Op: path, Payload: "request retry exhausted"}
}

// send performs the HTTP exchange with the same transport retry and
// backoff policy as login.
func (c *Client) send(ctx context.Context, method, reqURL string, payload []byte) (int, []byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return 0, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			requestsTotal.WithLabelValues(method, "conn_error").Inc()
			c.logger.Warn("panel request attempt failed",
				"attempt", attempt,
				"max_attempts", c.maxRetries,
				"url", reqURL,
				"error", err)
			if attempt < c.maxRetries {
				c.sleep(c.backoff * time.Duration(attempt))
			}
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("read response body: %w", err)
		}
		return resp.StatusCode, raw, nil
	}

	return 0, nil, c.connError(lastErr)
}

func normalizeExpiryMillis(expiry int64) int64 {
	if expiry != 0 && expiry < expiryMillisThreshold {
		return expiry * 1000
	}
	return expiry
}

func shortID(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
