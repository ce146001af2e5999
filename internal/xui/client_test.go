package xui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// panelStub emulates the subset of 3x-ui behavior the client depends
// on: cookie-based login at the base URL and JSON API endpoints.
type panelStub struct {
	mux    *http.ServeMux
	logins int
	calls  int
}

func newPanelStub(api func(w http.ResponseWriter, r *http.Request, authed bool)) *panelStub {
	stub := &panelStub{mux: http.NewServeMux()}
	stub.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodPost {
			stub.logins++
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok"})
			w.Write([]byte(`{"success":true}`))
			return
		}
		stub.calls++
		_, err := r.Cookie("session")
		api(w, r, err == nil)
	})
	return stub
}

func TestNormalizeExpiryMillis(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  int64
	}{
		{"zero left alone", 0, 0},
		{"seconds converted", 1735689600, 1735689600000},
		{"milliseconds unchanged", 1735689600000, 1735689600000},
		{"threshold boundary is milliseconds", expiryMillisThreshold, expiryMillisThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeExpiryMillis(tt.input); got != tt.want {
				t.Errorf("normalizeExpiryMillis(%d) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestLogsInBeforeFirstCall(t *testing.T) {
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		if !authed {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"success":true,"obj":[]}`))
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.ListInbounds(context.Background()); err != nil {
		t.Fatalf("ListInbounds: %v", err)
	}
	if stub.logins != 1 {
		t.Errorf("expected login before first call, got %d logins", stub.logins)
	}
	if stub.calls != 1 {
		t.Errorf("expected 1 api call, got %d", stub.calls)
	}
}

func TestRequestReauthenticatesOnceOnSessionExpiry(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		rejected := false
		stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
			// Reject the first authenticated call to simulate a stale
			// session, accept the retried one.
			if !rejected {
				rejected = true
				w.WriteHeader(status)
				return
			}
			w.Write([]byte(`{"success":true,"obj":[]}`))
		})
		server := httptest.NewServer(stub.mux)

		c := newTestClient(t, server.URL)
		if _, err := c.ListInbounds(context.Background()); err != nil {
			t.Fatalf("status %d: ListInbounds: %v", status, err)
		}
		if stub.logins != 2 {
			t.Errorf("status %d: expected initial login plus one re-login, got %d", status, stub.logins)
		}
		if stub.calls != 2 {
			t.Errorf("status %d: expected exactly one retried call, got %d calls", status, stub.calls)
		}
		server.Close()
	}
}

func TestRequestReauthenticationIsBounded(t *testing.T) {
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ListInbounds(context.Background())

	var panelErr *PanelError
	if !errors.As(err, &panelErr) {
		t.Fatalf("expected *PanelError, got %T: %v", err, err)
	}
	if stub.calls != 2 {
		t.Errorf("expected the auth retry to stop after 2 passes, got %d calls", stub.calls)
	}
}

func TestListInboundsNullObj(t *testing.T) {
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		w.Write([]byte(`{"success":true,"obj":null}`))
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	inbounds, err := c.ListInbounds(context.Background())
	if err != nil {
		t.Fatalf("ListInbounds: %v", err)
	}
	if inbounds == nil || len(inbounds) != 0 {
		t.Errorf("expected empty list, got %v", inbounds)
	}
}

func TestCreateClientSubmitsStringifiedSettings(t *testing.T) {
	var captured addClientRequest
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body is not an addClient payload: %v", err)
		}
		w.Write([]byte(`{"success":true,"msg":"Client added"}`))
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.CreateClient(context.Background(), 7, ClientSpec{
		Email:      "order-42",
		ExpiryTime: 1735689600, // seconds: must be normalized
		TotalBytes: 50 * 1024 * 1024 * 1024,
		LimitIP:    2,
	})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	if captured.ID != 7 {
		t.Errorf("inbound id = %d, want 7", captured.ID)
	}

	// The panel requires the inner settings to be a JSON string, not a
	// nested object.
	var settings struct {
		Clients []ClientEntry `json:"clients"`
	}
	if err := json.Unmarshal([]byte(captured.Settings), &settings); err != nil {
		t.Fatalf("settings is not a JSON-encoded string: %v", err)
	}
	if len(settings.Clients) != 1 {
		t.Fatalf("expected 1 client entry, got %d", len(settings.Clients))
	}

	entry := settings.Clients[0]
	if entry.Email != "order-42" || entry.ID != "order-42" {
		t.Errorf("unexpected identity: id=%q email=%q", entry.ID, entry.Email)
	}
	if entry.ExpiryTime != 1735689600000 {
		t.Errorf("expiry not normalized to milliseconds: %d", entry.ExpiryTime)
	}
	if !entry.Enable {
		t.Error("created entry must be enabled")
	}
	if result.Client.ID != entry.ID {
		t.Errorf("result entry %q differs from submitted entry %q", result.Client.ID, entry.ID)
	}
	if result.Msg != "Client added" {
		t.Errorf("msg = %q", result.Msg)
	}
}

func TestCreateClientGeneratesIdentifier(t *testing.T) {
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		w.Write([]byte(`{"success":true}`))
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.CreateClient(context.Background(), 1, ClientSpec{})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if result.Client.ID == "" {
		t.Error("expected a generated client id")
	}
	if result.Client.Email != result.Client.ID {
		t.Errorf("email should default to the id, got %q", result.Client.Email)
	}
	if len(result.Client.SubID) > 10 {
		t.Errorf("subId should be truncated to 10 chars, got %q", result.Client.SubID)
	}
}

func TestRemoveClientPayload(t *testing.T) {
	var captured delClientRequest
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Write([]byte(``)) // empty body counts as implicit success
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	if err := c.RemoveClient(context.Background(), 3, "abc-123"); err != nil {
		t.Fatalf("RemoveClient: %v", err)
	}
	if captured.ID != 3 {
		t.Errorf("inbound id = %d, want 3", captured.ID)
	}
	if len(captured.ClientIDs) != 1 || captured.ClientIDs[0] != "abc-123" {
		t.Errorf("clientIds = %v, want single abc-123", captured.ClientIDs)
	}
}

func TestClientTrafficByIDNormalizesShapes(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantEmail string
		wantNil   bool
	}{
		{"list wrapped", `{"success":true,"obj":[{"email":"order-1","up":10,"down":20}]}`, "order-1", false},
		{"bare object", `{"success":true,"obj":{"email":"order-2","up":1,"down":2}}`, "order-2", false},
		{"empty list", `{"success":true,"obj":[]}`, "", true},
		{"null obj", `{"success":true,"obj":null}`, "", true},
		{"panel error swallowed", `{"success":false,"msg":"not found"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
				w.Write([]byte(tt.response))
			})
			server := httptest.NewServer(stub.mux)
			defer server.Close()

			c := newTestClient(t, server.URL)
			traffic, err := c.ClientTrafficByID(context.Background(), "whatever")
			if err != nil {
				t.Fatalf("ClientTrafficByID: %v", err)
			}
			if tt.wantNil {
				if traffic != nil {
					t.Errorf("expected absence, got %+v", traffic)
				}
				return
			}
			if traffic == nil || traffic.Email != tt.wantEmail {
				t.Errorf("traffic = %+v, want email %q", traffic, tt.wantEmail)
			}
		})
	}
}

func TestRequestRejectsMalformedJSON(t *testing.T) {
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {
		w.Write([]byte(`<html>502 Bad Gateway</html>`))
	})
	server := httptest.NewServer(stub.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GetInbound(context.Background(), 1)

	var panelErr *PanelError
	if !errors.As(err, &panelErr) {
		t.Fatalf("expected *PanelError, got %T: %v", err, err)
	}
	if !strings.Contains(panelErr.Payload, "502 Bad Gateway") {
		t.Errorf("error should preview the unparseable body, got %q", panelErr.Payload)
	}
}

func TestCheckConnection(t *testing.T) {
	stub := newPanelStub(func(w http.ResponseWriter, r *http.Request, authed bool) {})
	server := httptest.NewServer(stub.mux)

	c := newTestClient(t, server.URL)
	if !c.CheckConnection(context.Background()) {
		t.Error("expected CheckConnection to succeed")
	}
	server.Close()

	down := newTestClient(t, "http://127.0.0.1:1")
	if down.CheckConnection(context.Background()) {
		t.Error("expected CheckConnection to fail against a closed port")
	}
}

func TestInboundClientsParsing(t *testing.T) {
	inbound := &Inbound{
		Settings: `{"clients":[{"id":"uuid-1","email":"order-5","enable":true}]}`,
	}

	client, ok := inbound.FindClient("uuid-1", "")
	if !ok || client.Email != "order-5" {
		t.Errorf("FindClient by id = (%+v, %v)", client, ok)
	}

	client, ok = inbound.FindClient("", "order-5")
	if !ok || client.ID != "uuid-1" {
		t.Errorf("FindClient by email = (%+v, %v)", client, ok)
	}

	if _, ok := inbound.FindClient("missing", "nobody"); ok {
		t.Error("FindClient should miss for unknown identity")
	}

	broken := &Inbound{Settings: `{not json`}
	if clients := broken.Clients(); len(clients) != 0 {
		t.Errorf("broken settings should yield no clients, got %v", clients)
	}
}
