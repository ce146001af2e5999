package sharelink

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"tondar-bot/internal/xui"
)

func TestBuildVlessWithReality(t *testing.T) {
	inbound := &xui.Inbound{
		ID:       1,
		Remark:   "Frankfurt",
		Port:     443,
		Protocol: "vless",
		StreamSettings: `{
			"network": "tcp",
			"security": "reality",
			"realitySettings": {
				"serverName": "cdn.example.com",
				"fingerprint": "chrome",
				"publicKey": "pbk-value",
				"shortIds": ["ab12", "cd34"]
			}
		}`,
	}
	client := xui.ClientEntry{ID: "uuid-1", Email: "order-7"}

	link := Build("https://panel.example.com:2053/xpath/", inbound, client)

	if !strings.HasPrefix(link, "vless://uuid-1@panel.example.com:443?") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	q := u.Query()
	for key, want := range map[string]string{
		"type":       "tcp",
		"encryption": "none",
		"security":   "reality",
		"sni":        "cdn.example.com",
		"fp":         "chrome",
		"pbk":        "pbk-value",
		"sid":        "ab12",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("param %s = %q, want %q", key, got, want)
		}
	}
	if u.Fragment != "Frankfurt" {
		t.Errorf("fragment = %q, want Frankfurt", u.Fragment)
	}
}

func TestBuildVlessWSOverTLS(t *testing.T) {
	inbound := &xui.Inbound{
		Remark:   "WS",
		Port:     8443,
		Protocol: "vless",
		StreamSettings: `{
			"network": "ws",
			"security": "tls",
			"tlsSettings": {"serverName": "ws.example.com", "alpn": ["h2", "http/1.1"]},
			"wsSettings": {"path": "/sub", "headers": {"Host": "ws.example.com"}}
		}`,
	}

	link := Build("https://panel.example.com", inbound, xui.ClientEntry{ID: "uuid-2"})

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	q := u.Query()
	if q.Get("path") != "/sub" {
		t.Errorf("path = %q, want /sub", q.Get("path"))
	}
	if q.Get("host") != "ws.example.com" {
		t.Errorf("host = %q, want ws.example.com", q.Get("host"))
	}
	if q.Get("alpn") != "h2,http/1.1" {
		t.Errorf("alpn = %q", q.Get("alpn"))
	}
}

func TestBuildVmess(t *testing.T) {
	inbound := &xui.Inbound{
		Remark:   "Vmess node",
		Port:     10443,
		Protocol: "vmess",
		StreamSettings: `{
			"network": "ws",
			"security": "tls",
			"tlsSettings": {"serverName": "v.example.com"},
			"wsSettings": {"path": "/v", "headers": {}}
		}`,
	}

	link := Build("https://panel.example.com", inbound, xui.ClientEntry{ID: "uuid-3"})

	if !strings.HasPrefix(link, "vmess://") {
		t.Fatalf("unexpected scheme: %s", link)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(link, "vmess://"))
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	var env map[string]string
	if err := json.Unmarshal(decoded, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	for key, want := range map[string]string{
		"v":    "2",
		"ps":   "Vmess node",
		"add":  "panel.example.com",
		"port": "10443",
		"id":   "uuid-3",
		"net":  "ws",
		"path": "/v",
		"tls":  "tls",
		"sni":  "v.example.com",
	} {
		if env[key] != want {
			t.Errorf("envelope %s = %q, want %q", key, env[key], want)
		}
	}
}

func TestBuildTrojan(t *testing.T) {
	inbound := &xui.Inbound{
		Remark:         "Trojan",
		Port:           443,
		Protocol:       "trojan",
		StreamSettings: `{"network": "tcp", "security": "tls", "tlsSettings": {"serverName": "t.example.com"}}`,
	}

	link := Build("https://panel.example.com", inbound, xui.ClientEntry{ID: "secret-pass"})

	if !strings.HasPrefix(link, "trojan://secret-pass@panel.example.com:443?") {
		t.Fatalf("unexpected link: %s", link)
	}
	u, _ := url.Parse(link)
	if got := u.Query().Get("sni"); got != "t.example.com" {
		t.Errorf("sni = %q", got)
	}
}

func TestBuildFallsBackToListenAddress(t *testing.T) {
	inbound := &xui.Inbound{
		Listen:   "10.0.0.5",
		Port:     443,
		Protocol: "vless",
	}

	link := Build("not a url at all %%", inbound, xui.ClientEntry{ID: "uuid-4", Email: "order-1"})

	if !strings.Contains(link, "@10.0.0.5:443") {
		t.Fatalf("expected listen address fallback, got %s", link)
	}
	// Remark absent, falls back to email.
	if !strings.HasSuffix(link, "#order-1") {
		t.Errorf("expected email fragment, got %s", link)
	}
}

func TestBuildReturnsEmptyWhenIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		inbound *xui.Inbound
		client  xui.ClientEntry
	}{
		{name: "nil inbound", inbound: nil, client: xui.ClientEntry{ID: "x"}},
		{name: "no port", inbound: &xui.Inbound{Protocol: "vless", Listen: "h"}, client: xui.ClientEntry{ID: "x"}},
		{name: "no protocol", inbound: &xui.Inbound{Port: 443, Listen: "h"}, client: xui.ClientEntry{ID: "x"}},
		{name: "no client id", inbound: &xui.Inbound{Port: 443, Protocol: "vless", Listen: "h"}, client: xui.ClientEntry{}},
		{name: "unknown protocol", inbound: &xui.Inbound{Port: 443, Protocol: "shadowsocks", Listen: "h"}, client: xui.ClientEntry{ID: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if link := Build("", tt.inbound, tt.client); link != "" {
				t.Errorf("expected empty link, got %s", link)
			}
		})
	}
}

func TestBuildToleratesMalformedStreamSettings(t *testing.T) {
	inbound := &xui.Inbound{
		Remark:         "Plain",
		Listen:         "1.2.3.4",
		Port:           80,
		Protocol:       "vless",
		StreamSettings: `{not json`,
	}

	link := Build("", inbound, xui.ClientEntry{ID: "uuid-5"})

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if got := u.Query().Get("type"); got != "tcp" {
		t.Errorf("type = %q, want tcp default", got)
	}
	if u.Query().Get("security") != "" {
		t.Errorf("expected no security param for default none")
	}
}
