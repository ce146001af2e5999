// Package sharelink builds shareable connection strings (vless://,
// vmess://, trojan://) from an inbound definition and a provisioned
// client entry. Link construction is best-effort: anything missing or
// malformed yields an empty string, never an error, because a working
// subscription without a pretty link is still a working subscription.
package sharelink

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"tondar-bot/internal/xui"
)

type tlsSettings struct {
	ServerName  string   `json:"serverName"`
	ALPN        []string `json:"alpn"`
	Fingerprint string   `json:"fingerprint"`
	PublicKey   string   `json:"publicKey"`
	ShortIDs    []string `json:"shortIds"`
}

type streamSettings struct {
	Network  string       `json:"network"`
	Security string       `json:"security"`
	TLS      *tlsSettings `json:"tlsSettings"`
	Reality  *tlsSettings `json:"realitySettings"`
	XTLS     *tlsSettings `json:"xtlsSettings"`
	WS       *struct {
		Path    string            `json:"path"`
		Headers map[string]string `json:"headers"`
	} `json:"wsSettings"`
	GRPC *struct {
		ServiceName string `json:"serviceName"`
		Mode        string `json:"mode"`
	} `json:"grpcSettings"`
	TCP *struct {
		Header struct {
			Type string `json:"type"`
		} `json:"header"`
	} `json:"tcpSettings"`
	HTTP *struct {
		Path stringOrList `json:"path"`
		Host stringOrList `json:"host"`
	} `json:"httpSettings"`
}

// stringOrList absorbs fields the panel serializes either as a string
// or as a list of strings, depending on the build.
type stringOrList string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = stringOrList(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = stringOrList(strings.Join(list, ","))
		return nil
	}
	// Unknown shape: drop it rather than failing the whole link.
	*s = ""
	return nil
}

// Build crafts a connection string for the client entry, or returns an
// empty string when the inbound lacks the required pieces.
func Build(baseURL string, inbound *xui.Inbound, client xui.ClientEntry) string {
	if inbound == nil {
		return ""
	}

	host := hostFrom(baseURL)
	if host == "" {
		host = inbound.Listen
	}
	if host == "" || inbound.Port == 0 || inbound.Protocol == "" {
		return ""
	}

	remark := inbound.Remark
	if remark == "" {
		remark = client.Email
	}
	if remark == "" {
		remark = "VPN"
	}

	var stream streamSettings
	if inbound.StreamSettings != "" {
		_ = json.Unmarshal([]byte(inbound.StreamSettings), &stream)
	}
	if stream.Network == "" {
		stream.Network = "tcp"
	}
	if stream.Security == "" {
		stream.Security = "none"
	}

	switch inbound.Protocol {
	case "vless":
		return vlessLink(host, inbound.Port, remark, client, stream)
	case "vmess":
		return vmessLink(host, inbound.Port, remark, client, stream)
	case "trojan":
		return trojanLink(host, inbound.Port, remark, client, stream)
	}
	return ""
}

func vlessLink(host string, port int, remark string, client xui.ClientEntry, stream streamSettings) string {
	if client.ID == "" {
		return ""
	}
	params := url.Values{}
	params.Set("type", stream.Network)
	params.Set("encryption", "none")
	addTLSParams(params, stream)
	addNetworkParams(params, stream)
	return "vless://" + client.ID + "@" + host + ":" + strconv.Itoa(port) +
		"?" + params.Encode() + "#" + url.QueryEscape(remark)
}

func trojanLink(host string, port int, remark string, client xui.ClientEntry, stream streamSettings) string {
	// Trojan authenticates with a password; the panel stores it in the
	// entry id when created through addClient.
	if client.ID == "" {
		return ""
	}
	params := url.Values{}
	params.Set("type", stream.Network)
	addTLSParams(params, stream)
	addNetworkParams(params, stream)
	query := params.Encode()
	if query != "" {
		query = "?" + query
	}
	return "trojan://" + client.ID + "@" + host + ":" + strconv.Itoa(port) +
		query + "#" + url.QueryEscape(remark)
}

// vmessEnvelope is the de facto "v2" vmess link layout.
type vmessEnvelope struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port string `json:"port"`
	ID   string `json:"id"`
	Aid  string `json:"aid"`
	Scy  string `json:"scy"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
	SNI  string `json:"sni"`
	ALPN string `json:"alpn"`
}

func vmessLink(host string, port int, remark string, client xui.ClientEntry, stream streamSettings) string {
	if client.ID == "" {
		return ""
	}

	tlsParams := url.Values{}
	addTLSParams(tlsParams, stream)
	netParams := url.Values{}
	addNetworkParams(netParams, stream)

	headerType := netParams.Get("headerType")
	if headerType == "" {
		headerType = "none"
	}
	vmessHost := netParams.Get("host")
	if vmessHost == "" {
		vmessHost = tlsParams.Get("sni")
	}

	tlsFlag := ""
	if stream.Security != "" && stream.Security != "none" {
		tlsFlag = "tls"
	}

	env := vmessEnvelope{
		V:    "2",
		PS:   remark,
		Add:  host,
		Port: strconv.Itoa(port),
		ID:   client.ID,
		Aid:  "0",
		Scy:  "auto",
		Net:  stream.Network,
		Type: headerType,
		Host: vmessHost,
		Path: netParams.Get("path"),
		TLS:  tlsFlag,
		SNI:  tlsParams.Get("sni"),
		ALPN: tlsParams.Get("alpn"),
	}

	encoded, err := json.Marshal(env)
	if err != nil {
		return ""
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(encoded)
}

func addTLSParams(params url.Values, stream streamSettings) {
	if stream.Security == "" || stream.Security == "none" {
		return
	}
	params.Set("security", stream.Security)

	var settings *tlsSettings
	switch stream.Security {
	case "tls":
		settings = stream.TLS
	case "reality":
		settings = stream.Reality
	case "xtls":
		settings = stream.XTLS
	}
	if settings == nil {
		return
	}
	if settings.ServerName != "" {
		params.Set("sni", settings.ServerName)
	}
	if len(settings.ALPN) > 0 {
		params.Set("alpn", strings.Join(settings.ALPN, ","))
	}
	if settings.Fingerprint != "" {
		params.Set("fp", settings.Fingerprint)
	}
	if settings.PublicKey != "" {
		params.Set("pbk", settings.PublicKey)
	}
	if len(settings.ShortIDs) > 0 {
		params.Set("sid", settings.ShortIDs[0])
	}
}

func addNetworkParams(params url.Values, stream streamSettings) {
	switch stream.Network {
	case "ws":
		if stream.WS == nil {
			return
		}
		if stream.WS.Path != "" {
			params.Set("path", stream.WS.Path)
		}
		if host := stream.WS.Headers["Host"]; host != "" {
			params.Set("host", host)
		}
	case "grpc":
		if stream.GRPC == nil {
			return
		}
		if stream.GRPC.ServiceName != "" {
			params.Set("serviceName", stream.GRPC.ServiceName)
		}
		if stream.GRPC.Mode != "" {
			params.Set("mode", stream.GRPC.Mode)
		}
	case "tcp":
		if stream.TCP == nil {
			return
		}
		if t := stream.TCP.Header.Type; t != "" && t != "none" {
			params.Set("headerType", t)
		}
	case "http":
		if stream.HTTP == nil {
			return
		}
		if stream.HTTP.Path != "" {
			params.Set("path", string(stream.HTTP.Path))
		}
		if stream.HTTP.Host != "" {
			params.Set("host", string(stream.HTTP.Host))
		}
	}
}

func hostFrom(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
