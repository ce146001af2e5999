package xui

import "encoding/json"

// ClientEntry is a single provisioned user inside an inbound. Field
// names follow the panel JSON exactly; the panel rejects unknown
// spellings.
type ClientEntry struct {
	ID         string `json:"id"`
	Flow       string `json:"flow"`
	Email      string `json:"email"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	TgID       string `json:"tgId"`
	SubID      string `json:"subId"`
	Reset      int    `json:"reset"`
}

// ClientTraffic is the usage record the panel keeps per client.
type ClientTraffic struct {
	ID         int    `json:"id"`
	InboundID  int    `json:"inboundId"`
	Enable     bool   `json:"enable"`
	Email      string `json:"email"`
	Up         int64  `json:"up"`
	Down       int64  `json:"down"`
	ExpiryTime int64  `json:"expiryTime"`
	Total      int64  `json:"total"`
	Reset      int    `json:"reset"`
}

// Inbound is a configured entry point on the panel. Settings and
// StreamSettings arrive as JSON-encoded strings, another quirk of the
// panel schema.
type Inbound struct {
	ID             int             `json:"id"`
	Up             int64           `json:"up"`
	Down           int64           `json:"down"`
	Total          int64           `json:"total"`
	Remark         string          `json:"remark"`
	Enable         bool            `json:"enable"`
	ExpiryTime     int64           `json:"expiryTime"`
	Listen         string          `json:"listen"`
	Port           int             `json:"port"`
	Protocol       string          `json:"protocol"`
	Settings       string          `json:"settings"`
	StreamSettings string          `json:"streamSettings"`
	ClientStats    []ClientTraffic `json:"clientStats"`
}

// Clients parses the inbound settings string and returns the client
// entries it carries. A missing or malformed settings blob yields an
// empty slice.
func (i *Inbound) Clients() []ClientEntry {
	if i == nil || i.Settings == "" {
		return nil
	}
	var settings struct {
		Clients []ClientEntry `json:"clients"`
	}
	if err := json.Unmarshal([]byte(i.Settings), &settings); err != nil {
		return nil
	}
	return settings.Clients
}

// FindClient locates a client entry by id or, failing that, by email.
func (i *Inbound) FindClient(clientID, email string) (ClientEntry, bool) {
	for _, c := range i.Clients() {
		if clientID != "" && c.ID == clientID {
			return c, true
		}
		if email != "" && c.Email == email {
			return c, true
		}
	}
	return ClientEntry{}, false
}

// ClientSpec describes the client entry to provision. Zero values are
// filled with panel-compatible defaults by CreateClient.
type ClientSpec struct {
	ID         string
	Email      string
	Flow       string
	LimitIP    int
	TotalBytes int64
	// ExpiryTime accepts seconds or milliseconds since epoch; values
	// below the millisecond threshold are converted.
	ExpiryTime int64
	TgID       string
	SubID      string
	Reset      int
}

// CreateClientResult carries the panel acknowledgement together with
// the locally constructed entry, so callers do not need to re-fetch
// the inbound to know what was provisioned.
type CreateClientResult struct {
	Client ClientEntry
	Msg    string
}
