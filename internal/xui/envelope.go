package xui

import (
	"bytes"
	"encoding/json"
)

// payloadKeys is the ordered preference list for unwrapping response
// payloads. Different panel builds nest useful data under different
// keys; the first non-null match wins.
var payloadKeys = []string{"data", "obj", "result"}

// envelope is the common response wrapper of the 3x-ui JSON API.
// Success is reported under either "status" or "success", as a boolean
// or as the literal string "success", depending on the panel build.
type envelope struct {
	fields map[string]json.RawMessage
	raw    []byte
}

func decodeEnvelope(body []byte) (*envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	return &envelope{fields: fields, raw: body}, nil
}

// OK reports whether the envelope indicates success.
func (e *envelope) OK() bool {
	return truthy(e.fields["status"]) || truthy(e.fields["success"])
}

// Payload returns the wrapped payload using the fixed key preference
// list, or nil when no key carries a non-null value.
func (e *envelope) Payload() json.RawMessage {
	for _, key := range payloadKeys {
		if raw, ok := e.fields[key]; ok && !isNull(raw) {
			return raw
		}
	}
	return nil
}

// Msg returns the human-readable message some panel builds attach.
func (e *envelope) Msg() string {
	var msg string
	if raw, ok := e.fields["msg"]; ok {
		_ = json.Unmarshal(raw, &msg)
	}
	return msg
}

// hasToken reports whether the response body carries a token-like
// value. Some panels return success with a token in the body instead
// of setting a session cookie.
func (e *envelope) hasToken() bool {
	raw, ok := e.fields["obj"]
	return ok && !isNull(raw)
}

func truthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("true")) {
		return true
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s == "success" || s == "true"
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// preview truncates a response body for inclusion in error messages.
func preview(body []byte) string {
	const limit = 200
	if len(body) == 0 {
		return "empty"
	}
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
