// Package security validates and sanitizes everything that arrives
// from chat input before it reaches storage or the panel.
package security

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxStringLength = 500
	MaxNumericValue = 1_000_000
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)
	urlPattern      = regexp.MustCompile(`(?i)^https?://[^\s/$.?#].[^\s]*$`)
)

// Sanitize trims the string to the limit, drops null bytes and strips
// surrounding whitespace.
func Sanitize(value string) string {
	return SanitizeN(value, MaxStringLength)
}

func SanitizeN(value string, maxLength int) string {
	if len(value) > maxLength {
		value = value[:maxLength]
	}
	value = strings.ReplaceAll(value, "\x00", "")
	return strings.TrimSpace(value)
}

// ParseInt parses a bounded integer from user input.
func ParseInt(value string, min, max int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

// ParseFloat parses a bounded float from user input.
func ParseFloat(value string, min, max float64) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < min || f > max {
		return 0, false
	}
	return f, true
}

// ValidUsername reports whether the value is a well-formed Telegram
// username, with or without the leading @.
func ValidUsername(username string) bool {
	username = strings.TrimPrefix(username, "@")
	return usernamePattern.MatchString(username)
}

// ValidURL reports whether the value looks like an http(s) URL.
func ValidURL(url string) bool {
	return urlPattern.MatchString(url)
}
