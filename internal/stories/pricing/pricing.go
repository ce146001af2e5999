// Package pricing computes per-GB prices for plans that do not carry a
// fixed price tag.
package pricing

import (
	"fmt"
	"strings"
)

const MaxVolumeGB = 1000

// Model holds the per-GB rates. ExtraMonthPercent, when non-nil, wins
// over ExtraMonthAbsolute; with neither set, extra months cost the
// same as the first one.
type Model struct {
	PricePerGB         float64
	ExtraMonthPercent  *float64
	ExtraMonthAbsolute *float64
	AdditionalUser     float64
	MinMonths          int
	MaxMonths          int
}

// Breakdown itemizes what the total is made of. Zero components are
// omitted from formatting.
type Breakdown struct {
	BaseVolume  float64
	ExtraMonths float64
	ExtraUsers  float64
	Total       float64
}

// Calculate prices a volume/duration/user-count selection.
func (m Model) Calculate(volumeGB, durationMonths, numUsers int) Breakdown {
	b := Breakdown{
		BaseVolume: float64(volumeGB) * m.PricePerGB,
	}

	if extraMonths := durationMonths - 1; extraMonths > 0 {
		switch {
		case m.ExtraMonthPercent != nil:
			b.ExtraMonths = b.BaseVolume * (*m.ExtraMonthPercent / 100) * float64(extraMonths)
		case m.ExtraMonthAbsolute != nil:
			b.ExtraMonths = *m.ExtraMonthAbsolute * float64(extraMonths)
		default:
			b.ExtraMonths = b.BaseVolume * float64(extraMonths)
		}
	}

	if extraUsers := numUsers - 1; extraUsers > 0 {
		b.ExtraUsers = m.AdditionalUser * float64(extraUsers)
	}

	b.Total = b.BaseVolume + b.ExtraMonths + b.ExtraUsers
	return b
}

// Validate checks a selection against the model's bounds and returns a
// user-presentable reason when it fails.
func (m Model) Validate(volumeGB, durationMonths int) error {
	minMonths := m.MinMonths
	if minMonths <= 0 {
		minMonths = 1
	}
	maxMonths := m.MaxMonths
	if maxMonths <= 0 {
		maxMonths = 6
	}

	if durationMonths < minMonths {
		return fmt.Errorf("minimum duration is %d month(s)", minMonths)
	}
	if durationMonths > maxMonths {
		return fmt.Errorf("maximum duration is %d month(s)", maxMonths)
	}
	if volumeGB <= 0 {
		return fmt.Errorf("volume must be greater than 0")
	}
	if volumeGB > MaxVolumeGB {
		return fmt.Errorf("volume too large (max %d GB)", MaxVolumeGB)
	}
	return nil
}

// Format renders the breakdown for chat display.
func (b Breakdown) Format() string {
	var lines []string
	if b.BaseVolume > 0 {
		lines = append(lines, fmt.Sprintf("Base volume: $%.2f", b.BaseVolume))
	}
	if b.ExtraMonths > 0 {
		lines = append(lines, fmt.Sprintf("Extra months: $%.2f", b.ExtraMonths))
	}
	if b.ExtraUsers > 0 {
		lines = append(lines, fmt.Sprintf("Extra users: $%.2f", b.ExtraUsers))
	}
	lines = append(lines, fmt.Sprintf("Total: $%.2f", b.Total))
	return strings.Join(lines, "\n")
}
