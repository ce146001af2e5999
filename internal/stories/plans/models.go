package plans

import "time"

// Plan is a purchasable package tied to a specific server inbound.
type Plan struct {
	ID           int64
	ServerID     int64
	Name         string
	Country      string
	InboundID    int
	VolumeGB     int
	DurationDays int
	// MultiUser is the concurrent connection limit sold with the plan.
	MultiUser int
	Price     float64
	CreatedAt time.Time
}

type GetCriteria struct {
	ID *int64
}

type ListCriteria struct {
	ServerID *int64
	Limit    int
	Offset   int
}
