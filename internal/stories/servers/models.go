package servers

import "time"

// Server is one 3x-ui panel deployment orders are provisioned on.
type Server struct {
	ID        int64
	Title     string
	BaseURL   string
	Username  string
	Password  string
	CreatedAt time.Time
}

type GetCriteria struct {
	ID *int64
}

type ListCriteria struct {
	Limit  int
	Offset int
}
