package users

import "time"

// Roles mirror what the bot enforces: admins manage servers and plans,
// accountants review receipts, everyone else buys.
const (
	RoleAdmin      = "ADMIN"
	RoleAccountant = "ACCOUNTANT"
	RoleUser       = "USER"
)

type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	Role       string
	CreatedAt  time.Time
}

type GetCriteria struct {
	ID         *int64
	TelegramID *int64
	Username   *string
}

type ListCriteria struct {
	Role   *string
	Limit  int
	Offset int
}

type UpdateParams struct {
	Username  *string
	FirstName *string
	Role      *string
}
