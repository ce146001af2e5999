package orders

import "time"

type Status string

// An order starts in WaitingReceipt and walks forward only:
// WaitingReceipt -> PendingReview -> Active | Rejected, Active -> Expired.
// Rejected and Expired are terminal.
const (
	StatusWaitingReceipt Status = "WAITING_RECEIPT"
	StatusPendingReview  Status = "PENDING_REVIEW"
	StatusActive         Status = "ACTIVE"
	StatusRejected       Status = "REJECTED"
	StatusExpired        Status = "EXPIRED"
)

// Order is a purchase record. ConfigID and ExpiresAt are set together
// by approval and never one without the other, except transiently
// inside the approval transition itself.
type Order struct {
	ID       int64
	UserID   int64
	PlanID   int64
	ServerID int64
	Status   Status
	// ReceiptFileID points at the proof-of-payment photo in Telegram
	// file storage.
	ReceiptFileID *string
	// ConfigID is the client identifier the panel assigned during
	// provisioning.
	ConfigID   *string
	ConfigLink *string
	CreatedAt  time.Time
	ApprovedAt *time.Time
	ExpiresAt  *time.Time
}

type GetCriteria struct {
	ID *int64
}

type ListCriteria struct {
	UserID        *int64
	Statuses      []Status
	ExpiresBefore *time.Time
	Limit         int
	Offset        int
}

type UpdateParams struct {
	Status        *Status
	ReceiptFileID *string
	ConfigID      *string
	// ClearConfigID drops the provisioned client id; set on expiry so
	// listings stop treating the order as provisioned.
	ClearConfigID bool
	ConfigLink    *string
	ApprovedAt    *time.Time
	ExpiresAt     *time.Time
}
