package states

// State names a step of a multi-message conversation.
type State string

const (
	StateNone State = ""

	// Buyer is expected to send a receipt photo for an open order.
	BuyWaitReceipt State = "buy_wait_receipt"

	// Admin single-message input states.
	AdminWaitServerDetails State = "adm_wait_server_details"
	AdminWaitPlanDetails   State = "adm_wait_plan_details"
	AdminWaitBankCard      State = "adm_wait_bank_card"
	AdminWaitRoleAssign    State = "adm_wait_role_assign"
)

// BuyFlowData tracks which order a receipt photo belongs to.
type BuyFlowData struct {
	OrderID int64
}
