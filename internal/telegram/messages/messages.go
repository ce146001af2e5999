package messages

// Common
const (
	Error        = "Something went wrong. Please try again later."
	AccessDenied = "You do not have permission for this action."
	RateLimited  = "Too many requests. Please slow down."
	Cancelled    = "Cancelled."
)

// Purchase flow
const (
	NoPlans          = "No plans available right now."
	ChoosePlan       = "Choose a plan:"
	PlanNotFound     = "Plan not found."
	SendReceiptPhoto = "Please send the receipt as a photo."
	ReceiptReceived  = "Receipt received. Please wait for review."
	NoOrders         = "You have no orders yet."
)

// Review flow
const (
	NoPendingReceipts      = "No pending receipts."
	OrderNotFound          = "Order not found."
	OrderNotAwaitingReview = "Order is not waiting for approval."
)

// Admin flows
const (
	SendServerDetails  = "Send server as 'Title,URL,Username,Password'."
	InvalidServer      = "Invalid format. Please send Title,URL,Username,Password"
	ServerUnreachable  = "Could not log in to the panel with these credentials."
	ServerSaved        = "Server saved."
	SendPlanDetails    = "Send plan as 'ServerID,Name,Country,InboundID,VolumeGB,DurationDays,MultiUser,Price'."
	InvalidPlan        = "Invalid format. Please send 8 comma separated values."
	PlanNumericFields  = "Numeric fields must be numbers."
	PlanSaved          = "Plan saved."
	SendBankCard       = "Send the bank card number to store."
	BankCardEmpty      = "Card number cannot be empty."
	BankCardSaved      = "Bank card saved."
	SendRoleAssignment = "Send assignment as '@username ROLE'. ROLE can be ADMIN or ACCOUNTANT."
	InvalidRole        = "Role must be ADMIN or ACCOUNTANT."
	InvalidAssignment  = "Invalid format. Use '@username ROLE'."
	UserNotFound       = "User not found. Ask them to /start the bot first."
)

// Buttons
const (
	ButtonApprove = "Approve"
	ButtonReject  = "Reject"
	ButtonBuy     = "Buy"
)
