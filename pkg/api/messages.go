// Package api defines the request and response messages of the Housemates
// RPC services. Messages are plain structs encoded as JSON on the wire.
//
// Timestamps are RFC 3339 strings in UTC. Amounts sent by clients are
// decimal strings; amounts returned by the server are numbers.
package api

// User is a registered member as seen by clients.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	HouseholdID string `json:"householdId,omitempty"`
	IsAdmin     bool   `json:"isAdmin,omitempty"`
	IsActive    bool   `json:"isActive,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Household is a group of members sharing expenses.
type Household struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Admin     string   `json:"admin"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"createdAt"`
}

// Transaction is an expense or system note.
type Transaction struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId,omitempty"`
	UserName    string  `json:"userName"`
	HouseholdID string  `json:"householdId"`
	Amount      float64 `json:"amount"`
	Note        string  `json:"note,omitempty"`
	ReceiptURL  string  `json:"receiptUrl,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Month       string  `json:"month"`
	Type        string  `json:"type"`
}

// Settlement is one participant's position for a month.
type Settlement struct {
	UserID        string  `json:"userId,omitempty"`
	Name          string  `json:"name"`
	Spent         float64 `json:"spent"`
	FairShare     float64 `json:"fairShare"`
	Difference    float64 `json:"difference"`
	ShouldPay     float64 `json:"shouldPay"`
	ShouldReceive float64 `json:"shouldReceive"`
}

// Transfer is a suggested payment between two participants.
type Transfer struct {
	FromUserID string  `json:"fromUserId,omitempty"`
	FromName   string  `json:"fromName"`
	ToUserID   string  `json:"toUserId,omitempty"`
	ToName     string  `json:"toName"`
	Amount     float64 `json:"amount"`
}

// MemberSpend is one participant's spend in a month.
type MemberSpend struct {
	UserID string  `json:"userId,omitempty"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Event is a change notification delivered by WatchHousehold.
type Event struct {
	Kind          string `json:"kind"`
	HouseholdID   string `json:"householdId"`
	ActorID       string `json:"actorId,omitempty"`
	SubjectID     string `json:"subjectId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
	OccurredAt    string `json:"occurredAt"`
}

// AuthService

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// HouseholdService

type CreateHouseholdRequest struct {
	Name string `json:"name"`
}

type CreateHouseholdResponse struct {
	Household *Household `json:"household"`
}

type JoinHouseholdRequest struct {
	Code string `json:"code"`
}

type JoinHouseholdResponse struct {
	Household *Household `json:"household"`
}

type InviteMemberRequest struct {
	Email string `json:"email"`
}

type InviteMemberResponse struct {
	Member *User `json:"member"`
}

type LeaveHouseholdRequest struct{}

type LeaveHouseholdResponse struct{}

type RemoveMemberRequest struct {
	UserID string `json:"userId"`
}

type RemoveMemberResponse struct{}

type DeleteHouseholdRequest struct{}

type DeleteHouseholdResponse struct{}

type ToggleMemberActiveRequest struct {
	UserID string `json:"userId"`
}

type ToggleMemberActiveResponse struct {
	Member *User `json:"member"`
}

type GetHouseholdRequest struct{}

type GetHouseholdResponse struct {
	Household *Household `json:"household"`
	Members   []*User    `json:"members"`
}

type WatchHouseholdRequest struct{}

// WatchHouseholdResponse carries one event. The first response of a stream
// is a snapshot event that also carries the household and its members.
type WatchHouseholdResponse struct {
	Event     *Event     `json:"event"`
	Household *Household `json:"household,omitempty"`
	Members   []*User    `json:"members,omitempty"`
}

// LedgerService

// ReceiptUpload carries a receipt image inline; Data is base64 in JSON.
type ReceiptUpload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type AddTransactionRequest struct {
	Amount  string         `json:"amount"`
	Note    string         `json:"note,omitempty"`
	Receipt *ReceiptUpload `json:"receipt,omitempty"`
}

type AddTransactionResponse struct {
	Transaction    *Transaction `json:"transaction"`
	ReceiptWarning string       `json:"receiptWarning,omitempty"`
}

type ListTransactionsRequest struct {
	Month string `json:"month,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type UpdateTransactionRequest struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

type UpdateTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type DeleteTransactionRequest struct {
	ID string `json:"id"`
}

type DeleteTransactionResponse struct{}

type GetStandingsRequest struct {
	Month string `json:"month,omitempty"`
}

type GetStandingsResponse struct {
	Month            string        `json:"month"`
	TotalExpense     float64       `json:"totalExpense"`
	ParticipantCount int           `json:"participantCount"`
	FairShare        float64       `json:"fairShare"`
	Settlements      []*Settlement `json:"settlements"`
	Transfers        []*Transfer   `json:"transfers"`
}

type GetStatsRequest struct {
	Month string `json:"month,omitempty"`
}

type GetStatsResponse struct {
	Month            string         `json:"month"`
	WeekTotal        float64        `json:"weekTotal"`
	MonthTotal       float64        `json:"monthTotal"`
	UserMonthTotal   float64        `json:"userMonthTotal"`
	TransactionCount int            `json:"transactionCount"`
	Breakdown        []*MemberSpend `json:"breakdown"`
}
