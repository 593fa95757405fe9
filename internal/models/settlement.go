package models

// Settlement is one participant's position for a period. Derived, never stored.
type Settlement struct {
	// UserID is the participant's member ID. Empty for legacy entries
	// that were recorded without an author ID.
	UserID string

	// Name is the participant's display name.
	Name string

	// Spent is the total the participant spent in the period.
	Spent float64

	// FairShare is the period total divided by the participant count.
	FairShare float64

	// Difference is Spent - FairShare.
	Difference float64

	// ShouldPay is positive when Spent < FairShare.
	ShouldPay float64

	// ShouldReceive is positive when Spent > FairShare.
	ShouldReceive float64
}

// Transfer is a suggested payment from one participant to another.
type Transfer struct {
	FromUserID string
	FromName   string
	ToUserID   string
	ToName     string
	Amount     float64
}

// SettlementResult is the settlement computed for one month.
type SettlementResult struct {
	Month            string
	TotalExpense     float64
	ParticipantCount int
	FairShare        float64
	Settlements      []Settlement
	Transfers        []Transfer
}

// MemberSpend is one participant's spend in a period.
type MemberSpend struct {
	UserID string
	Name   string
	Amount float64
}

// Stats summarizes a household's recent spending.
type Stats struct {
	Month            string
	WeekTotal        float64
	MonthTotal       float64
	UserMonthTotal   float64
	TransactionCount int
	Breakdown        []MemberSpend
}
