package models

import "time"

// TransactionType distinguishes expense entries from system notes.
type TransactionType string

const (
	// TypeExpense is a normal expense logged by a member.
	TypeExpense TransactionType = "expense"
	// TypeSystem is an informational record of a membership event.
	// System entries always have a zero amount and no author.
	TypeSystem TransactionType = "system"
)

// SystemUserName is the author name recorded on system notes.
const SystemUserName = "System"

// Transaction is an expense or system entry in a household's ledger.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// UserID is the author. Empty for system entries.
	UserID string

	// UserName is a snapshot of the author's display name at creation time.
	UserName string

	// HouseholdID is the household this entry belongs to.
	HouseholdID string

	// Amount is the non-negative amount spent, with two-decimal currency semantics.
	Amount float64

	// Note is an optional free-form description.
	Note string

	// ReceiptURL is an optional reference to an uploaded receipt image.
	ReceiptURL string

	// Timestamp is when the entry was created.
	Timestamp time.Time

	// Month is the YYYY-MM bucket derived from Timestamp at creation time.
	// Stored so later clock or timezone changes cannot reclassify history.
	Month string

	// Type is TypeExpense or TypeSystem.
	Type TransactionType
}

// IsSystem reports whether the entry is a system note.
func (t *Transaction) IsSystem() bool {
	return t.Type == TypeSystem
}

// MonthKey returns the YYYY-MM bucket for an instant, in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// NewSystemNote builds a system entry recording a membership event.
func NewSystemNote(householdID, message string, at time.Time) *Transaction {
	return &Transaction{
		UserName:    SystemUserName,
		HouseholdID: householdID,
		Amount:      0,
		Note:        message,
		Timestamp:   at.UTC(),
		Month:       MonthKey(at),
		Type:        TypeSystem,
	}
}
