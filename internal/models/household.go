package models

import (
	"slices"
	"time"
)

// Household represents a group of members sharing expenses.
type Household struct {
	// ID is the unique identifier for the household (UUID format).
	ID string

	// Name is the human-readable household name (e.g., "Flat 3B").
	Name string

	// Code is the 6-character uppercase alphanumeric join code.
	Code string

	// AdminID is the member who administers the household.
	// Always an element of Members while the household exists.
	AdminID string

	// Members is the ordered list of member user IDs, in join order.
	Members []string

	// CreatedAt is when the household was created.
	CreatedAt time.Time

	// Version is bumped by the store on every write.
	Version int64
}

// HasMember reports whether userID is listed in the household.
func (h *Household) HasMember(userID string) bool {
	return slices.Contains(h.Members, userID)
}

// WithoutMember returns a copy of the member list with userID removed,
// preserving the order of the remaining members.
func (h *Household) WithoutMember(userID string) []string {
	remaining := make([]string, 0, len(h.Members))
	for _, id := range h.Members {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	return remaining
}

// Clone returns a deep copy safe to mutate.
func (h *Household) Clone() *Household {
	c := *h
	c.Members = slices.Clone(h.Members)
	return &c
}
