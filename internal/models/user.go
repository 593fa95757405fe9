package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered member account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address, stored lower-cased (unique).
	Email string

	// Name is the display name shown to other household members.
	Name string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// HouseholdID is the household the user currently belongs to.
	// Empty when the user has no household association.
	HouseholdID string

	// IsAdmin is true when the user administers their household.
	IsAdmin bool

	// IsActive is false when an admin has deactivated the member.
	IsActive bool

	// CreatedAt is when the account was registered.
	CreatedAt time.Time

	// Version is bumped by the store on every write.
	Version int64
}

// NewUser creates an unaffiliated, active user with a fresh ID.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

// InHousehold reports whether the user currently has a household association.
func (u *User) InHousehold() bool {
	return u.HouseholdID != ""
}

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
