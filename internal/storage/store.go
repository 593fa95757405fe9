// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/housemates/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by Apply when a guarded document changed since it was read.
	ErrConflict = errors.New("document version conflict")
	// ErrCodeTaken is returned by Apply when a new household's join code is already in use.
	ErrCodeTaken = errors.New("household code already in use")
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// HouseholdOp selects what a Mutation does to its household document.
type HouseholdOp int

const (
	// HouseholdUnchanged leaves the household document alone.
	HouseholdUnchanged HouseholdOp = iota
	// HouseholdCreate inserts Mutation.Household.
	HouseholdCreate
	// HouseholdUpdate overwrites name, admin and members if the stored
	// version equals Mutation.Household.Version.
	HouseholdUpdate
	// HouseholdDelete deletes the household and all of its transactions if the
	// stored version equals Mutation.Household.Version.
	HouseholdDelete
)

// Mutation is a set of document writes applied all-or-nothing.
//
// Every user in Users is written only if its stored version still equals
// User.Version; the household likewise for update and delete. Any mismatch
// aborts the whole mutation with ErrConflict. On success the store bumps the
// Version fields of the passed documents and assigns IDs to new notes.
type Mutation struct {
	Op        HouseholdOp
	Household *models.Household

	// Users are written with their household association fields
	// (HouseholdID, IsAdmin, IsActive).
	Users []*models.User

	// Notes are system transactions appended in the same write.
	Notes []*models.Transaction
}

// UserStore defines user document operations.
type UserStore interface {
	// CreateUser persists a new user. Returns ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by exact (normalized) email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID.
	// Users that don't exist are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// HouseholdStore defines household document operations.
type HouseholdStore interface {
	// GetHousehold retrieves a household by ID. Returns ErrNotFound if absent.
	GetHousehold(ctx context.Context, id string) (*models.Household, error)

	// GetHouseholdByCode retrieves a household by exact join code. Returns ErrNotFound if absent.
	GetHouseholdByCode(ctx context.Context, code string) (*models.Household, error)

	// Apply commits a Mutation atomically.
	Apply(ctx context.Context, m *Mutation) error
}

// TransactionStore defines ledger entry operations.
type TransactionStore interface {
	// CreateTransaction persists a new entry; ID is assigned if empty.
	// Returns ErrNotFound if the household no longer exists.
	CreateTransaction(ctx context.Context, txn *models.Transaction) error

	// GetTransaction retrieves an entry. Returns ErrNotFound if absent.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)

	// ListTransactions returns a household's entries, newest first.
	// When month is non-empty only entries stored under that month are returned.
	ListTransactions(ctx context.Context, householdID, month string) ([]*models.Transaction, error)

	// UpdateTransaction overwrites the amount and note of an existing entry.
	UpdateTransaction(ctx context.Context, txn *models.Transaction) error

	// DeleteTransaction removes an entry. Returns ErrNotFound if absent.
	DeleteTransaction(ctx context.Context, id string) error
}

// Store is the complete document store.
// This abstraction allows swapping storage backends without changing the
// membership, ledger or service layers.
type Store interface {
	UserStore
	HouseholdStore
	TransactionStore

	// Close releases any resources held by the store.
	Close() error
}
