// Package models defines the core domain models for Housemates.
//
// # Documents
//
// Three documents are persisted:
//   - User: a registered member; belongs to at most one household at a time
//   - Household: a named group with a join code, an admin and an ordered member list
//   - Transaction: an expense entry or a system note recording a membership event
//
// Settlement and SettlementResult are derived values and are never stored.
//
// # Relationships
//
// Relationships are ID strings, never pointers. A Household references its members
// by user ID; a User references its household by ID. Transactions carry a
// denormalized snapshot of the author's display name that is not re-resolved.
//
// # Concurrency
//
// User and Household carry a Version that the store bumps on every write.
// Writers pass the version they read; a mismatch means someone else wrote first.
package models
