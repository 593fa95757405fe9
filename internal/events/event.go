// Package events notifies observers of household state changes.
//
// Publishers are best effort: a failed publish is logged by the caller and
// never undoes the change it describes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind names a state change. It doubles as the AMQP routing key.
type Kind string

const (
	HouseholdCreated    Kind = "household.created"
	HouseholdDeleted    Kind = "household.deleted"
	MemberJoined        Kind = "member.joined"
	MemberRejoined      Kind = "member.rejoined"
	MemberLeft          Kind = "member.left"
	MemberRemoved       Kind = "member.removed"
	MemberStatusChanged Kind = "member.status_changed"
	TransactionCreated  Kind = "transaction.created"
	TransactionUpdated  Kind = "transaction.updated"
	TransactionDeleted  Kind = "transaction.deleted"

	// Snapshot is sent to a new watcher before any live event.
	Snapshot Kind = "snapshot"
)

// Event describes one change to a household.
type Event struct {
	Kind          Kind      `json:"kind"`
	HouseholdID   string    `json:"householdId"`
	ActorID       string    `json:"actorId,omitempty"`
	SubjectID     string    `json:"subjectId,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ToJSON encodes the event for the wire.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher is notified after a state change commits.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
