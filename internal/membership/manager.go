// Package membership implements the household membership state machine:
// create, join, invite, leave, remove, delete and member activation.
//
// Every transition reads the current documents, computes the next state and
// commits it as one storage.Mutation guarded by document versions. When
// another writer got there first the whole transition is re-run from a fresh
// read, up to a bounded number of attempts.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/housemates/internal/apperr"
	"github.com/mmynk/housemates/internal/events"
	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/internal/storage"
)

// DefaultMaxAttempts bounds how often a transition is retried on a version conflict.
const DefaultMaxAttempts = 5

// ErrContention is wrapped in the conflict returned when every attempt of a
// transition lost a race with another writer.
var ErrContention = errors.New("household is being modified concurrently")

// Store is the document access the manager needs.
type Store interface {
	storage.UserStore
	storage.HouseholdStore
}

// Manager executes membership transitions.
type Manager struct {
	store       Store
	publisher   events.Publisher
	maxAttempts int
	now         func() time.Time
	generate    func() (string, error)
	retries     prometheus.Counter
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxAttempts sets how many times a transition is attempted before
// giving up on version conflicts.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithClock overrides the time source used for system notes and events.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCodeGenerator overrides join code generation.
func WithCodeGenerator(generate func() (string, error)) Option {
	return func(m *Manager) { m.generate = generate }
}

// WithRetryCounter counts retried attempts.
func WithRetryCounter(c prometheus.Counter) Option {
	return func(m *Manager) { m.retries = c }
}

// NewManager creates a Manager. A nil publisher discards events.
func NewManager(store Store, publisher events.Publisher, opts ...Option) *Manager {
	if publisher == nil {
		publisher = events.Discard{}
	}
	m := &Manager{
		store:       store,
		publisher:   publisher,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		generate:    GenerateCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HouseholdView is a household with its members resolved, in join order.
type HouseholdView struct {
	Household *models.Household
	Members   []*models.User
}

// attemptFunc reads current state and returns the mutation to commit together
// with the events to publish once it has committed.
type attemptFunc func() (*storage.Mutation, []events.Event, error)

// commit runs attempt until its mutation applies without a version conflict.
func (m *Manager) commit(ctx context.Context, operation string, attempt attemptFunc) error {
	for n := 1; ; n++ {
		mutation, evts, err := attempt()
		if err != nil {
			return err
		}

		err = m.store.Apply(ctx, mutation)
		if err == nil {
			m.publish(ctx, evts)
			return nil
		}

		if !errors.Is(err, storage.ErrConflict) && !errors.Is(err, storage.ErrCodeTaken) {
			return apperr.External(err, "failed to %s", operation)
		}
		if n >= m.maxAttempts {
			slog.Warn("Giving up after repeated conflicts", "operation", operation, "attempts", n, "error", err)
			if errors.Is(err, storage.ErrCodeTaken) {
				return apperr.Conflict(err, "could not allocate a unique household code")
			}
			return apperr.Conflict(ErrContention, "failed to %s", operation)
		}

		slog.Debug("Retrying after conflict", "operation", operation, "attempt", n, "error", err)
		if m.retries != nil {
			m.retries.Inc()
		}
	}
}

func (m *Manager) publish(ctx context.Context, evts []events.Event) {
	for _, e := range evts {
		if err := m.publisher.Publish(ctx, e); err != nil {
			slog.Warn("Failed to publish event", "kind", e.Kind, "household_id", e.HouseholdID, "error", err)
		}
	}
}

func (m *Manager) event(kind events.Kind, householdID, actorID, subjectID, message string) events.Event {
	return events.Event{
		Kind:        kind,
		HouseholdID: householdID,
		ActorID:     actorID,
		SubjectID:   subjectID,
		Message:     message,
		OccurredAt:  m.now().UTC(),
	}
}

func (m *Manager) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := m.store.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFoundf("member %s not found", id)
	}
	if err != nil {
		return nil, apperr.External(err, "failed to load member")
	}
	return user, nil
}

func (m *Manager) loadHousehold(ctx context.Context, id string) (*models.Household, error) {
	household, err := m.store.GetHousehold(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFoundf("household %s not found", id)
	}
	if err != nil {
		return nil, apperr.External(err, "failed to load household")
	}
	return household, nil
}

// loadAdmin returns the acting admin and the household they administer.
func (m *Manager) loadAdmin(ctx context.Context, adminID, action string) (*models.User, *models.Household, error) {
	admin, err := m.loadUser(ctx, adminID)
	if err != nil {
		return nil, nil, err
	}
	if !admin.InHousehold() {
		return nil, nil, apperr.Unauthorizedf("only the household admin can %s", action)
	}
	household, err := m.loadHousehold(ctx, admin.HouseholdID)
	if err != nil {
		return nil, nil, err
	}
	if household.AdminID != admin.ID {
		return nil, nil, apperr.Unauthorizedf("only the household admin can %s", action)
	}
	return admin, household, nil
}

// CreateHousehold creates a household with founderID as its only member and admin.
func (m *Manager) CreateHousehold(ctx context.Context, founderID, name string) (*models.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("household name is required")
	}

	var created *models.Household
	err := m.commit(ctx, "create household", func() (*storage.Mutation, []events.Event, error) {
		founder, err := m.loadUser(ctx, founderID)
		if err != nil {
			return nil, nil, err
		}
		if founder.InHousehold() {
			return nil, nil, apperr.Conflictf("%s already belongs to a household", founder.Name)
		}

		code, err := m.generate()
		if err != nil {
			return nil, nil, err
		}

		household := &models.Household{
			ID:        uuid.New().String(),
			Name:      name,
			Code:      code,
			AdminID:   founder.ID,
			Members:   []string{founder.ID},
			CreatedAt: m.now().UTC(),
		}
		founder.HouseholdID = household.ID
		founder.IsAdmin = true
		founder.IsActive = true

		created = household
		return &storage.Mutation{
				Op:        storage.HouseholdCreate,
				Household: household,
				Users:     []*models.User{founder},
			}, []events.Event{
				m.event(events.HouseholdCreated, household.ID, founder.ID, founder.ID, household.Name),
			}, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Household created", "household_id", created.ID, "user_id", founderID)
	return created, nil
}

// JoinHousehold adds memberID to the household with the given join code.
//
// A member still listed in the household but without a household association
// rejoins it. A member listed and associated is already a member.
func (m *Manager) JoinHousehold(ctx context.Context, memberID, code string) (*models.Household, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, apperr.NotFoundf("no household with code %q", code)
	}

	var joined *models.Household
	err := m.commit(ctx, "join household", func() (*storage.Mutation, []events.Event, error) {
		user, err := m.loadUser(ctx, memberID)
		if err != nil {
			return nil, nil, err
		}

		household, err := m.store.GetHouseholdByCode(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperr.NotFoundf("no household with code %q", code)
		}
		if err != nil {
			return nil, nil, apperr.External(err, "failed to look up household code")
		}

		if household.HasMember(user.ID) {
			if user.InHousehold() {
				return nil, nil, apperr.Conflictf("%s is already a member", user.Name)
			}
			mutation, evt := m.rejoin(household, user)
			joined = mutation.Household
			return mutation, []events.Event{evt}, nil
		}

		mutation, evt, err := m.admit(household, user, memberID)
		if err != nil {
			return nil, nil, err
		}
		joined = mutation.Household
		return mutation, []events.Event{evt}, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member joined household", "household_id", joined.ID, "user_id", memberID)
	return joined, nil
}

// rejoin restores the association of a member still listed in the household.
func (m *Manager) rejoin(household *models.Household, user *models.User) (*storage.Mutation, events.Event) {
	user.HouseholdID = household.ID
	user.IsAdmin = false
	user.IsActive = true

	message := fmt.Sprintf("%s rejoined the household", user.Name)
	return &storage.Mutation{
		Op:        storage.HouseholdUpdate,
		Household: household,
		Users:     []*models.User{user},
		Notes:     []*models.Transaction{models.NewSystemNote(household.ID, message, m.now())},
	}, m.event(events.MemberRejoined, household.ID, user.ID, user.ID, message)
}

// admit appends a new member to the household.
func (m *Manager) admit(household *models.Household, user *models.User, actorID string) (*storage.Mutation, events.Event, error) {
	if user.InHousehold() && user.HouseholdID != household.ID {
		return nil, events.Event{}, apperr.Conflictf("%s already belongs to another household", user.Name)
	}

	updated := household.Clone()
	updated.Members = append(updated.Members, user.ID)
	user.HouseholdID = household.ID
	user.IsAdmin = false
	user.IsActive = true

	message := fmt.Sprintf("%s joined the household", user.Name)
	return &storage.Mutation{
		Op:        storage.HouseholdUpdate,
		Household: updated,
		Users:     []*models.User{user},
		Notes:     []*models.Transaction{models.NewSystemNote(household.ID, message, m.now())},
	}, m.event(events.MemberJoined, household.ID, actorID, user.ID, message), nil
}

// InviteByEmail adds the member registered under email to the admin's household.
func (m *Manager) InviteByEmail(ctx context.Context, adminID, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validationf("email is required")
	}

	var invited *models.User
	err := m.commit(ctx, "invite member", func() (*storage.Mutation, []events.Event, error) {
		_, household, err := m.loadAdmin(ctx, adminID, "invite members")
		if err != nil {
			return nil, nil, err
		}

		user, err := m.store.GetUserByEmail(ctx, email)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperr.NotFoundf("no member registered with %s", email)
		}
		if err != nil {
			return nil, nil, apperr.External(err, "failed to look up member")
		}
		if user.InHousehold() {
			return nil, nil, apperr.Conflictf("%s already belongs to a household", user.Name)
		}
		if household.HasMember(user.ID) {
			mutation, evt := m.rejoin(household, user)
			evt.ActorID = adminID
			invited = user
			return mutation, []events.Event{evt}, nil
		}

		mutation, evt, err := m.admit(household, user, adminID)
		if err != nil {
			return nil, nil, err
		}
		invited = user
		return mutation, []events.Event{evt}, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member invited", "household_id", invited.HouseholdID, "user_id", invited.ID, "admin_id", adminID)
	return invited, nil
}

// departure removes subject from the household. When nobody remains the
// household and its transactions are deleted; otherwise admin passes to the
// first remaining member if needed and a system note records message.
func (m *Manager) departure(ctx context.Context, household *models.Household, subject *models.User, kind events.Kind, actorID, message string) (*storage.Mutation, []events.Event, error) {
	clearAssociation(subject, household.ID)

	remaining := household.WithoutMember(subject.ID)
	if len(remaining) == 0 {
		return &storage.Mutation{
				Op:        storage.HouseholdDelete,
				Household: household,
				Users:     []*models.User{subject},
			}, []events.Event{
				m.event(kind, household.ID, actorID, subject.ID, message),
				m.event(events.HouseholdDeleted, household.ID, actorID, subject.ID, household.Name),
			}, nil
	}

	updated := household.Clone()
	updated.Members = remaining
	users := []*models.User{subject}

	if updated.AdminID == subject.ID {
		updated.AdminID = remaining[0]
		successor, err := m.loadUser(ctx, updated.AdminID)
		if err != nil {
			return nil, nil, err
		}
		if successor.HouseholdID == household.ID {
			successor.IsAdmin = true
			users = append(users, successor)
		}
	}

	return &storage.Mutation{
			Op:        storage.HouseholdUpdate,
			Household: updated,
			Users:     users,
			Notes:     []*models.Transaction{models.NewSystemNote(household.ID, message, m.now())},
		}, []events.Event{
			m.event(kind, household.ID, actorID, subject.ID, message),
		}, nil
}

// clearAssociation detaches user from householdID. A user associated with a
// different household keeps that association.
func clearAssociation(user *models.User, householdID string) {
	if user.HouseholdID != householdID {
		return
	}
	user.HouseholdID = ""
	user.IsAdmin = false
	user.IsActive = true
}

// LeaveHousehold removes memberID from their household.
func (m *Manager) LeaveHousehold(ctx context.Context, memberID string) error {
	var householdID string
	err := m.commit(ctx, "leave household", func() (*storage.Mutation, []events.Event, error) {
		user, err := m.loadUser(ctx, memberID)
		if err != nil {
			return nil, nil, err
		}
		if !user.InHousehold() {
			return nil, nil, apperr.Validationf("%s does not belong to a household", user.Name)
		}
		householdID = user.HouseholdID

		household, err := m.store.GetHousehold(ctx, user.HouseholdID)
		if errors.Is(err, storage.ErrNotFound) {
			// Dangling association: only the user document needs fixing.
			clearAssociation(user, householdID)
			return &storage.Mutation{Users: []*models.User{user}}, nil, nil
		}
		if err != nil {
			return nil, nil, apperr.External(err, "failed to load household")
		}

		message := fmt.Sprintf("%s left the household", user.Name)
		return m.departure(ctx, household, user, events.MemberLeft, user.ID, message)
	})
	if err != nil {
		return err
	}

	slog.Info("Member left household", "household_id", householdID, "user_id", memberID)
	return nil
}

// RemoveMember removes targetID from the admin's household.
func (m *Manager) RemoveMember(ctx context.Context, adminID, targetID string) error {
	if adminID == targetID {
		return apperr.Conflictf("admins cannot remove themselves; leave the household instead")
	}

	var householdID string
	err := m.commit(ctx, "remove member", func() (*storage.Mutation, []events.Event, error) {
		_, household, err := m.loadAdmin(ctx, adminID, "remove members")
		if err != nil {
			return nil, nil, err
		}
		householdID = household.ID
		if !household.HasMember(targetID) {
			return nil, nil, apperr.NotFoundf("member %s is not in the household", targetID)
		}

		target, err := m.loadUser(ctx, targetID)
		if err != nil {
			return nil, nil, err
		}

		message := fmt.Sprintf("%s was removed from the household", target.Name)
		return m.departure(ctx, household, target, events.MemberRemoved, adminID, message)
	})
	if err != nil {
		return err
	}

	slog.Info("Member removed from household", "household_id", householdID, "user_id", targetID, "admin_id", adminID)
	return nil
}

// DeleteHousehold deletes the admin's household, its transactions, and every
// member's association with it.
func (m *Manager) DeleteHousehold(ctx context.Context, adminID string) error {
	var householdID string
	err := m.commit(ctx, "delete household", func() (*storage.Mutation, []events.Event, error) {
		_, household, err := m.loadAdmin(ctx, adminID, "delete the household")
		if err != nil {
			return nil, nil, err
		}
		householdID = household.ID

		members, err := m.store.GetUsersByIDs(ctx, household.Members)
		if err != nil {
			return nil, nil, apperr.External(err, "failed to load members")
		}

		var users []*models.User
		for _, id := range household.Members {
			user, ok := members[id]
			if !ok || user.HouseholdID != household.ID {
				continue
			}
			user.HouseholdID = ""
			user.IsAdmin = false
			users = append(users, user)
		}

		return &storage.Mutation{
				Op:        storage.HouseholdDelete,
				Household: household,
				Users:     users,
			}, []events.Event{
				m.event(events.HouseholdDeleted, household.ID, adminID, "", household.Name),
			}, nil
	})
	if err != nil {
		return err
	}

	slog.Info("Household deleted", "household_id", householdID, "admin_id", adminID)
	return nil
}

// ToggleMemberActive flips whether targetID may log expenses.
// Membership and admin status are unchanged.
func (m *Manager) ToggleMemberActive(ctx context.Context, adminID, targetID string) (*models.User, error) {
	var target *models.User
	err := m.commit(ctx, "toggle member status", func() (*storage.Mutation, []events.Event, error) {
		_, household, err := m.loadAdmin(ctx, adminID, "change member status")
		if err != nil {
			return nil, nil, err
		}
		if !household.HasMember(targetID) {
			return nil, nil, apperr.NotFoundf("member %s is not in the household", targetID)
		}

		target, err = m.loadUser(ctx, targetID)
		if err != nil {
			return nil, nil, err
		}
		if target.HouseholdID != household.ID {
			return nil, nil, apperr.NotFoundf("member %s is not in the household", targetID)
		}
		target.IsActive = !target.IsActive

		status := "deactivated"
		if target.IsActive {
			status = "activated"
		}
		return &storage.Mutation{
				Users: []*models.User{target},
			}, []events.Event{
				m.event(events.MemberStatusChanged, household.ID, adminID, target.ID, fmt.Sprintf("%s was %s", target.Name, status)),
			}, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member status changed", "household_id", target.HouseholdID, "user_id", target.ID, "active", target.IsActive)
	return target, nil
}

// GetHousehold returns the acting member's household with members resolved.
func (m *Manager) GetHousehold(ctx context.Context, memberID string) (*HouseholdView, error) {
	user, err := m.loadUser(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !user.InHousehold() {
		return nil, apperr.NotFoundf("%s does not belong to a household", user.Name)
	}

	household, err := m.loadHousehold(ctx, user.HouseholdID)
	if err != nil {
		return nil, err
	}

	users, err := m.store.GetUsersByIDs(ctx, household.Members)
	if err != nil {
		return nil, apperr.External(err, "failed to load members")
	}

	view := &HouseholdView{Household: household}
	for _, id := range household.Members {
		if u, ok := users[id]; ok {
			view.Members = append(view.Members, u)
		}
	}
	return view, nil
}
