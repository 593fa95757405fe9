package membership

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/housemates/internal/apperr"
	"github.com/mmynk/housemates/internal/events"
	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/internal/storage"
	"github.com/mmynk/housemates/internal/storage/sqlite"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []events.Kind
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	store    *sqlite.SQLiteStore
	manager  *Manager
	recorder *recorder
	now      time.Time
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "membership-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:    store,
		recorder: &recorder{},
		now:      time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.manager = NewManager(store, f.recorder, opts...)
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := models.NewUser(name+"@example.com", name, "hash")
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return u
}

// tick advances the clock so notes written next sort after earlier ones.
func (f *fixture) tick() {
	f.now = f.now.Add(time.Minute)
}

func (f *fixture) reload(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return u
}

func (f *fixture) household(t *testing.T, id string) *models.Household {
	t.Helper()
	h, err := f.store.GetHousehold(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load household: %v", err)
	}
	return h
}

func (f *fixture) notes(t *testing.T, householdID string) []string {
	t.Helper()
	txns, err := f.store.ListTransactions(context.Background(), householdID, "")
	if err != nil {
		t.Fatalf("failed to list transactions: %v", err)
	}
	var notes []string
	for _, txn := range txns {
		if txn.IsSystem() {
			notes = append(notes, txn.Note)
		}
	}
	return notes
}

func TestCreateHousehold(t *testing.T) {
	ctx := context.Background()

	t.Run("founder becomes admin", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")

		h, err := f.manager.CreateHousehold(ctx, alice.ID, "  Flat 3B ")
		if err != nil {
			t.Fatalf("CreateHousehold failed: %v", err)
		}
		if h.Name != "Flat 3B" {
			t.Errorf("Name = %q, want trimmed", h.Name)
		}
		if !ValidCode(h.Code) {
			t.Errorf("Code = %q, want 6 chars of A-Z0-9", h.Code)
		}
		if h.AdminID != alice.ID || len(h.Members) != 1 || h.Members[0] != alice.ID {
			t.Errorf("household = %+v, want Alice as sole member and admin", h)
		}

		got := f.reload(t, alice.ID)
		if got.HouseholdID != h.ID || !got.IsAdmin || !got.IsActive {
			t.Errorf("founder = %+v, want admin of %s", got, h.ID)
		}
		if kinds := f.recorder.kinds(); len(kinds) != 1 || kinds[0] != events.HouseholdCreated {
			t.Errorf("events = %v, want [household.created]", kinds)
		}
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")

		_, err := f.manager.CreateHousehold(ctx, alice.ID, "   ")
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("error = %v, want validation error", err)
		}
		if got := f.reload(t, alice.ID); got.InHousehold() {
			t.Error("no household should have been associated")
		}
	})

	t.Run("founder already in a household", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")
		if _, err := f.manager.CreateHousehold(ctx, alice.ID, "First"); err != nil {
			t.Fatalf("CreateHousehold failed: %v", err)
		}
		_, err := f.manager.CreateHousehold(ctx, alice.ID, "Second")
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("code collision is retried", func(t *testing.T) {
		codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
		var mu sync.Mutex
		next := func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			c := codes[0]
			codes = codes[1:]
			return c, nil
		}
		f := setup(t, WithCodeGenerator(next))
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

		if _, err := f.manager.CreateHousehold(ctx, alice.ID, "One"); err != nil {
			t.Fatalf("CreateHousehold failed: %v", err)
		}
		h, err := f.manager.CreateHousehold(ctx, bob.ID, "Two")
		if err != nil {
			t.Fatalf("CreateHousehold failed: %v", err)
		}
		if h.Code != "BBBBBB" {
			t.Errorf("Code = %s, want BBBBBB after collision", h.Code)
		}
	})
}

func TestJoinHousehold(t *testing.T) {
	ctx := context.Background()

	t.Run("new member is appended with a note", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")

		joined, err := f.manager.JoinHousehold(ctx, bob.ID, " "+strings.ToLower(h.Code)+" ")
		if err != nil {
			t.Fatalf("JoinHousehold failed: %v", err)
		}
		if len(joined.Members) != 2 || joined.Members[1] != bob.ID {
			t.Errorf("Members = %v, want Bob appended", joined.Members)
		}

		got := f.reload(t, bob.ID)
		if got.HouseholdID != h.ID || got.IsAdmin || !got.IsActive {
			t.Errorf("Bob = %+v, want active non-admin member", got)
		}
		if notes := f.notes(t, h.ID); len(notes) != 1 || notes[0] != "Bob joined the household" {
			t.Errorf("notes = %v", notes)
		}
	})

	t.Run("unknown code mutates nothing", func(t *testing.T) {
		f := setup(t)
		bob := f.user(t, "Bob")

		_, err := f.manager.JoinHousehold(ctx, bob.ID, "ZZZZZZ")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("error = %v, want not found", err)
		}
		if got := f.reload(t, bob.ID); got.InHousehold() || got.Version != bob.Version {
			t.Errorf("Bob was modified: %+v", got)
		}
	})

	t.Run("existing member conflicts", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")

		_, err := f.manager.JoinHousehold(ctx, alice.ID, h.Code)
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("member of another household conflicts", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.CreateHousehold(ctx, bob.ID, "Other")

		_, err := f.manager.JoinHousehold(ctx, bob.ID, h.Code)
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("listed member without association rejoins", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.JoinHousehold(ctx, bob.ID, h.Code)

		// Drop Bob's association while leaving him listed.
		stale := f.reload(t, bob.ID)
		stale.HouseholdID = ""
		if err := f.store.Apply(ctx, &storage.Mutation{Users: []*models.User{stale}}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}

		f.tick()
		joined, err := f.manager.JoinHousehold(ctx, bob.ID, h.Code)
		if err != nil {
			t.Fatalf("JoinHousehold failed: %v", err)
		}
		if len(joined.Members) != 2 {
			t.Errorf("Members = %v, want no duplicate", joined.Members)
		}
		if got := f.reload(t, bob.ID); got.HouseholdID != h.ID {
			t.Errorf("Bob association = %q, want %s", got.HouseholdID, h.ID)
		}
		notes := f.notes(t, h.ID)
		if len(notes) != 2 || notes[0] != "Bob rejoined the household" {
			t.Errorf("notes = %v, want exactly one rejoin note on top", notes)
		}
	})
}

func TestInviteByEmail(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	alice, bob, carol := f.user(t, "Alice"), f.user(t, "Bob"), f.user(t, "Carol")
	h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")

	t.Run("admin invites by email", func(t *testing.T) {
		invited, err := f.manager.InviteByEmail(ctx, alice.ID, "  BOB@example.com ")
		if err != nil {
			t.Fatalf("InviteByEmail failed: %v", err)
		}
		if invited.ID != bob.ID || invited.HouseholdID != h.ID {
			t.Errorf("invited = %+v", invited)
		}
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		_, err := f.manager.InviteByEmail(ctx, bob.ID, "carol@example.com")
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("error = %v, want authorization error", err)
		}
		if f.reload(t, carol.ID).InHousehold() {
			t.Error("Carol should not have been added")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.manager.InviteByEmail(ctx, alice.ID, "nobody@example.com")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("error = %v, want not found", err)
		}
	})

	t.Run("already in a household", func(t *testing.T) {
		_, err := f.manager.InviteByEmail(ctx, alice.ID, "bob@example.com")
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want conflict", err)
		}
	})
}

func TestLeaveHousehold(t *testing.T) {
	ctx := context.Background()

	t.Run("last member deletes household and expenses", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		expense := &models.Transaction{UserID: alice.ID, UserName: "Alice", HouseholdID: h.ID, Amount: 20, Timestamp: f.now, Month: models.MonthKey(f.now)}
		f.store.CreateTransaction(ctx, expense)

		if err := f.manager.LeaveHousehold(ctx, alice.ID); err != nil {
			t.Fatalf("LeaveHousehold failed: %v", err)
		}
		if _, err := f.store.GetHousehold(ctx, h.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("household still exists: %v", err)
		}
		if _, err := f.store.GetTransaction(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expense still exists: %v", err)
		}
		if got := f.reload(t, alice.ID); got.InHousehold() || got.IsAdmin {
			t.Errorf("Alice = %+v, want association cleared", got)
		}
	})

	t.Run("departing admin hands over to first remaining member", func(t *testing.T) {
		f := setup(t)
		alice, bob, carol := f.user(t, "Alice"), f.user(t, "Bob"), f.user(t, "Carol")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.JoinHousehold(ctx, bob.ID, h.Code)
		f.manager.JoinHousehold(ctx, carol.ID, h.Code)
		expense := &models.Transaction{UserID: alice.ID, UserName: "Alice", HouseholdID: h.ID, Amount: 20, Timestamp: f.now, Month: models.MonthKey(f.now)}
		f.store.CreateTransaction(ctx, expense)

		f.tick()
		if err := f.manager.LeaveHousehold(ctx, alice.ID); err != nil {
			t.Fatalf("LeaveHousehold failed: %v", err)
		}

		got := f.household(t, h.ID)
		if got.AdminID != bob.ID {
			t.Errorf("AdminID = %s, want Bob", got.AdminID)
		}
		if len(got.Members) != 2 || got.Members[0] != bob.ID || got.Members[1] != carol.ID {
			t.Errorf("Members = %v, want [Bob Carol]", got.Members)
		}
		if !f.reload(t, bob.ID).IsAdmin {
			t.Error("Bob should be flagged admin")
		}
		if a := f.reload(t, alice.ID); a.InHousehold() || a.IsAdmin || !a.IsActive {
			t.Errorf("Alice = %+v, want association cleared", a)
		}
		if _, err := f.store.GetTransaction(ctx, expense.ID); err != nil {
			t.Errorf("expense history should survive: %v", err)
		}
		if notes := f.notes(t, h.ID); notes[0] != "Alice left the household" {
			t.Errorf("latest note = %q", notes[0])
		}
	})

	t.Run("unaffiliated member", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")
		if err := f.manager.LeaveHousehold(ctx, alice.ID); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("error = %v, want validation error", err)
		}
	})
}

func TestAdminOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("remove member", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.JoinHousehold(ctx, bob.ID, h.Code)

		f.tick()
		if err := f.manager.RemoveMember(ctx, alice.ID, bob.ID); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		if got := f.household(t, h.ID); got.HasMember(bob.ID) {
			t.Errorf("Members = %v, want Bob removed", got.Members)
		}
		if f.reload(t, bob.ID).InHousehold() {
			t.Error("Bob's association should be cleared")
		}
		if notes := f.notes(t, h.ID); notes[0] != "Bob was removed from the household" {
			t.Errorf("latest note = %q", notes[0])
		}
	})

	t.Run("non-admin cannot remove", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.JoinHousehold(ctx, bob.ID, h.Code)

		err := f.manager.RemoveMember(ctx, bob.ID, alice.ID)
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("error = %v, want authorization error", err)
		}
		if got := f.household(t, h.ID); len(got.Members) != 2 {
			t.Errorf("Members = %v, want unchanged", got.Members)
		}
	})

	t.Run("admin cannot remove self", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "Alice")
		f.manager.CreateHousehold(ctx, alice.ID, "Flat")

		if err := f.manager.RemoveMember(ctx, alice.ID, alice.ID); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("remove unknown target", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		f.manager.CreateHousehold(ctx, alice.ID, "Flat")

		if err := f.manager.RemoveMember(ctx, alice.ID, bob.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("error = %v, want not found", err)
		}
	})

	t.Run("toggle member active", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.JoinHousehold(ctx, bob.ID, h.Code)

		got, err := f.manager.ToggleMemberActive(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("ToggleMemberActive failed: %v", err)
		}
		if got.IsActive {
			t.Error("Bob should be inactive")
		}
		stored := f.reload(t, bob.ID)
		if stored.IsActive || stored.HouseholdID != h.ID || stored.IsAdmin {
			t.Errorf("Bob = %+v, want inactive member", stored)
		}

		got, _ = f.manager.ToggleMemberActive(ctx, alice.ID, bob.ID)
		if !got.IsActive {
			t.Error("Bob should be active again")
		}
	})

	t.Run("delete household", func(t *testing.T) {
		f := setup(t)
		alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
		h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
		f.manager.JoinHousehold(ctx, bob.ID, h.Code)

		if err := f.manager.DeleteHousehold(ctx, bob.ID); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("error = %v, want authorization error", err)
		}
		if err := f.manager.DeleteHousehold(ctx, alice.ID); err != nil {
			t.Fatalf("DeleteHousehold failed: %v", err)
		}
		if _, err := f.store.GetHousehold(ctx, h.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("household still exists: %v", err)
		}
		for _, id := range []string{alice.ID, bob.ID} {
			if u := f.reload(t, id); u.InHousehold() || u.IsAdmin {
				t.Errorf("user %s = %+v, want association cleared", id, u)
			}
		}
		if f.notes(t, h.ID) != nil {
			t.Error("expected no transactions left")
		}
	})
}

func TestGetHousehold(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")
	h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")
	f.manager.JoinHousehold(ctx, bob.ID, h.Code)

	view, err := f.manager.GetHousehold(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetHousehold failed: %v", err)
	}
	if view.Household.ID != h.ID || len(view.Members) != 2 || view.Members[0].Name != "Alice" {
		t.Errorf("view = %+v", view)
	}

	carol := f.user(t, "Carol")
	if _, err := f.manager.GetHousehold(ctx, carol.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

// racingStore lets a competing write land between a transition's read and its commit.
type racingStore struct {
	*sqlite.SQLiteStore
	once   sync.Once
	before func()
}

func (s *racingStore) Apply(ctx context.Context, m *storage.Mutation) error {
	s.once.Do(s.before)
	return s.SQLiteStore.Apply(ctx, m)
}

func TestConcurrentJoinIsRetried(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	alice, bob, carol := f.user(t, "Alice"), f.user(t, "Bob"), f.user(t, "Carol")
	h, _ := f.manager.CreateHousehold(ctx, alice.ID, "Flat")

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_retries_total"})
	racing := &racingStore{SQLiteStore: f.store}
	racing.before = func() {
		if _, err := f.manager.JoinHousehold(ctx, carol.ID, h.Code); err != nil {
			t.Errorf("competing join failed: %v", err)
		}
	}
	manager := NewManager(racing, nil, WithRetryCounter(counter))

	if _, err := manager.JoinHousehold(ctx, bob.ID, h.Code); err != nil {
		t.Fatalf("JoinHousehold failed: %v", err)
	}

	got := f.household(t, h.ID)
	if len(got.Members) != 3 || !got.HasMember(bob.ID) || !got.HasMember(carol.ID) {
		t.Errorf("Members = %v, want both joins applied", got.Members)
	}
	if n := testutil.ToFloat64(counter); n != 1 {
		t.Errorf("retries = %v, want 1", n)
	}
}

type conflictingStore struct {
	*sqlite.SQLiteStore
}

func (conflictingStore) Apply(context.Context, *storage.Mutation) error {
	return storage.ErrConflict
}

func TestContentionExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	alice := f.user(t, "Alice")

	manager := NewManager(conflictingStore{f.store}, nil, WithMaxAttempts(3))
	_, err := manager.CreateHousehold(ctx, alice.ID, "Flat")
	if !errors.Is(err, ErrContention) || !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("error = %v, want contention conflict", err)
	}
}
