// Package ledger records household expenses and derives standings and
// spending statistics from them.
package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/housemates/internal/apperr"
	"github.com/mmynk/housemates/internal/calculator"
	"github.com/mmynk/housemates/internal/events"
	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/internal/receipts"
	"github.com/mmynk/housemates/internal/storage"
)

// ReceiptWarning is reported when an expense was saved without its receipt.
const ReceiptWarning = "receipt upload failed; expense saved without receipt"

// Store is the document access the ledger needs.
type Store interface {
	storage.UserStore
	storage.HouseholdStore
	storage.TransactionStore
}

// Receipt is an optional image attached to a new expense.
type Receipt struct {
	Filename string
	Body     io.Reader
	Size     int64
	Progress receipts.ProgressFunc
}

// AddResult is the outcome of AddTransaction.
type AddResult struct {
	Transaction *models.Transaction
	// Warning is non-empty when the receipt could not be stored.
	Warning string
}

// Ledger manages expense entries.
type Ledger struct {
	store     Store
	receipts  receipts.Store
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger. Without a receipt store every attached receipt is
// dropped with a warning; a nil publisher discards events.
func New(store Store, receiptStore receipts.Store, publisher events.Publisher, opts ...Option) *Ledger {
	if publisher == nil {
		publisher = events.Discard{}
	}
	l := &Ledger{
		store:     store,
		receipts:  receiptStore,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// maxAmount bounds a single entry so sums stay finite and exact to the cent.
var maxAmount = decimal.New(1, 12)

// ParseAmount parses a non-negative decimal amount, rounding half-up to cents.
func ParseAmount(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, apperr.Validationf("amount is required")
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return 0, apperr.Validationf("amount %q is not a number", value)
	}
	if amount.IsNegative() {
		return 0, apperr.Validationf("amount cannot be negative")
	}
	amount = amount.Round(2)
	if amount.GreaterThan(maxAmount) {
		return 0, apperr.Validationf("amount cannot exceed %s", maxAmount.String())
	}
	f := amount.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, apperr.Validationf("amount %q is out of range", value)
	}
	return f, nil
}

// member loads the acting user and requires a household association.
func (l *Ledger) member(ctx context.Context, userID string) (*models.User, error) {
	user, err := l.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFoundf("member %s not found", userID)
	}
	if err != nil {
		return nil, apperr.External(err, "failed to load member")
	}
	if !user.InHousehold() {
		return nil, apperr.NotFoundf("%s does not belong to a household", user.Name)
	}
	return user, nil
}

// admin loads the acting user and requires them to administer their household.
func (l *Ledger) admin(ctx context.Context, userID, action string) (*models.User, error) {
	user, err := l.member(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorizedf("only the household admin can %s", action)
	}
	if err != nil {
		return nil, err
	}
	household, err := l.store.GetHousehold(ctx, user.HouseholdID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.External(err, "failed to load household")
	}
	if household == nil || household.AdminID != user.ID {
		return nil, apperr.Unauthorizedf("only the household admin can %s", action)
	}
	return user, nil
}

func (l *Ledger) publish(ctx context.Context, kind events.Kind, txn *models.Transaction, actorID string) {
	e := events.Event{
		Kind:          kind,
		HouseholdID:   txn.HouseholdID,
		ActorID:       actorID,
		SubjectID:     txn.UserID,
		TransactionID: txn.ID,
		OccurredAt:    l.now().UTC(),
	}
	if err := l.publisher.Publish(ctx, e); err != nil {
		slog.Warn("Failed to publish event", "kind", kind, "household_id", txn.HouseholdID, "error", err)
	}
}

// AddTransaction records an expense by userID in their household.
//
// The receipt, when given, is uploaded first. A failed upload does not fail
// the expense: it is saved without a receipt and the result carries a warning.
// If the expense cannot be saved the uploaded receipt is removed again.
func (l *Ledger) AddTransaction(ctx context.Context, userID, amount, note string, receipt *Receipt) (*AddResult, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	user, err := l.member(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Unauthorizedf("%s is deactivated and cannot add expenses", user.Name)
	}

	now := l.now().UTC()
	txn := &models.Transaction{
		UserID:      user.ID,
		UserName:    user.Name,
		HouseholdID: user.HouseholdID,
		Amount:      value,
		Note:        strings.TrimSpace(note),
		Timestamp:   now,
		Month:       models.MonthKey(now),
		Type:        models.TypeExpense,
	}

	result := &AddResult{Transaction: txn}
	var ref string
	if receipt != nil && receipt.Body != nil {
		if l.receipts == nil {
			result.Warning = ReceiptWarning
		} else if ref, err = l.receipts.Upload(ctx, user.HouseholdID, receipt.Filename, receipt.Body, receipt.Size, receipt.Progress); err != nil {
			slog.Warn("Receipt upload failed, saving expense without it",
				"household_id", user.HouseholdID,
				"user_id", user.ID,
				"error", err)
			result.Warning = ReceiptWarning
			ref = ""
		} else {
			txn.ReceiptURL = l.receipts.URL(ref)
		}
	}

	if err := l.store.CreateTransaction(ctx, txn); err != nil {
		l.discardReceipt(ctx, ref)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFoundf("household %s no longer exists", txn.HouseholdID)
		}
		return nil, apperr.External(err, "failed to save expense")
	}

	slog.Info("Expense added", "household_id", txn.HouseholdID, "user_id", user.ID, "transaction_id", txn.ID, "amount", txn.Amount)
	l.publish(ctx, events.TransactionCreated, txn, user.ID)
	return result, nil
}

func (l *Ledger) discardReceipt(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := l.receipts.Delete(ctx, ref); err != nil {
		slog.Warn("Failed to remove receipt of unsaved expense", "ref", ref, "error", err)
	}
}

// ListTransactions returns the member's household entries, newest first.
// A non-empty month restricts the list to that month.
func (l *Ledger) ListTransactions(ctx context.Context, userID, month string) ([]*models.Transaction, error) {
	if month != "" {
		var err error
		if month, err = calculator.ParseMonth(month, l.now()); err != nil {
			return nil, err
		}
	}

	user, err := l.member(ctx, userID)
	if err != nil {
		return nil, err
	}

	txns, err := l.store.ListTransactions(ctx, user.HouseholdID, month)
	if err != nil {
		return nil, apperr.External(err, "failed to list expenses")
	}
	return txns, nil
}

// entry loads a transaction of the admin's household.
func (l *Ledger) entry(ctx context.Context, admin *models.User, id string) (*models.Transaction, error) {
	txn, err := l.store.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFoundf("expense %s not found", id)
	}
	if err != nil {
		return nil, apperr.External(err, "failed to load expense")
	}
	if txn.HouseholdID != admin.HouseholdID {
		return nil, apperr.NotFoundf("expense %s not found", id)
	}
	return txn, nil
}

// UpdateTransaction lets the admin correct the amount and note of an expense.
func (l *Ledger) UpdateTransaction(ctx context.Context, adminID, id, amount, note string) (*models.Transaction, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	admin, err := l.admin(ctx, adminID, "edit expenses")
	if err != nil {
		return nil, err
	}

	txn, err := l.entry(ctx, admin, id)
	if err != nil {
		return nil, err
	}
	if txn.IsSystem() {
		return nil, apperr.Validationf("system entries cannot be edited")
	}

	txn.Amount = value
	txn.Note = strings.TrimSpace(note)
	if err := l.store.UpdateTransaction(ctx, txn); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFoundf("expense %s not found", id)
		}
		return nil, apperr.External(err, "failed to update expense")
	}

	slog.Info("Expense updated", "household_id", txn.HouseholdID, "transaction_id", txn.ID, "admin_id", adminID)
	l.publish(ctx, events.TransactionUpdated, txn, adminID)
	return txn, nil
}

// DeleteTransaction lets the admin delete an entry of their household.
func (l *Ledger) DeleteTransaction(ctx context.Context, adminID, id string) error {
	admin, err := l.admin(ctx, adminID, "delete expenses")
	if err != nil {
		return err
	}

	txn, err := l.entry(ctx, admin, id)
	if err != nil {
		return err
	}

	if err := l.store.DeleteTransaction(ctx, txn.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFoundf("expense %s not found", id)
		}
		return apperr.External(err, "failed to delete expense")
	}

	slog.Info("Expense deleted", "household_id", txn.HouseholdID, "transaction_id", txn.ID, "admin_id", adminID)
	l.publish(ctx, events.TransactionDeleted, txn, adminID)
	return nil
}

// householdData loads what the calculator needs for the member's household.
func (l *Ledger) householdData(ctx context.Context, userID, month string) (string, []*models.Transaction, []*models.User, error) {
	period, err := calculator.ParseMonth(month, l.now())
	if err != nil {
		return "", nil, nil, err
	}

	user, err := l.member(ctx, userID)
	if err != nil {
		return "", nil, nil, err
	}

	household, err := l.store.GetHousehold(ctx, user.HouseholdID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, nil, apperr.NotFoundf("household %s not found", user.HouseholdID)
	}
	if err != nil {
		return "", nil, nil, apperr.External(err, "failed to load household")
	}

	users, err := l.store.GetUsersByIDs(ctx, household.Members)
	if err != nil {
		return "", nil, nil, apperr.External(err, "failed to load members")
	}
	members := make([]*models.User, 0, len(household.Members))
	for _, id := range household.Members {
		if u, ok := users[id]; ok {
			members = append(members, u)
		}
	}

	txns, err := l.store.ListTransactions(ctx, household.ID, "")
	if err != nil {
		return "", nil, nil, apperr.External(err, "failed to list expenses")
	}
	return period, txns, members, nil
}

// GetStandings computes who owes whom in the member's household for a month.
// An empty month selects the current one.
func (l *Ledger) GetStandings(ctx context.Context, userID, month string) (models.SettlementResult, error) {
	period, txns, members, err := l.householdData(ctx, userID, month)
	if err != nil {
		return models.SettlementResult{}, err
	}
	return calculator.ComputeSettlement(txns, members, period), nil
}

// GetStats summarizes spending in the member's household for a month.
// An empty month selects the current one.
func (l *Ledger) GetStats(ctx context.Context, userID, month string) (models.Stats, error) {
	period, txns, members, err := l.householdData(ctx, userID, month)
	if err != nil {
		return models.Stats{}, err
	}
	return calculator.ComputeStats(txns, members, userID, period, l.now().UTC()), nil
}
