package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/internal/storage"
)

const transactionColumns = `id, household_id, user_id, user_name, amount, note, receipt_url, timestamp, month, type`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	txn := &models.Transaction{}
	var userID, note, receiptURL sql.NullString
	var timestamp, kind string
	if err := row.Scan(
		&txn.ID,
		&txn.HouseholdID,
		&userID,
		&txn.UserName,
		&txn.Amount,
		&note,
		&receiptURL,
		&timestamp,
		&txn.Month,
		&kind,
	); err != nil {
		return nil, err
	}
	txn.UserID = userID.String
	txn.Note = note.String
	txn.ReceiptURL = receiptURL.String
	txn.Type = models.TransactionType(kind)

	var err error
	if txn.Timestamp, err = parseTime(timestamp); err != nil {
		return nil, err
	}
	return txn, nil
}

func prepareTransaction(txn *models.Transaction) []any {
	// Generate ID if not set
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.Type == "" {
		txn.Type = models.TypeExpense
	}
	return []any{
		txn.ID, txn.HouseholdID, nullString(txn.UserID), txn.UserName, txn.Amount,
		nullString(txn.Note), nullString(txn.ReceiptURL), formatTime(txn.Timestamp), txn.Month, string(txn.Type),
	}
}

func insertTransaction(ctx context.Context, db execer, txn *models.Transaction) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prepareTransaction(txn)...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// CreateTransaction persists a new ledger entry. The insert only happens
// while the household row exists, so an entry cannot outlive a concurrent
// household deletion.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	args := append(prepareTransaction(txn), txn.HouseholdID)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM households WHERE id = ?)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("household %s: %w", txn.HouseholdID, storage.ErrNotFound)
	}
	return nil
}

// GetTransaction retrieves a ledger entry by ID.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions retrieves a household's entries, newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, householdID, month string) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE household_id = ?`
	args := []any{householdID}
	if month != "" {
		query += ` AND month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY timestamp DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// UpdateTransaction overwrites the amount and note of an entry.
// Author, household, timestamp and month are never written.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET amount = ?, note = ? WHERE id = ?",
		txn.Amount, nullString(txn.Note), txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes an entry by ID.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
