package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/housemates/internal/models"
	"github.com/mmynk/housemates/internal/storage"
)

const householdColumns = `id, name, code, admin, members, created_at, version`

func scanHousehold(row rowScanner) (*models.Household, error) {
	h := &models.Household{}
	var members, createdAt string
	if err := row.Scan(&h.ID, &h.Name, &h.Code, &h.AdminID, &members, &createdAt, &h.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &h.Members); err != nil {
		return nil, fmt.Errorf("failed to decode members of household %s: %w", h.ID, err)
	}
	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHousehold retrieves a household by ID.
func (s *SQLiteStore) GetHousehold(ctx context.Context, id string) (*models.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdColumns+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("household %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return h, nil
}

// GetHouseholdByCode retrieves a household by its join code.
func (s *SQLiteStore) GetHouseholdByCode(ctx context.Context, code string) (*models.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdColumns+` FROM households WHERE code = ?`, code)
	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("household code %s: %w", code, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household by code: %w", err)
	}
	return h, nil
}

// Apply commits a membership mutation in a single transaction.
func (s *SQLiteStore) Apply(ctx context.Context, m *storage.Mutation) error {
	if m.Op != storage.HouseholdUnchanged && m.Household == nil {
		return fmt.Errorf("mutation op %d requires a household", m.Op)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	switch m.Op {
	case storage.HouseholdCreate:
		err = insertHousehold(ctx, tx, m.Household)
	case storage.HouseholdUpdate:
		err = updateHousehold(ctx, tx, m.Household)
	case storage.HouseholdDelete:
		err = deleteHousehold(ctx, tx, m.Household)
	}
	if err != nil {
		return err
	}

	for _, user := range m.Users {
		if err := writeUserAssociation(ctx, tx, user); err != nil {
			return err
		}
	}

	for _, note := range m.Notes {
		if err := insertTransaction(ctx, tx, note); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Reflect the committed versions back to the caller's documents.
	switch m.Op {
	case storage.HouseholdCreate:
		m.Household.Version = 1
	case storage.HouseholdUpdate:
		m.Household.Version++
	}
	for _, user := range m.Users {
		user.Version++
	}

	return nil
}

func insertHousehold(ctx context.Context, tx *sql.Tx, h *models.Household) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM households WHERE code = ?", h.Code).Scan(&exists)
	if err == nil {
		return storage.ErrCodeTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check household code: %w", err)
	}

	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	members, err := json.Marshal(h.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO households (`+householdColumns+`) VALUES (?, ?, ?, ?, ?, ?, 1)`,
		h.ID, h.Name, h.Code, h.AdminID, string(members), formatTime(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert household: %w", err)
	}
	return nil
}

func updateHousehold(ctx context.Context, tx *sql.Tx, h *models.Household) error {
	members, err := json.Marshal(h.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE households SET name = ?, admin = ?, members = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		h.Name, h.AdminID, string(members), h.ID, h.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update household: %w", err)
	}
	return expectOneRow(res, "household "+h.ID)
}

// deleteHousehold removes the household's transactions, then the household.
func deleteHousehold(ctx context.Context, tx *sql.Tx, h *models.Household) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE household_id = ?", h.ID); err != nil {
		return fmt.Errorf("failed to delete household transactions: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM households WHERE id = ? AND version = ?", h.ID, h.Version)
	if err != nil {
		return fmt.Errorf("failed to delete household: %w", err)
	}
	return expectOneRow(res, "household "+h.ID)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrConflict)
	}
	return nil
}
