package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensio/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRepository is the owner-scoped expense store. Every operation is
// filtered by owner id, so a foreign record is indistinguishable from a
// missing one.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create persists a validated record for the given owner, assigning the id
// and both store-managed timestamps. The passed record is not mutated.
func (r *SQLiteRepository) Create(ctx context.Context, ownerID string, rec core.ExpenseRecord) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, owner_id, amount_cents, category, description, merchant, expense_date, raw_input, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, rec.Amount.Cents, string(rec.Category), rec.Description,
		rec.Merchant, rec.Date.UTC(), rec.RawInput, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"owner_id", ownerID,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents)

	return id, nil
}

// ListByOwner returns every record owned by ownerID, by transaction date
// descending when requested (ties broken by creation time so the listing is
// stable).
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string, dateDescending bool) ([]core.ExpenseRecord, error) {
	order := "expense_date ASC, created_at ASC"
	if dateDescending {
		order = "expense_date DESC, created_at DESC"
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, amount_cents, category, description, merchant, expense_date, raw_input, created_at, updated_at
		FROM expenses
		WHERE owner_id = ?
		ORDER BY `+order,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var records []core.ExpenseRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return records, nil
}

// GetByID returns one record scoped to its owner, or core.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id, ownerID string) (*core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, amount_cents, category, description, merchant, expense_date, raw_input, created_at, updated_at
		FROM expenses
		WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &rec, nil
}

// UpdateByID applies the present patch fields to a record scoped to its
// owner, refreshes updated_at, and returns the updated record. A foreign or
// missing id yields core.ErrNotFound.
func (r *SQLiteRepository) UpdateByID(ctx context.Context, id, ownerID string, patch core.RecordPatch) (*core.ExpenseRecord, error) {
	if patch.IsEmpty() {
		// Nothing to change, but the caller still gets NotFound for a
		// record it does not own.
		return r.GetByID(ctx, id, ownerID)
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if patch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Cents)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Merchant != nil {
		sets = append(sets, "merchant = ?")
		args = append(args, *patch.Merchant)
	}
	if patch.Date != nil {
		sets = append(sets, "expense_date = ?")
		args = append(args, patch.Date.UTC())
	}
	if patch.RawInput != nil {
		sets = append(sets, "raw_input = ?")
		args = append(args, *patch.RawInput)
	}
	args = append(args, id, ownerID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update expense rows affected: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense updated", "id", id, "owner_id", ownerID)

	return r.GetByID(ctx, id, ownerID)
}

// DeleteByID removes a record scoped to its owner and returns it, or
// core.ErrNotFound.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id, ownerID string) (*core.ExpenseRecord, error) {
	rec, err := r.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return nil, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "owner_id", ownerID)

	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.ExpenseRecord, error) {
	var (
		rec      core.ExpenseRecord
		category string
	)
	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Amount.Cents,
		&category,
		&rec.Description,
		&rec.Merchant,
		&rec.Date,
		&rec.RawInput,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	rec.Category = core.Category(category)
	return rec, nil
}
