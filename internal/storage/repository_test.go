package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensio/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "expensio_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(cents int64, cat core.Category, date time.Time) core.ExpenseRecord {
	return core.ExpenseRecord{
		Amount:      core.Money{Cents: cents},
		Category:    cat,
		Description: "Coffee at Starbucks",
		Merchant:    "Starbucks",
		Date:        date,
		RawInput:    "Coffee 150 at Starbucks",
	}
}

func TestCreateAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	id, err := repo.Create(ctx, "owner-1", testRecord(15000, core.CategoryFood, date))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == "" {
		t.Fatal("Create() returned empty id")
	}

	records, err := repo.ListByOwner(ctx, "owner-1", true)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.ID != id {
		t.Errorf("id = %q, want %q", got.ID, id)
	}
	if got.OwnerID != "owner-1" {
		t.Errorf("ownerID = %q, want owner-1", got.OwnerID)
	}
	if got.Amount.Cents != 15000 {
		t.Errorf("amount = %d cents, want 15000", got.Amount.Cents)
	}
	if got.Category != core.CategoryFood {
		t.Errorf("category = %q, want %q", got.Category, core.CategoryFood)
	}
	if got.RawInput != "Coffee 150 at Starbucks" {
		t.Errorf("rawInput = %q, not preserved verbatim", got.RawInput)
	}
	if !got.Date.Equal(date) {
		t.Errorf("date = %v, want %v", got.Date, date)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("store must assign createdAt and updatedAt")
	}
}

func TestListOrdering(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	for _, d := range []time.Time{mid, recent, old} {
		if _, err := repo.Create(ctx, "owner-1", testRecord(100, core.CategoryBills, d)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	records, err := repo.ListByOwner(ctx, "owner-1", true)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !records[0].Date.Equal(recent) || !records[2].Date.Equal(old) {
		t.Fatalf("records not in date-descending order: %v, %v, %v",
			records[0].Date, records[1].Date, records[2].Date)
	}
}

func TestOwnerIsolation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	id, err := repo.Create(ctx, "owner-1", testRecord(5000, core.CategoryShopping, date))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	records, err := repo.ListByOwner(ctx, "owner-2", true)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("owner-2 must not see owner-1's records, got %d", len(records))
	}

	if _, err := repo.GetByID(ctx, id, "owner-2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetByID with foreign owner: error = %v, want ErrNotFound", err)
	}

	desc := "hijacked"
	patch := core.RecordPatch{Description: &desc}
	if _, err := repo.UpdateByID(ctx, id, "owner-2", patch); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UpdateByID with foreign owner: error = %v, want ErrNotFound", err)
	}

	if _, err := repo.DeleteByID(ctx, id, "owner-2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeleteByID with foreign owner: error = %v, want ErrNotFound", err)
	}

	// The record must be untouched for its real owner.
	rec, err := repo.GetByID(ctx, id, "owner-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.Description != "Coffee at Starbucks" {
		t.Fatalf("description = %q, record was modified across owners", rec.Description)
	}
}

func TestUpdateByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	id, err := repo.Create(ctx, "owner-1", testRecord(15000, core.CategoryFood, date))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	amount := core.Money{Cents: 20000}
	cat := core.CategoryEntertainment
	patch := core.RecordPatch{Amount: &amount, Category: &cat}

	updated, err := repo.UpdateByID(ctx, id, "owner-1", patch)
	if err != nil {
		t.Fatalf("UpdateByID() error = %v", err)
	}
	if updated.Amount.Cents != 20000 {
		t.Errorf("amount = %d, want 20000", updated.Amount.Cents)
	}
	if updated.Category != core.CategoryEntertainment {
		t.Errorf("category = %q, want %q", updated.Category, core.CategoryEntertainment)
	}
	// Absent patch fields stay as they were.
	if updated.Description != "Coffee at Starbucks" {
		t.Errorf("description = %q, must be unchanged", updated.Description)
	}
	if updated.Merchant != "Starbucks" {
		t.Errorf("merchant = %q, must be unchanged", updated.Merchant)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Errorf("updatedAt %v before createdAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	if _, err := repo.UpdateByID(ctx, "no-such-id", "owner-1", patch); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UpdateByID missing id: error = %v, want ErrNotFound", err)
	}
}

func TestDeleteByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	id, err := repo.Create(ctx, "owner-1", testRecord(2500, core.CategoryTransport, date))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := repo.DeleteByID(ctx, id, "owner-1")
	if err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if deleted.ID != id || deleted.Amount.Cents != 2500 {
		t.Fatalf("deleted record = %+v, want the stored record back", deleted)
	}

	records, err := repo.ListByOwner(ctx, "owner-1", true)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty listing after delete, got %d records", len(records))
	}

	if _, err := repo.DeleteByID(ctx, id, "owner-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: error = %v, want ErrNotFound", err)
	}
}
