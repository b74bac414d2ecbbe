package storage

import (
	"context"
	"path/filepath"
	"testing"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTx(desc string, cents int64, typ core.TransactionType, date core.Date) core.Transaction {
	return core.Transaction{
		UserID:      "u1",
		Amount:      core.Money{Cents: cents},
		Type:        typ,
		Category:    core.DefaultCategory,
		Description: desc,
		Date:        date,
	}
}

func TestInsertAndQuery(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, sampleTx("Coffee", 450, core.Expense, core.NewDate(2025, 3, 1)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned id")
	}

	txs, err := repo.Query(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d rows, want 1", len(txs))
	}
	got := txs[0]
	if got.ID != id || got.Amount.Cents != 450 || got.Type != core.Expense ||
		got.Description != "Coffee" || got.Date.String() != "2025-03-01" {
		t.Fatalf("round trip: %+v", got)
	}
}

func TestUniqueConstraintSignalsDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tx := sampleTx("Coffee", 450, core.Expense, core.NewDate(2025, 3, 1))

	if _, err := repo.Insert(ctx, tx); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := repo.Insert(ctx, tx); err != ledger.ErrDuplicate {
		t.Fatalf("expected ledger.ErrDuplicate, got %v", err)
	}

	// Different category, same key tuple: still a duplicate.
	recat := tx
	recat.Category = "Food"
	if _, err := repo.Insert(ctx, recat); err != ledger.ErrDuplicate {
		t.Fatalf("category must not widen the key, got %v", err)
	}

	// Different description breaks the key.
	other := tx
	other.Description = "Tea"
	if _, err := repo.Insert(ctx, other); err != nil {
		t.Fatalf("distinct description rejected: %v", err)
	}
}

func TestHasDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tx := sampleTx("Coffee", 450, core.Expense, core.NewDate(2025, 3, 1))

	dup, err := repo.HasDuplicate(ctx, ledger.KeyOf(tx))
	if err != nil || dup {
		t.Fatalf("empty table: dup=%v err=%v", dup, err)
	}

	if _, err := repo.Insert(ctx, tx); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup, err = repo.HasDuplicate(ctx, ledger.KeyOf(tx))
	if err != nil || !dup {
		t.Fatalf("after insert: dup=%v err=%v", dup, err)
	}
}

func TestQueryHalfOpenRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, sampleTx("December", 100, core.Expense, core.NewDate(2024, 12, 31))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Insert(ctx, sampleTx("January", 200, core.Expense, core.NewDate(2025, 1, 1))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dec := ledger.MonthRange(2024, 12)
	txs, err := repo.Query(ctx, "u1", &dec)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(txs) != 1 || txs[0].Description != "December" {
		t.Fatalf("december rows: %+v", txs)
	}

	jan := ledger.MonthRange(2025, 1)
	txs, err = repo.Query(ctx, "u1", &jan)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(txs) != 1 || txs[0].Description != "January" {
		t.Fatalf("january rows: %+v", txs)
	}
}

func TestQueryRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		tx := sampleTx("Day", int64(day*100), core.Expense, core.NewDate(2025, 3, day))
		if _, err := repo.Insert(ctx, tx); err != nil {
			t.Fatalf("insert day %d: %v", day, err)
		}
	}

	txs, err := repo.QueryRecent(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d rows, want 3", len(txs))
	}
	if txs[0].Date.String() != "2025-03-05" || txs[2].Date.String() != "2025-03-03" {
		t.Fatalf("not date descending: %s .. %s", txs[0].Date, txs[2].Date)
	}
}

func TestQueryScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mine := sampleTx("Mine", 100, core.Expense, core.NewDate(2025, 3, 1))
	theirs := mine
	theirs.UserID = "u2"
	theirs.Description = "Theirs"

	if _, err := repo.Insert(ctx, mine); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Insert(ctx, theirs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	txs, err := repo.Query(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(txs) != 1 || txs[0].Description != "Mine" {
		t.Fatalf("u1 rows: %+v", txs)
	}
}
