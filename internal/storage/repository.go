// Package storage implements the ledger store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
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

// Insert implements ledger.Writer. The unique index on
// (user_id, amount_cents, description, transaction_date) turns a re-import
// into ledger.ErrDuplicate regardless of what the pre-check saw.
func (r *SQLiteRepository) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount_cents, transaction_type, category, description, transaction_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Amount.Cents, string(tx.Type), tx.Category, tx.Description, tx.Date.String())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ledger.ErrDuplicate
		}
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// HasDuplicate implements the pre-check side of the duplicate guard.
func (r *SQLiteRepository) HasDuplicate(ctx context.Context, key ledger.Key) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM transactions
		WHERE user_id = ? AND amount_cents = ? AND description = ? AND transaction_date = ?
		LIMIT 1`,
		key.UserID, key.AmountCents, key.Description, key.Date.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("duplicate lookup: %w", err)
	}
	return true, nil
}

// Query implements ledger.Reader with the half-open [start, end) range.
func (r *SQLiteRepository) Query(ctx context.Context, userID string, dr *ledger.DateRange) ([]core.Transaction, error) {
	query := `
		SELECT id, user_id, amount_cents, transaction_type, category, description, transaction_date
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}
	if dr != nil {
		query += ` AND transaction_date >= ? AND transaction_date < ?`
		args = append(args, dr.Start.String(), dr.End.String())
	}
	query += ` ORDER BY transaction_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r *SQLiteRepository) QueryRecent(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, transaction_type, category, description, transaction_date
		FROM transactions
		WHERE user_id = ?
		ORDER BY transaction_date DESC, id DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			typ     string
			dateStr string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount.Cents, &typ, &tx.Category, &tx.Description, &dateStr); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(typ)
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		tx.Date = date
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// isUniqueViolation matches the modernc sqlite error text for constraint
// failures on the dedup index.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
