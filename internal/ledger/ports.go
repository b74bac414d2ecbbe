// Package ledger defines the store contract for the transaction table and
// the read-only aggregation on top of it.
package ledger

import (
	"context"
	"errors"

	"budgetbuddy/internal/core"
)

// ErrDuplicate is returned by Writer.Insert when the storage-level unique
// constraint on the duplicate key fires. It is the authoritative duplicate
// signal; HasDuplicate is only an early-exit optimization.
var ErrDuplicate = errors.New("duplicate transaction")

// Key is the tuple that identifies a re-imported row. Category and type are
// deliberately excluded: re-categorizing the same event is not a new
// transaction.
type Key struct {
	UserID      string
	AmountCents int64
	Description string
	Date        core.Date
}

// KeyOf extracts the duplicate key from a canonical transaction.
func KeyOf(tx core.Transaction) Key {
	return Key{
		UserID:      tx.UserID,
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		Date:        tx.Date,
	}
}

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls inside the half-open interval.
func (r DateRange) Contains(d core.Date) bool {
	return !d.Before(r.Start.Time) && d.Before(r.End.Time)
}

// MonthRange returns [year-month-01, nextMonth-01), rolling December into
// January of the following year.
func MonthRange(year, month int) DateRange {
	nextYear, nextMonth := year, month+1
	if month == 12 {
		nextYear, nextMonth = year+1, 1
	}
	return DateRange{
		Start: core.NewDate(year, month, 1),
		End:   core.NewDate(nextYear, nextMonth, 1),
	}
}

// Writer is the append-only write side of the ledger store.
type Writer interface {
	// Insert stores a transaction and returns its assigned id. Returns
	// ErrDuplicate when the unique constraint on the duplicate key fires.
	Insert(ctx context.Context, tx core.Transaction) (int64, error)

	// HasDuplicate reports whether a transaction with the same key already
	// exists. Pure read, no side effects.
	HasDuplicate(ctx context.Context, key Key) (bool, error)
}

// Reader is the query side consumed by aggregation and listings.
type Reader interface {
	// Query returns a user's transactions ordered by date, optionally
	// restricted to a half-open range.
	Query(ctx context.Context, userID string, r *DateRange) ([]core.Transaction, error)

	// QueryRecent returns up to limit transactions ordered by date
	// descending.
	QueryRecent(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
}

// Store combines both sides; the sqlite and memory implementations satisfy
// it.
type Store interface {
	Writer
	Reader
}
