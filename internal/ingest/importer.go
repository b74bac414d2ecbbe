package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
)

// maxReportedErrors caps how many row errors are surfaced to the caller.
const maxReportedErrors = 5

// Result is the structured outcome of one import batch. Partial success is
// normal: duplicates and bad rows count as skipped, and only true errors
// appear in Errors.
type Result struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors"`
}

// newResult starts a batch result with a non-nil error list so a clean run
// marshals as an empty JSON array, not null.
func newResult() Result {
	return Result{Errors: []string{}}
}

func (r *Result) recordError(line int, err error) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", line, err))
	}
}

// recordItemError reports a failure in a batch with no header row, such as a
// bank sync pull, numbered from 1.
func (r *Result) recordItemError(n int, err error) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("Transaction %d: %v", n, err))
	}
}

// Importer drives candidates through the duplicate guard into the ledger
// store, one row at a time, in source order.
type Importer struct {
	store ledger.Writer
	norm  *Normalizer
}

func NewImporter(store ledger.Writer, norm *Normalizer) *Importer {
	return &Importer{store: store, norm: norm}
}

// ImportCSV runs a whole CSV batch for the authenticated user. A header
// resolution failure aborts before any row is processed; everything after
// that is row-level. Cancellation is honored between rows, never mid-row.
func (imp *Importer) ImportCSV(ctx context.Context, user core.AuthenticatedUser, r io.Reader) (Result, error) {
	rows, err := imp.norm.FromCSV(r)
	if err != nil {
		return Result{Errors: []string{err.Error()}}, err
	}

	res := newResult()
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Total++
		if row.Err != nil {
			res.Skipped++
			res.recordError(row.Line, row.Err)
			continue
		}

		tx := row.Tx
		tx.UserID = user.ID // always the caller's identity, never the file's

		switch imported, err := imp.importOne(ctx, tx); {
		case err != nil:
			res.Skipped++
			res.recordError(row.Line, err)
		case imported:
			res.Imported++
		default:
			res.Skipped++
			slog.DebugContext(ctx, "Duplicate row skipped",
				"user_id", tx.UserID, "description", tx.Description, "date", tx.Date.String())
		}
	}

	res.Success = true
	slog.InfoContext(ctx, "Import batch finished",
		"user_id", user.ID,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"total", res.Total)
	return res, nil
}

// ImportTransactions runs already-normalized candidates (e.g. a bank-sync
// batch) through the same guard-then-insert path as CSV rows.
func (imp *Importer) ImportTransactions(ctx context.Context, user core.AuthenticatedUser, txs []core.Transaction) (Result, error) {
	res := newResult()
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Total++
		tx.UserID = user.ID

		switch imported, err := imp.importOne(ctx, tx); {
		case err != nil:
			res.Skipped++
			res.recordItemError(i+1, err)
		case imported:
			res.Imported++
		default:
			res.Skipped++
		}
	}
	res.Success = true
	return res, nil
}

// importOne is the guard-then-insert step for a single candidate. The
// pre-check is an early exit; the unique constraint at insert time is the
// authoritative duplicate signal, so a race between concurrent batches still
// resolves to one stored row.
func (imp *Importer) importOne(ctx context.Context, tx core.Transaction) (bool, error) {
	dup, err := imp.store.HasDuplicate(ctx, ledger.KeyOf(tx))
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return false, nil
	}

	if _, err := imp.store.Insert(ctx, tx); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("insert: %w", err)
	}
	return true, nil
}
