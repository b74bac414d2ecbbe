// Package ingest turns semi-structured tabular input into canonical
// transactions and imports them with duplicate suppression.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"budgetbuddy/internal/core"
)

// DatePolicy decides what happens to a row whose date cell does not parse as
// YYYY-MM-DD.
type DatePolicy string

const (
	// DefaultToNow substitutes the current date, matching the historical
	// "never fail the row over date" behavior.
	DefaultToNow DatePolicy = "default_to_now"
	// RejectRow fails the row instead of silently coercing the date.
	RejectRow DatePolicy = "reject"
)

// MissingColumnsError is fatal for the whole batch: required canonical
// columns could not be resolved from the input header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Normalizer converts raw rows into canonical transaction candidates.
type Normalizer struct {
	datePolicy DatePolicy
	now        func() time.Time
}

func NewNormalizer(policy DatePolicy) *Normalizer {
	if policy == "" {
		policy = DefaultToNow
	}
	return &Normalizer{datePolicy: policy, now: time.Now}
}

// Row pairs a normalized candidate with its position in the source. Index is
// 0-based over data rows; Line is the human-facing source line number
// (header row counted, 1-based).
type Row struct {
	Index int
	Line  int
	Tx    core.Transaction
	Err   error
}

// Rows streams normalized candidates from a CSV input: single pass, source
// order, not restartable. Row-level parse failures come back on the Row, so
// one bad row never aborts the batch.
type Rows struct {
	r    *csv.Reader
	n    *Normalizer
	cols Columns
	next int
}

// FromCSV reads the header, resolves the alias table against it, and returns
// a streaming row source. A MissingColumnsError here is batch-fatal.
func (n *Normalizer) FromCSV(r io.Reader) (*Rows, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	return &Rows{r: cr, n: n, cols: cols}, nil
}

// Next returns the next row, or ok=false at end of input.
func (rs *Rows) Next() (Row, bool) {
	record, err := rs.r.Read()
	if err == io.EOF {
		return Row{}, false
	}

	row := Row{Index: rs.next, Line: rs.next + 2}
	rs.next++
	if err != nil {
		row.Err = err
		return row, true
	}

	row.Tx, row.Err = rs.n.normalize(rs.cols, record)
	return row, true
}

// normalize applies the canonicalization rules to one record: abs(amount),
// type from column or sign, date policy, category/description defaults. The
// input's own user_id is read but discarded; the importer stamps the
// authenticated caller's identity before the duplicate guard runs.
func (n *Normalizer) normalize(cols Columns, record []string) (core.Transaction, error) {
	cell := func(f Field) (string, bool) {
		i, ok := cols[f]
		if !ok || i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	rawAmount, _ := cell(FieldAmount)
	cents, negative, err := core.ParseSignedCents(rawAmount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", rawAmount, err)
	}

	tx := core.Transaction{
		Amount:      core.Money{Cents: cents},
		Category:    core.DefaultCategory,
		Description: core.DefaultDescription,
	}

	if raw, ok := cell(FieldType); ok && strings.TrimSpace(raw) != "" {
		tx.Type = core.NormalizeType(raw)
	} else {
		tx.Type = core.InferType(!negative && cents > 0)
	}

	if raw, ok := cell(FieldDescription); ok && strings.TrimSpace(raw) != "" {
		tx.Description = strings.TrimSpace(raw)
	}
	if raw, ok := cell(FieldCategory); ok && strings.TrimSpace(raw) != "" {
		tx.Category = strings.TrimSpace(raw)
	}

	rawDate, _ := cell(FieldDate)
	date, err := core.ParseDate(rawDate)
	if err != nil {
		if n.datePolicy == RejectRow {
			return core.Transaction{}, fmt.Errorf("parse date %q: %w", rawDate, err)
		}
		date = core.DateOf(n.now())
	}
	tx.Date = date

	return tx, nil
}
