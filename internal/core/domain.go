package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	// Defaults applied by normalization when the source row has no value.
	DefaultCategory    = "Uncategorized"
	DefaultDescription = "Unknown"
)

type (
	// TransactionType carries the direction of a transaction. Values outside
	// {income, expense} are stored verbatim and contribute to no aggregate.
	TransactionType string

	// Date is a calendar date; time-of-day is not meaningful and is always
	// normalized to midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a canonical ledger record. Amount is a non-negative
	// magnitude; direction lives in Type.
	Transaction struct {
		ID          int64
		UserID      string
		Amount      Money
		Type        TransactionType
		Category    string
		Description string
		Date        Date
	}

	// AuthenticatedUser is the caller identity established by the identity
	// provider. It is passed explicitly into every ingestion and aggregation
	// call; user-supplied identifiers are never trusted over it.
	AuthenticatedUser struct {
		ID string
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyUserID    = errors.New("empty user id")
	ErrNegativeAmount = errors.New("negative amount")
	ErrZeroDate       = errors.New("date cannot be zero")
)

// NormalizeType lowercases and trims a raw type token. Unknown tokens are
// kept as-is rather than rejected; aggregation ignores them.
func NormalizeType(raw string) TransactionType {
	return TransactionType(strings.ToLower(strings.TrimSpace(raw)))
}

// InferType derives the direction from a signed raw amount when the source
// has no type column: strictly positive means income, everything else
// (including zero) expense.
func InferType(positive bool) TransactionType {
	if positive {
		return Income
	}
	return Expense
}

// Directional reports whether the type participates in balance arithmetic.
func (t TransactionType) Directional() bool {
	return t == Income || t == Expense
}

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.UTC().Year(), int(t.UTC().Month()), t.UTC().Day())
}

// ParseDate parses the canonical YYYY-MM-DD wire format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the canonical YYYY-MM-DD form used for storage and for the
// duplicate key.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	return tx.Date.Validate()
}
