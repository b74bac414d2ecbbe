package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"budgetbuddy/internal/core"
)

// Aggregator computes balances and period summaries from fresh store reads.
// It keeps no state between calls and never mutates the store.
type Aggregator struct {
	store Reader
}

func NewAggregator(store Reader) *Aggregator {
	return &Aggregator{store: store}
}

// TotalBalance is the signed sum over all of a user's transactions:
// income adds, expense subtracts, anything else contributes zero. A store
// failure is reported as an error, not masked as a zero balance.
func (a *Aggregator) TotalBalance(ctx context.Context, userID string) (core.Money, error) {
	txs, err := a.store.Query(ctx, userID, nil)
	if err != nil {
		return core.Money{}, fmt.Errorf("query transactions: %w", err)
	}

	var balance int64
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			balance += tx.Amount.Cents
		case core.Expense:
			balance -= tx.Amount.Cents
		}
	}
	return core.Money{Cents: balance}, nil
}

// MonthlySummary aggregates income and expenses over the half-open month
// range. When the month holds no directional transactions at all, it falls
// back to the all-time aggregate and marks the result accordingly; callers
// can tell a fallback from a genuine month of data.
func (a *Aggregator) MonthlySummary(ctx context.Context, userID string, year, month int) (core.Summary, error) {
	r := MonthRange(year, month)
	txs, err := a.store.Query(ctx, userID, &r)
	if err != nil {
		return core.Summary{}, fmt.Errorf("query month %d-%02d: %w", year, month, err)
	}

	income, expenses := sumDirectional(txs)
	if income == 0 && expenses == 0 {
		slog.DebugContext(ctx, "No transactions in month, falling back to all-time",
			"user_id", userID, "year", year, "month", month)
		all, err := a.store.Query(ctx, userID, nil)
		if err != nil {
			return core.Summary{}, fmt.Errorf("query all-time fallback: %w", err)
		}
		income, expenses = sumDirectional(all)
		s := core.NewSummary(income, expenses)
		s.AllTime = true
		return s, nil
	}

	return core.NewSummary(income, expenses), nil
}

// ExpensesByCategory totals a user's expense transactions per category,
// largest first. Only the aggregate leaves this package; the advisor never
// sees raw ledger rows.
func (a *Aggregator) ExpensesByCategory(ctx context.Context, userID string) ([]core.CategoryTotal, error) {
	txs, err := a.store.Query(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	byName := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		byName[tx.Category] += tx.Amount.Cents
	}

	totals := make([]core.CategoryTotal, 0, len(byName))
	for name, cents := range byName {
		totals = append(totals, core.CategoryTotal{Name: name, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Amount.Cents != totals[j].Amount.Cents {
			return totals[i].Amount.Cents > totals[j].Amount.Cents
		}
		return totals[i].Name < totals[j].Name
	})
	return totals, nil
}

func sumDirectional(txs []core.Transaction) (incomeCents, expenseCents int64) {
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			incomeCents += tx.Amount.Cents
		case core.Expense:
			expenseCents += tx.Amount.Cents
		}
	}
	return incomeCents, expenseCents
}
