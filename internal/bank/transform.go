package bank

import (
	"budgetbuddy/internal/core"
)

const defaultProviderCategory = "Other"

// Candidate converts one provider row into a canonical transaction. Pending
// rows are dropped entirely, never stored as placeholders. The provider's
// sign convention (positive = money out) flips into expense/income.
func Candidate(p ProviderTransaction) (core.Transaction, bool) {
	if p.Pending {
		return core.Transaction{}, false
	}

	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Transaction{}, false
	}

	typ := core.Income
	if p.Amount > 0 {
		typ = core.Expense
	}

	category := defaultProviderCategory
	if len(p.Category) > 0 && p.Category[0] != "" {
		category = p.Category[0]
	}

	description := p.Name
	if description == "" {
		description = core.DefaultDescription
	}

	return core.Transaction{
		Amount:      core.Money{Cents: core.CentsFromFloat(p.Amount)},
		Type:        typ,
		Category:    category,
		Description: description,
		Date:        date,
	}, true
}

// Candidates filters and converts a provider batch, preserving order.
func Candidates(ps []ProviderTransaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(ps))
	for _, p := range ps {
		if tx, ok := Candidate(p); ok {
			out = append(out, tx)
		}
	}
	return out
}
