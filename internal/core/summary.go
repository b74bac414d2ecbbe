package core

// Summary holds the income/expense aggregate for one period.
type Summary struct {
	Income   Money
	Expenses Money
	Savings  Money
	// SavingsRate is savings/income expressed in percent, 0 when income is 0.
	SavingsRate float64
	// AllTime marks that the requested month was empty and the figures are
	// the all-time fallback instead.
	AllTime bool
}

// CategoryTotal is an expense amount aggregated by category name.
type CategoryTotal struct {
	Name   string
	Amount Money
}

// NewSummary derives savings and the savings rate from income and expense
// cents.
func NewSummary(incomeCents, expenseCents int64) Summary {
	s := Summary{
		Income:   Money{Cents: incomeCents},
		Expenses: Money{Cents: expenseCents},
		Savings:  Money{Cents: incomeCents - expenseCents},
	}
	if incomeCents > 0 {
		s.SavingsRate = float64(incomeCents-expenseCents) / float64(incomeCents) * 100
	}
	return s
}
