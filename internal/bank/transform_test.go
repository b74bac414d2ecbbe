package bank

import (
	"testing"

	"budgetbuddy/internal/core"
)

func TestCandidateSignFlip(t *testing.T) {
	// Provider positive = money out = expense.
	out, ok := Candidate(ProviderTransaction{Name: "Coffee", Amount: 4.5, Date: "2025-03-01"})
	if !ok {
		t.Fatal("row dropped")
	}
	if out.Type != core.Expense || out.Amount.Cents != 450 {
		t.Fatalf("money out: %+v", out)
	}

	in, ok := Candidate(ProviderTransaction{Name: "Salary", Amount: -2000, Date: "2025-03-01"})
	if !ok {
		t.Fatal("row dropped")
	}
	if in.Type != core.Income || in.Amount.Cents != 200000 {
		t.Fatalf("money in: %+v", in)
	}
}

func TestCandidatePendingSkipped(t *testing.T) {
	if _, ok := Candidate(ProviderTransaction{Name: "Hold", Amount: 10, Date: "2025-03-01", Pending: true}); ok {
		t.Fatal("pending rows must be dropped, not stored")
	}
}

func TestCandidateCategoryDefault(t *testing.T) {
	tx, _ := Candidate(ProviderTransaction{Name: "X", Amount: 1, Date: "2025-03-01"})
	if tx.Category != "Other" {
		t.Fatalf("category = %q, want Other", tx.Category)
	}

	tx, _ = Candidate(ProviderTransaction{Name: "X", Amount: 1, Date: "2025-03-01", Category: []string{"Food and Drink", "Coffee"}})
	if tx.Category != "Food and Drink" {
		t.Fatalf("category = %q, want first element", tx.Category)
	}
}

func TestCandidateBadDateDropped(t *testing.T) {
	if _, ok := Candidate(ProviderTransaction{Name: "X", Amount: 1, Date: "03/01/2025"}); ok {
		t.Fatal("unparsable provider date must drop the row")
	}
}

func TestCandidatesPreserveOrder(t *testing.T) {
	txs := Candidates([]ProviderTransaction{
		{Name: "A", Amount: 1, Date: "2025-03-01"},
		{Name: "Hold", Amount: 2, Date: "2025-03-02", Pending: true},
		{Name: "B", Amount: 3, Date: "2025-03-03"},
	})
	if len(txs) != 2 || txs[0].Description != "A" || txs[1].Description != "B" {
		t.Fatalf("candidates = %+v", txs)
	}
}
