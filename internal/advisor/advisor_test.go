package advisor

import (
	"context"
	"strings"
	"testing"

	"budgetbuddy/internal/core"
)

func TestBasicInsightsNoActivity(t *testing.T) {
	got := basicInsights(core.NewSummary(0, 0), nil)
	if !strings.Contains(got, "No activity") {
		t.Errorf("expected empty-state tip, got %q", got)
	}
}

func TestBasicInsightsOverspending(t *testing.T) {
	got := basicInsights(core.NewSummary(100_00, 250_00), nil)
	if !strings.Contains(got, "more than you earn") {
		t.Errorf("expected overspending tip, got %q", got)
	}
}

func TestBasicInsightsLowSavingsRate(t *testing.T) {
	got := basicInsights(core.NewSummary(1000_00, 900_00), nil)
	if !strings.Contains(got, "10.0%") {
		t.Errorf("expected rate in tip, got %q", got)
	}
}

func TestBasicInsightsTopCategory(t *testing.T) {
	byCategory := []core.CategoryTotal{
		{Name: "Food", Amount: core.Money{Cents: 300_00}},
		{Name: "Transport", Amount: core.Money{Cents: 50_00}},
	}
	got := basicInsights(core.NewSummary(1000_00, 350_00), byCategory)
	if !strings.Contains(got, "Food") {
		t.Errorf("expected top category mentioned, got %q", got)
	}
}

func TestBuildPromptMentionsPeriod(t *testing.T) {
	s := core.NewSummary(1000_00, 400_00)
	if got := buildPrompt(s, nil); !strings.Contains(got, "This month") {
		t.Errorf("expected monthly period, got %q", got)
	}

	s.AllTime = true
	if got := buildPrompt(s, nil); !strings.Contains(got, "All time") {
		t.Errorf("expected all-time period, got %q", got)
	}
}

func TestBuildPromptCapsCategories(t *testing.T) {
	byCategory := make([]core.CategoryTotal, 8)
	for i := range byCategory {
		byCategory[i] = core.CategoryTotal{Name: string(rune('A' + i)), Amount: core.Money{Cents: int64(100 - i)}}
	}
	got := buildPrompt(core.NewSummary(0, 0), byCategory)
	if strings.Contains(got, "- F:") {
		t.Errorf("expected at most 5 categories, got %q", got)
	}
}

func TestInsightsCachedPerUser(t *testing.T) {
	a, err := New(context.Background(), "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := a.SpendingInsights(context.Background(), "u1", core.NewSummary(1000_00, 400_00), nil)
	if err != nil {
		t.Fatalf("SpendingInsights: %v", err)
	}

	// The fallback is deterministic on its inputs, so a cache hit and a
	// recomputation are indistinguishable by text alone. Check the entry.
	if _, ok := a.cached("u1"); !ok {
		t.Fatal("expected cached entry for u1")
	}
	if _, ok := a.cached("u2"); ok {
		t.Fatal("did not expect cached entry for u2")
	}

	a.Invalidate("u1")
	if _, ok := a.cached("u1"); ok {
		t.Fatal("expected cache invalidated for u1")
	}

	second, err := a.SpendingInsights(context.Background(), "u1", core.NewSummary(1000_00, 400_00), nil)
	if err != nil {
		t.Fatalf("SpendingInsights: %v", err)
	}
	if first != second {
		t.Errorf("fallback not deterministic: %q vs %q", first, second)
	}
}
