package advisor

import (
	"fmt"
	"strings"

	"budgetbuddy/internal/core"
)

func buildPrompt(summary core.Summary, byCategory []core.CategoryTotal) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Based on the numbers below, ")
	b.WriteString("give 3 short, actionable tips to improve this person's finances. ")
	b.WriteString("Be concrete and friendly, no preamble.\n\n")

	period := "This month"
	if summary.AllTime {
		period = "All time"
	}
	fmt.Fprintf(&b, "%s: income %.2f, expenses %.2f, savings %.2f (rate %.1f%%)\n",
		period, summary.Income.Float(), summary.Expenses.Float(), summary.Savings.Float(), summary.SavingsRate)

	if len(byCategory) > 0 {
		b.WriteString("Top spending categories:\n")
		for i, ct := range byCategory {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %.2f\n", ct.Name, ct.Amount.Float())
		}
	}
	return b.String()
}

// basicInsights is the deterministic fallback when no model is configured.
func basicInsights(summary core.Summary, byCategory []core.CategoryTotal) string {
	var tips []string

	switch {
	case summary.Income.Cents == 0 && summary.Expenses.Cents == 0:
		tips = append(tips, "No activity recorded yet. Import a CSV or connect a bank account to get started.")
	case summary.Savings.Cents < 0:
		tips = append(tips, "You are spending more than you earn. Review your largest expense categories first.")
	case summary.SavingsRate < 20:
		tips = append(tips, fmt.Sprintf("Your savings rate is %.1f%%. Aim for at least 20%% by trimming discretionary spending.", summary.SavingsRate))
	default:
		tips = append(tips, fmt.Sprintf("Solid savings rate of %.1f%%. Consider moving the surplus into savings or investments.", summary.SavingsRate))
	}

	if len(byCategory) > 0 {
		top := byCategory[0]
		tips = append(tips, fmt.Sprintf("Your biggest spending category is %s at %.2f. Check it for recurring charges you no longer need.", top.Name, top.Amount.Float()))
	}

	return strings.Join(tips, " ")
}
