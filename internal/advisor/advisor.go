// Package advisor generates spending-insight text. It only ever sees
// aggregate numbers from the ledger, never raw transaction rows.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"budgetbuddy/internal/core"
)

const (
	DefaultModel = "gemini-2.0-flash"

	// Insights are cached per user; aggregation stays uncached, only the
	// generated text is.
	cacheTTL = 15 * time.Minute
)

type Advisor struct {
	client *genai.Client
	model  string

	mu    sync.Mutex
	cache map[string]cachedInsight
}

type cachedInsight struct {
	text      string
	expiresAt time.Time
}

// New creates an advisor. With an empty API key it runs in basic mode and
// produces deterministic non-LLM insights.
func New(ctx context.Context, apiKey, model string) (*Advisor, error) {
	a := &Advisor{model: model, cache: make(map[string]cachedInsight)}
	if a.model == "" {
		a.model = DefaultModel
	}
	if apiKey == "" {
		return a, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	a.client = client
	return a, nil
}

// SpendingInsights returns advisor text for the user's current aggregates.
func (a *Advisor) SpendingInsights(ctx context.Context, userID string, summary core.Summary, byCategory []core.CategoryTotal) (string, error) {
	if text, ok := a.cached(userID); ok {
		return text, nil
	}

	text, err := a.generate(ctx, summary, byCategory)
	if err != nil {
		return "", err
	}

	a.store(userID, text)
	return text, nil
}

func (a *Advisor) generate(ctx context.Context, summary core.Summary, byCategory []core.CategoryTotal) (string, error) {
	if a.client == nil {
		return basicInsights(summary, byCategory), nil
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(summary, byCategory)}},
		},
	}
	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate insights: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		slog.WarnContext(ctx, "Empty model response, using basic insights", "model", a.model)
		return basicInsights(summary, byCategory), nil
	}
	return text, nil
}

func (a *Advisor) cached(userID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(a.cache, userID)
		return "", false
	}
	return entry.text, true
}

func (a *Advisor) store(userID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[userID] = cachedInsight{text: text, expiresAt: time.Now().Add(cacheTTL)}
}

// Invalidate drops the cached insight for a user, e.g. after an import
// changed the aggregates.
func (a *Advisor) Invalidate(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cache, userID)
}
