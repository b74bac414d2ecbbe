package bank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ingest"
)

// syncWindow is how far back a sync pull reaches.
const syncWindow = 30 * 24 * time.Hour

// Syncer pulls provider transactions and funnels them through the same
// duplicate-guarded import path as CSV rows.
type Syncer struct {
	client   *Client
	importer *ingest.Importer
	now      func() time.Time
}

func NewSyncer(client *Client, importer *ingest.Importer) *Syncer {
	return &Syncer{client: client, importer: importer, now: time.Now}
}

// Sync fetches the last 30 days of transactions for the access token and
// imports them for the authenticated user. Re-running a sync is idempotent:
// previously imported rows come back as skipped.
func (s *Syncer) Sync(ctx context.Context, user core.AuthenticatedUser, accessToken string) (ingest.Result, error) {
	end := s.now()
	start := end.Add(-syncWindow)

	provider, err := s.client.GetTransactions(ctx, accessToken, core.DateOf(start), core.DateOf(end))
	if err != nil {
		return ingest.Result{}, fmt.Errorf("fetch provider transactions: %w", err)
	}

	candidates := Candidates(provider)
	res, err := s.importer.ImportTransactions(ctx, user, candidates)
	if err != nil {
		return res, fmt.Errorf("import provider transactions: %w", err)
	}

	slog.InfoContext(ctx, "Bank sync finished",
		"user_id", user.ID,
		"fetched", len(provider),
		"pending_dropped", len(provider)-len(candidates),
		"imported", res.Imported,
		"skipped", res.Skipped)
	return res, nil
}
