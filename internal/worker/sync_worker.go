// Package worker runs background bank sync jobs delivered over AMQP.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ingest"
)

// BankSyncer is the slice of the sync pipeline the worker needs.
type BankSyncer interface {
	Sync(ctx context.Context, user core.AuthenticatedUser, accessToken string) (ingest.Result, error)
}

// SyncWorker consumes bank sync messages and runs each sync to completion.
// A failed sync is returned to the queue for redelivery.
type SyncWorker struct {
	syncer BankSyncer
}

func NewSyncWorker(syncer BankSyncer) *SyncWorker {
	return &SyncWorker{syncer: syncer}
}

// HandleSyncMessage processes a single bank sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BankSyncMessage) error {
	slog.InfoContext(ctx, "Processing bank sync job",
		"job_id", msg.JobID,
		"user_id", msg.UserID)

	if msg.UserID == "" {
		// A malformed job can never succeed, do not requeue it forever.
		return nil
	}

	user := core.AuthenticatedUser{ID: msg.UserID}
	res, err := w.syncer.Sync(ctx, user, msg.AccessToken)
	if err != nil {
		return fmt.Errorf("sync user %s: %w", msg.UserID, err)
	}

	slog.InfoContext(ctx, "Bank sync job finished",
		"job_id", msg.JobID,
		"user_id", msg.UserID,
		"imported", res.Imported,
		"skipped", res.Skipped)

	return nil
}
