package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	idxTransactionReference = "payments_transaction_reference_key"
	idxOnePendingPerOrder   = "payments_one_pending_per_order"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id                    uuid PRIMARY KEY,
		order_id              text NOT NULL,
		user_id               text NOT NULL,
		amount                numeric NOT NULL CHECK (amount > 0),
		currency              text NOT NULL,
		status                text NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
		method                text NOT NULL DEFAULT '',
		transaction_reference text NOT NULL,
		paid_at               timestamptz,
		created_at            timestamptz NOT NULL DEFAULT now(),
		updated_at            timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + idxTransactionReference + `
		ON payments (transaction_reference)`,
	// At most one pending attempt per order; concurrent initiations lose here.
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + idxOnePendingPerOrder + `
		ON payments (order_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS payments_order_created_idx
		ON payments (order_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS payments_pending_created_idx
		ON payments (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS gateway_events (
		id                bigserial PRIMARY KEY,
		event_type        text NOT NULL,
		reference         text NOT NULL,
		channel           text NOT NULL DEFAULT '',
		payload_json      jsonb NOT NULL,
		received_at       timestamptz NOT NULL DEFAULT now(),
		processed_at      timestamptz,
		processing_status text NOT NULL DEFAULT 'pending',
		error             text NOT NULL DEFAULT '',
		updated_at        timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS gateway_events_reference_idx ON gateway_events (reference)`,
}

// Migrate creates the ledger and journal tables when they are missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
