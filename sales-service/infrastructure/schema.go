package infrastructure

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var salesSchema = []string{
	`CREATE TABLE IF NOT EXISTS buyers (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		phone      TEXT NOT NULL DEFAULT '',
		documents  JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id             UUID PRIMARY KEY,
		brand          TEXT NOT NULL,
		model          TEXT NOT NULL,
		year           INT NOT NULL,
		color          TEXT NOT NULL DEFAULT '',
		price_amount   BIGINT NOT NULL,
		price_currency TEXT NOT NULL,
		status         TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id               UUID PRIMARY KEY,
		vehicle_id       UUID NOT NULL,
		buyer_id         UUID NOT NULL,
		status           TEXT NOT NULL,
		payment_id       UUID NOT NULL,
		payment_amount   BIGINT NOT NULL,
		payment_currency TEXT NOT NULL,
		payment_method   TEXT NOT NULL,
		payment_status   TEXT NOT NULL,
		transaction_id   TEXT,
		payment_details  JSONB NOT NULL DEFAULT '{}',
		payment_date     TIMESTAMPTZ,
		failure_reason   TEXT NOT NULL DEFAULT '',
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sales_transaction_id_idx ON sales (transaction_id) WHERE transaction_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS sale_events (
		id         UUID PRIMARY KEY,
		sale_id    UUID NOT NULL REFERENCES sales (id),
		position   INT NOT NULL,
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL DEFAULT '',
		timestamp  TIMESTAMPTZ NOT NULL,
		UNIQUE (sale_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS sale_sagas (
		id                UUID PRIMARY KEY,
		sale_id           UUID NOT NULL UNIQUE,
		vehicle_id        UUID NOT NULL,
		buyer_id          UUID NOT NULL,
		price_amount      BIGINT NOT NULL,
		price_currency    TEXT NOT NULL,
		payment_method    TEXT NOT NULL,
		payment_details   JSONB,
		status            TEXT NOT NULL,
		current_step      INT NOT NULL,
		next_step         INT NOT NULL,
		steps             JSONB NOT NULL,
		completed_steps   JSONB NOT NULL,
		failed_steps      JSONB NOT NULL,
		last_error        TEXT NOT NULL DEFAULT '',
		compensation_data JSONB NOT NULL,
		retry_count       INT NOT NULL DEFAULT 0,
		max_retries       INT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sale_sagas_status_idx ON sale_sagas (status)`,
}

// InitSchema creates the tables used by the sales service
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	for _, statement := range salesSchema {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(err, "failed to create sales schema")
		}
	}
	return nil
}
