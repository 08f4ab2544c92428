package storage

import (
	"context"

	"github.com/md-rashed-zaman/clinicbook/libs/db"
)

// slotHolderIndex enforces at most one live appointment per slot.
const slotHolderIndex = "appointments_slot_holder_uq"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS time_slots (
		id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		provider_id  TEXT NOT NULL,
		day          SMALLINT NOT NULL CHECK (day BETWEEN 1 AND 7),
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		is_available BOOLEAN NOT NULL DEFAULT true,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS time_slots_provider_idx ON time_slots (provider_id, day, start_time)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		provider_id TEXT NOT NULL,
		patient_id  TEXT NOT NULL,
		slot_id     TEXT REFERENCES time_slots (id) ON DELETE SET NULL,
		appt_date   DATE NOT NULL,
		appt_time   TEXT NOT NULL,
		status      TEXT NOT NULL CHECK (status IN ('SCHEDULED', 'CONFIRMED', 'COMPLETED', 'CANCELLED')),
		reason      TEXT,
		notes       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + slotHolderIndex + `
		ON appointments (slot_id) WHERE slot_id IS NOT NULL AND status <> 'CANCELLED'`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, appt_date DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             BIGSERIAL PRIMARY KEY,
		event_id       TEXT NOT NULL DEFAULT gen_random_uuid()::text,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        JSONB NOT NULL,
		traceparent    TEXT NOT NULL DEFAULT '',
		tracestate     TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_unpublished_idx ON outbox_events (id) WHERE published_at IS NULL`,
}

// Migrate creates the booking schema if it does not exist yet.
func Migrate(ctx context.Context, pool *db.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
