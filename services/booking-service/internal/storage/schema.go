package storage

import (
	"context"

	"github.com/md-rashed-zaman/barberbook/libs/db"
)

// The CHECK keeps is_confirmed and status from drifting apart.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS appointments (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL CHECK (name <> ''),
	address      TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL CHECK (phone <> ''),
	email        TEXT NOT NULL DEFAULT '',
	service      TEXT NOT NULL DEFAULT 'Haircut',
	status       TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'Confirmed')),
	is_confirmed BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT appointments_confirmed_matches_status CHECK (is_confirmed = (status = 'Confirmed'))
);

CREATE INDEX IF NOT EXISTS appointments_created_at_idx ON appointments (created_at DESC);
CREATE INDEX IF NOT EXISTS appointments_status_created_at_idx ON appointments (status, created_at DESC);

CREATE TABLE IF NOT EXISTS outbox_events (
	id             BIGSERIAL PRIMARY KEY,
	event_id       TEXT NOT NULL UNIQUE,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	traceparent    TEXT NOT NULL DEFAULT '',
	tracestate     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_events_unpublished_idx ON outbox_events (id) WHERE published_at IS NULL;
`

// EnsureSchema creates the tables on first start. It is idempotent.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
