package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS hosts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS event_types (
	id UUID PRIMARY KEY,
	host_id UUID NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	duration_minutes INT NOT NULL,
	buffer_before_minutes INT NOT NULL DEFAULT 0,
	buffer_after_minutes INT NOT NULL DEFAULT 0,
	minimum_notice_minutes INT NOT NULL DEFAULT 0,
	scheduling_window_days INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS availability_profiles (
	host_id UUID PRIMARY KEY REFERENCES hosts(id) ON DELETE CASCADE,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	weekly JSONB NOT NULL,
	buffer_between_minutes INT NOT NULL DEFAULT 0,
	minimum_notice_minutes INT NOT NULL DEFAULT 0,
	scheduling_window_days INT NOT NULL DEFAULT 30,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS date_overrides (
	host_id UUID NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
	override_date DATE NOT NULL,
	blocked BOOLEAN NOT NULL DEFAULT false,
	ranges JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (host_id, override_date)
);

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	host_id UUID NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
	event_type_id UUID NOT NULL REFERENCES event_types(id) ON DELETE CASCADE,
	booking_date DATE NOT NULL,
	start_minute INT NOT NULL,
	end_minute INT NOT NULL,
	status TEXT NOT NULL DEFAULT 'confirmed',
	attendee_name TEXT NOT NULL DEFAULT '',
	attendee_email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (start_minute >= 0 AND start_minute < end_minute AND end_minute <= 1440)
);

-- The double-booking guard: at most one confirmed booking may start at a
-- given minute for a host and date. Concurrent inserts race on this index,
-- not on application state.
CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_confirmed_slot
	ON bookings (host_id, booking_date, start_minute)
	WHERE status = 'confirmed';

CREATE INDEX IF NOT EXISTS idx_bookings_host_date
	ON bookings (host_id, booking_date, status);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
