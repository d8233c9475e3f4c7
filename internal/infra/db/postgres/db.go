package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pendingPerBookingIndex = "uniq_pending_per_booking"
	blocksNoOverlap        = "calendar_blocks_no_overlap"

	sqlstateUniqueViolation    = "23505"
	sqlstateExclusionViolation = "23P01"
)

// Connect opens a pool and waits for the first ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Schema is applied by Migrate. Overlapping calendar blocks are refused by the
// exclusion constraint, and the partial unique index admits one pending
// change request per booking.
const Schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS listings (
	id                  TEXT PRIMARY KEY,
	host_id             TEXT NOT NULL,
	title               TEXT NOT NULL,
	service_type        TEXT NOT NULL,
	currency            TEXT NOT NULL,
	pricing             JSONB NOT NULL,
	min_units           INT NOT NULL,
	max_units           INT NOT NULL,
	max_occupancy       INT NOT NULL,
	cancellation_policy TEXT NOT NULL DEFAULT '',
	state               TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	version             BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS calendars (
	listing_id TEXT PRIMARY KEY,
	version    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS calendar_blocks (
	listing_id TEXT NOT NULL REFERENCES calendars (listing_id) ON DELETE CASCADE,
	reference  TEXT NOT NULL,
	reason     TEXT NOT NULL,
	period     TSTZRANGE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (listing_id, reference),
	CONSTRAINT calendar_blocks_no_overlap EXCLUDE USING gist (listing_id WITH =, period WITH &&)
);

CREATE TABLE IF NOT EXISTS bookings (
	id                TEXT PRIMARY KEY,
	listing_id        TEXT NOT NULL,
	service_type      TEXT NOT NULL,
	guest_id          TEXT NOT NULL,
	host_id           TEXT NOT NULL,
	check_in          TIMESTAMPTZ NOT NULL,
	check_out         TIMESTAMPTZ NOT NULL,
	guests            INT NOT NULL,
	status            TEXT NOT NULL,
	price             JSONB NOT NULL,
	options           JSONB NOT NULL,
	payment_method    TEXT NOT NULL DEFAULT '',
	payment_reference TEXT NOT NULL DEFAULT '',
	policy            TEXT NOT NULL DEFAULT '',
	cancellation      JSONB,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	version           BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS bookings_listing_idx ON bookings (listing_id, created_at);
CREATE INDEX IF NOT EXISTS bookings_status_idx ON bookings (status);

CREATE TABLE IF NOT EXISTS modification_requests (
	id                     TEXT PRIMARY KEY,
	booking_id             TEXT NOT NULL,
	listing_id             TEXT NOT NULL,
	host_id                TEXT NOT NULL,
	requester_id           TEXT NOT NULL,
	original               JSONB NOT NULL,
	requested              JSONB NOT NULL,
	requested_price        JSONB NOT NULL,
	price_delta            BIGINT NOT NULL,
	currency               TEXT NOT NULL,
	status                 TEXT NOT NULL,
	guest_message          TEXT NOT NULL DEFAULT '',
	owner_response_message TEXT NOT NULL DEFAULT '',
	surplus_reference      TEXT NOT NULL DEFAULT '',
	refund_reference       TEXT NOT NULL DEFAULT '',
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL,
	responded_at           TIMESTAMPTZ,
	version                BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS modification_requests_booking_idx ON modification_requests (booking_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_pending_per_booking ON modification_requests (booking_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS outbox (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	payload         BYTEA NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL,
	aggregate       TEXT NOT NULL,
	headers         JSONB NOT NULL DEFAULT '{}',
	state           TEXT NOT NULL,
	attempts        INT NOT NULL DEFAULT 0,
	next_attempt_at TIMESTAMPTZ NOT NULL,
	claimed_by      TEXT NOT NULL DEFAULT '',
	claimed_at      TIMESTAMPTZ,
	sent_at         TIMESTAMPTZ,
	last_error      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS outbox_due_idx ON outbox (state, next_attempt_at);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}

// violates reports whether err is a Postgres error with the given SQLSTATE,
// optionally raised by the named constraint.
func violates(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
