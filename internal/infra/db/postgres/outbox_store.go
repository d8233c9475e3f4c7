package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "stayride/internal/app/outbox"
	infraoutbox "stayride/internal/infra/outbox"
)

// OutboxStore inserts events in the caller's transaction; the relay claims
// them with SKIP LOCKED so several relays can share the table.
type OutboxStore struct {
	Pool *pgxpool.Pool
}

func (s OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers := record.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err := db(ctx, s.Pool).Exec(ctx, `
		INSERT INTO outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, headers, infraoutbox.StateNew)
	return err
}

func (s OutboxStore) Flush(context.Context) error {
	return nil
}

func (s OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE outbox SET state = $1, claimed_by = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM outbox
			WHERE state IN ($3, $4) AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, state, attempts, next_attempt_at, claimed_by`,
		infraoutbox.StateClaimed, workerID, infraoutbox.StateNew, infraoutbox.StateFailed)
	var m infraoutbox.Message
	err := row.Scan(&m.ID, &m.Name, &m.Payload, &m.OccurredAt, &m.Aggregate, &m.Headers, &m.State, &m.Attempts, &m.NextAttempt, &m.ClaimedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.OccurredAt = m.OccurredAt.UTC()
	return &m, nil
}

func (s OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE outbox SET state = $2, sent_at = now() WHERE id = $1`, id, infraoutbox.StateSent)
	return err
}

func (s OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE outbox SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
		WHERE id = $1`, id, infraoutbox.StateFailed, next, errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = OutboxStore{}
	_ infraoutbox.Store = OutboxStore{}
)
