package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// querier is what repositories need from either the pool or a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// db returns the transaction bound to ctx, or the pool.
func db(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

type Factory struct {
	Pool *pgxpool.Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly, pool: f.Pool}, nil
}

// Unit binds one pgx transaction; repositories find it through InjectContext.
type Unit struct {
	uow.Compensations

	tx       pgx.Tx
	pool     *pgxpool.Pool
	readOnly bool
}

func (u *Unit) Listings() domainlistings.ListingRepository { return ListingRepository{Pool: u.pool} }

func (u *Unit) Availability() domainavailability.Repository { return CalendarRepository{Pool: u.pool} }

func (u *Unit) Bookings() domainbooking.Repository { return BookingRepository{Pool: u.pool} }

func (u *Unit) Modifications() domainmodification.Repository {
	return ModificationRepository{Pool: u.pool}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.readOnly {
		u.Discard()
		return u.tx.Rollback(ctx)
	}
	if err := u.tx.Commit(ctx); err != nil {
		u.Compensate(ctx)
		return translate(err)
	}
	u.Discard()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.Compensate(ctx)
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}
