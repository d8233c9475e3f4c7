package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainmodification "stayride/internal/domain/modification"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/rules"
	"stayride/internal/infra/storage/memory"
)

var day0 = time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

func nights(from, n int) daterange.DateRange {
	return daterange.Must(day0.AddDate(0, 0, from), day0.AddDate(0, 0, from+n))
}

func begin(t *testing.T, f memory.Factory, opts uow.TxOptions) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), opts)
	require.NoError(t, err)
	return unit
}

func TestCommitMakesWritesVisible(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	unit := begin(t, f, uow.TxOptions{})
	b := &domainbooking.Booking{ID: "bk-1", ListingID: "lst-1", Status: domainbooking.StatusPending, CreatedAt: day0}
	require.NoError(t, unit.Bookings().Save(ctx, b))

	other := begin(t, f, uow.TxOptions{ReadOnly: true})
	_, err := other.Bookings().ByID(ctx, "bk-1")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	require.NoError(t, unit.Commit(ctx))
	assert.Equal(t, int64(1), b.Version)

	got, err := other.Bookings().ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)

	assert.ErrorIs(t, unit.Commit(ctx), memory.ErrUnitClosed)
}

func TestConcurrentCalendarWritesConflict(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	first := begin(t, f, uow.TxOptions{})
	second := begin(t, f, uow.TxOptions{})

	calA, err := first.Availability().Calendar(ctx, "lst-1")
	require.NoError(t, err)
	calB, err := second.Availability().Calendar(ctx, "lst-1")
	require.NoError(t, err)

	require.NoError(t, calA.Reserve(nights(0, 3), "bk-a", day0))
	require.NoError(t, calB.Reserve(nights(1, 3), "bk-b", day0))
	require.NoError(t, first.Availability().Save(ctx, calA))
	require.NoError(t, second.Availability().Save(ctx, calB))

	compensated := false
	second.OnRollback(func(context.Context) { compensated = true })

	require.NoError(t, first.Commit(ctx))
	err = second.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainavailability.ErrConcurrentUpdate)
	assert.True(t, compensated)

	// A stale calendar is refused at save time once the first commit landed.
	third := begin(t, f, uow.TxOptions{})
	stale := domainavailability.NewCalendar("lst-1")
	assert.ErrorIs(t, third.Availability().Save(ctx, stale), domainavailability.ErrConcurrentUpdate)

	reader := begin(t, f, uow.TxOptions{ReadOnly: true})
	cal, err := reader.Availability().Calendar(ctx, "lst-1")
	require.NoError(t, err)
	assert.True(t, cal.Holds("bk-a"))
	assert.False(t, cal.Holds("bk-b"))
}

func TestRollbackRunsCompensationsOnce(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}
	unit := begin(t, f, uow.TxOptions{})

	calls := 0
	unit.OnRollback(func(context.Context) { calls++ })

	require.NoError(t, unit.Rollback(ctx))
	require.NoError(t, unit.Rollback(ctx))
	assert.Equal(t, 1, calls)
}

func TestCommitDiscardsCompensations(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}
	unit := begin(t, f, uow.TxOptions{})

	calls := 0
	unit.OnRollback(func(context.Context) { calls++ })

	require.NoError(t, unit.Commit(ctx))
	require.NoError(t, unit.Rollback(ctx))
	assert.Zero(t, calls)
}

func TestReadOnlyUnitRefusesWrites(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}
	unit := begin(t, f, uow.TxOptions{ReadOnly: true})

	err := unit.Bookings().Save(ctx, &domainbooking.Booking{ID: "bk-1"})
	assert.ErrorIs(t, err, memory.ErrReadOnly)
	assert.NoError(t, unit.Commit(ctx))
}

func TestFactoryWithoutStore(t *testing.T) {
	_, err := memory.Factory{}.Begin(context.Background(), uow.TxOptions{})
	assert.ErrorIs(t, err, memory.ErrFactoryMisconfigured)
}

func TestSecondPendingRequestIsRefused(t *testing.T) {
	ctx := context.Background()
	f := memory.Factory{Store: memory.NewStore()}

	pending := func(id domainmodification.RequestID) *domainmodification.Request {
		return &domainmodification.Request{ID: id, BookingID: "bk-1", Status: domainmodification.StatusPending, CreatedAt: day0}
	}

	first := begin(t, f, uow.TxOptions{})
	second := begin(t, f, uow.TxOptions{})
	require.NoError(t, first.Modifications().Save(ctx, pending("req-1")))
	require.NoError(t, second.Modifications().Save(ctx, pending("req-2")))

	require.NoError(t, first.Commit(ctx))
	err := second.Commit(ctx)
	assert.True(t, errors.Is(err, rules.ErrDuplicatePendingRequest))

	third := begin(t, f, uow.TxOptions{})
	err = third.Modifications().Save(ctx, pending("req-3"))
	kind, ok := rules.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, rules.KindDuplicatePendingRequest, kind)

	// Once the first request is closed another one may follow.
	closer := begin(t, f, uow.TxOptions{})
	req, err := closer.Modifications().PendingForBooking(ctx, "bk-1")
	require.NoError(t, err)
	req.Status = domainmodification.StatusRejected
	require.NoError(t, closer.Modifications().Save(ctx, req))
	require.NoError(t, closer.Modifications().Save(ctx, pending("req-4")))
	require.NoError(t, closer.Commit(ctx))

	reader := begin(t, f, uow.TxOptions{ReadOnly: true})
	list, err := reader.Modifications().ListByBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOutboxRecordsPublishOnCommit(t *testing.T) {
	box := memory.NewOutbox()
	f := memory.Factory{Store: memory.NewStore(), Outbox: box}

	unit := begin(t, f, uow.TxOptions{})
	ctx := uow.ContextWithUnitOfWork(context.Background(), unit)
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.requested", Aggregate: "bk-1"}))
	assert.Empty(t, box.Pending())

	require.NoError(t, unit.Commit(ctx))
	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "booking.requested", pending[0].Name)

	rolled := begin(t, f, uow.TxOptions{})
	rctx := uow.ContextWithUnitOfWork(context.Background(), rolled)
	require.NoError(t, box.Add(rctx, appoutbox.EventRecord{ID: "evt-2", Name: "booking.cancelled"}))
	require.NoError(t, rolled.Rollback(rctx))
	assert.Len(t, box.Pending(), 1)
}
