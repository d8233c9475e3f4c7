package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/commands"
	availabilityapp "stayride/internal/app/handlers/availability"
	"stayride/internal/app/outbox"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/rules"
	"stayride/internal/infra/storage/memory"
)

var host = commands.Actor{ID: "host-1", Role: "host"}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func august(day int) time.Time {
	return time.Date(2026, time.August, day, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) (*availabilityapp.CalendarHandler, *availabilityapp.GetCalendarHandler, memory.Factory, *memory.Outbox) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC)
	box := memory.NewOutbox()
	factory := memory.Factory{Store: memory.NewStore(), Outbox: box}

	listing, err := listings.NewListing(listings.CreateListingParams{
		ID:           "lst-1",
		Host:         "host-1",
		Title:        "Courtyard house",
		ServiceType:  listings.ServiceProperty,
		Currency:     "EUR",
		MaxOccupancy: 4,
		Pricing:      listings.PricingConfig{BasePricePerUnit: 100},
		Now:          now,
	})
	require.NoError(t, err)
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, listing))

	cal := domainavailability.NewCalendar("lst-1")
	require.NoError(t, cal.Reserve(daterange.Must(august(20), august(23)), "bk-1", now))
	require.NoError(t, unit.Availability().Save(ctx, cal))
	require.NoError(t, unit.Commit(ctx))

	handler := &availabilityapp.CalendarHandler{UoWFactory: factory, Outbox: box, Encoder: outbox.JSONEventEncoder{}, Clock: fixedClock{now: now}}
	return handler, &availabilityapp.GetCalendarHandler{UoWFactory: factory}, factory, box
}

func TestHostBlocksAndReleasesDates(t *testing.T) {
	ctx := context.Background()
	handler, query, _, box := setup(t)

	cal, err := handler.Block(ctx, availabilityapp.BlockDatesCommand{
		ListingID: "lst-1", Actor: host, From: august(10), To: august(12), Reference: "repairs",
	})
	require.NoError(t, err)
	require.Len(t, cal.Blocks, 2)

	view, err := query.Handle(ctx, availabilityapp.GetCalendarQuery{ListingID: "lst-1", From: august(9), To: august(15)})
	require.NoError(t, err)
	require.Len(t, view.Blocks, 1)
	assert.Equal(t, "repairs", view.Blocks[0].Reference)
	assert.Equal(t, string(domainavailability.ReasonHostBlock), view.Blocks[0].Reason)

	names := func() []string {
		var out []string
		for _, m := range box.Pending() {
			out = append(out, m.Name)
		}
		return out
	}
	assert.Contains(t, names(), "calendar.blocked")

	_, err = handler.Unblock(ctx, availabilityapp.UnblockDatesCommand{ListingID: "lst-1", Actor: host, Reference: "repairs"})
	require.NoError(t, err)
	assert.Contains(t, names(), "calendar.released")

	view, err = query.Handle(ctx, availabilityapp.GetCalendarQuery{ListingID: "lst-1"})
	require.NoError(t, err)
	assert.Len(t, view.Blocks, 1)
}

func TestCalendarGuards(t *testing.T) {
	ctx := context.Background()
	handler, query, _, _ := setup(t)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "stranger cannot block",
			run: func() error {
				_, err := handler.Block(ctx, availabilityapp.BlockDatesCommand{
					ListingID: "lst-1", Actor: commands.Actor{ID: "guest-1", Role: "guest"}, From: august(1), To: august(3),
				})
				return err
			},
			want: rules.ErrNotAllowed,
		},
		{
			name: "block over a booking",
			run: func() error {
				_, err := handler.Block(ctx, availabilityapp.BlockDatesCommand{ListingID: "lst-1", Actor: host, From: august(22), To: august(25)})
				return err
			},
			want: rules.ErrDateConflict,
		},
		{
			name: "inverted range",
			run: func() error {
				_, err := handler.Block(ctx, availabilityapp.BlockDatesCommand{ListingID: "lst-1", Actor: host, From: august(5), To: august(5)})
				return err
			},
			want: rules.ErrInvalidDateRange,
		},
		{
			name: "booking hold cannot be unblocked",
			run: func() error {
				_, err := handler.Unblock(ctx, availabilityapp.UnblockDatesCommand{ListingID: "lst-1", Actor: host, Reference: "bk-1"})
				return err
			},
			want: rules.ErrNotAllowed,
		},
		{
			name: "unknown reference",
			run: func() error {
				_, err := handler.Unblock(ctx, availabilityapp.UnblockDatesCommand{ListingID: "lst-1", Actor: host, Reference: "nope"})
				return err
			},
			want: domainavailability.ErrRangeNotFound,
		},
		{
			name: "unknown listing",
			run: func() error {
				_, err := query.Handle(ctx, availabilityapp.GetCalendarQuery{ListingID: "lst-x"})
				return err
			},
			want: listings.ErrListingNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}

	view, err := query.Handle(ctx, availabilityapp.GetCalendarQuery{ListingID: "lst-1"})
	require.NoError(t, err)
	require.Len(t, view.Blocks, 1)
	assert.Equal(t, "bk-1", view.Blocks[0].Reference)
}
