package quotes_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	quotesapp "stayride/internal/app/handlers/quotes"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/uow"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/rules"
	"stayride/internal/infra/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newHandler(t *testing.T, activate bool) *quotesapp.GetQuoteHandler {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC)
	factory := memory.Factory{Store: memory.NewStore()}

	listing, err := listings.NewListing(listings.CreateListingParams{
		ID:           "lst-1",
		Host:         "host-1",
		Title:        "Courtyard house",
		ServiceType:  listings.ServiceProperty,
		Currency:     "EUR",
		MaxOccupancy: 2,
		Pricing:      listings.PricingConfig{BasePricePerUnit: 100, CleaningFee: 30},
		Now:          now,
	})
	require.NoError(t, err)
	if activate {
		require.NoError(t, listing.Activate(now))
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, listing))
	require.NoError(t, unit.Commit(ctx))

	vouchers := memory.NewVoucherCatalogue(memory.VoucherDefinition{Code: "WELCOME10", Kind: pricing.VoucherPercentage, Percentage: 10})
	return &quotesapp.GetQuoteHandler{
		UoWFactory: factory,
		Pricer:     support.Pricer{Engine: pricing.NewEngine(nil), Vouchers: vouchers},
		Clock:      fixedClock{now: now},
	}
}

func stay(voucher string, guests int) quotesapp.GetQuoteQuery {
	return quotesapp.GetQuoteQuery{
		ListingID:   "lst-1",
		CheckIn:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2026, time.August, 4, 0, 0, 0, 0, time.UTC),
		Guests:      guests,
		VoucherCode: voucher,
	}
}

func TestQuoteWithVoucher(t *testing.T) {
	h := newHandler(t, true)

	q, err := h.Handle(context.Background(), stay("welcome10", 2))
	require.NoError(t, err)
	b := q.Breakdown
	assert.Equal(t, 3, b.Units)
	assert.Equal(t, int64(300), b.BasePrice)
	assert.Equal(t, int64(30), b.VoucherDiscount)
	assert.Equal(t, int64(270), b.PriceAfterDiscount)
	assert.Equal(t, pricing.VATSplit{HT: 32, VAT: 6, TTC: 38}, b.ServiceFee)
	assert.Equal(t, int64(338), b.FinalTotal)
	assert.Equal(t, int64(264), b.HostNetAmount)
	assert.NoError(t, b.Verify())
}

func TestQuoteFlagsUnknownVoucher(t *testing.T) {
	h := newHandler(t, true)

	q, err := h.Handle(context.Background(), stay("NOPE", 1))
	require.NoError(t, err)
	assert.Equal(t, rules.KindVoucherInvalid, q.Breakdown.VoucherError)
	assert.Zero(t, q.Breakdown.VoucherDiscount)
	assert.Equal(t, int64(373), q.Breakdown.FinalTotal)
}

func TestQuoteRejections(t *testing.T) {
	h := newHandler(t, true)

	_, err := h.Handle(context.Background(), stay("", 3))
	assert.ErrorIs(t, err, rules.ErrMaxOccupancyViolation)

	inverted := stay("", 1)
	inverted.CheckIn, inverted.CheckOut = inverted.CheckOut, inverted.CheckIn
	_, err = h.Handle(context.Background(), inverted)
	assert.ErrorIs(t, err, rules.ErrInvalidDateRange)

	missing := stay("", 1)
	missing.ListingID = "lst-x"
	_, err = h.Handle(context.Background(), missing)
	assert.ErrorIs(t, err, listings.ErrListingNotFound)
}

func TestDraftListingIsNotQuoted(t *testing.T) {
	h := newHandler(t, false)

	_, err := h.Handle(context.Background(), stay("", 1))
	assert.ErrorIs(t, err, rules.ErrNotAllowed)
}
