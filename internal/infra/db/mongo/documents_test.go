package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	domainpricing "stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
)

var at = time.Date(2026, time.July, 1, 9, 30, 0, 0, time.UTC)

func roundTrip[T any](t *testing.T, doc T) T {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var out T
	require.NoError(t, bson.Unmarshal(raw, &out))
	return out
}

func TestBookingDocumentRoundTrip(t *testing.T) {
	b := &domainbooking.Booking{
		ID:          "bk-1",
		ListingID:   "lst-1",
		ServiceType: listings.ServiceProperty,
		GuestID:     "guest-1",
		HostID:      "host-1",
		Range:       daterange.Must(at.AddDate(0, 0, 10), at.AddDate(0, 0, 13)),
		Guests:      2,
		Status:      domainbooking.StatusCancelled,
		Price: domainpricing.Breakdown{
			Currency:           "EUR",
			Units:              3,
			BasePrice:          300,
			DiscountType:       domainpricing.DiscountNone,
			DiscountRate:       money.Percent(10),
			PriceAfterDiscount: 300,
			ServiceFee:         domainpricing.VATSplit{HT: 36, VAT: 7, TTC: 43},
			FinalTotal:         343,
		},
		Options: domainpricing.Options{Voucher: &domainpricing.Voucher{Code: "WELCOME10", Valid: true, Kind: domainpricing.VoucherPercentage}},
		PaymentReference:   "capture_1",
		CancellationPolicy: listings.PolicyModerate,
		Cancellation: &domainbooking.Cancellation{
			Penalty:     150,
			Refund:      193,
			Bearer:      cancellation.BearerGuest,
			CancelledBy: cancellation.RoleGuest,
			CancelledAt: at,
			Description: "late cancellation",
		},
		CreatedAt: at,
		UpdatedAt: at.Add(time.Hour),
		Version:   4,
	}

	got := roundTrip(t, newBookingDocument(b)).toAggregate()
	assert.Equal(t, b.ID, got.ID)
	assert.True(t, b.Range.Equal(got.Range))
	assert.Equal(t, b.Price, got.Price)
	assert.Equal(t, b.Options, got.Options)
	assert.Equal(t, b.Cancellation, got.Cancellation)
	assert.Equal(t, b.CancellationPolicy, got.CancellationPolicy)
	assert.True(t, b.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, int64(4), got.Version)
}

func TestCalendarDocumentRoundTrip(t *testing.T) {
	cal := domainavailability.NewCalendar("lst-1")
	require.NoError(t, cal.Reserve(daterange.Must(at, at.AddDate(0, 0, 2)), "bk-1", at))
	require.NoError(t, cal.BlockRange(daterange.Must(at.AddDate(0, 0, 5), at.AddDate(0, 0, 7)), "maintenance", at))
	cal.Version = 2

	got := roundTrip(t, newCalendarDocument(cal)).toAggregate()
	assert.Equal(t, cal.ListingID, got.ListingID)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, cal.Blocks, got.Blocks)
	assert.Empty(t, got.PendingEvents())
}

func TestRequestDocumentRoundTrip(t *testing.T) {
	responded := at.Add(2 * time.Hour)
	req := &domainmodification.Request{
		ID:          "req-1",
		BookingID:   "bk-1",
		ListingID:   "lst-1",
		HostID:      "host-1",
		RequesterID: "guest-1",
		Original:    domainmodification.Snapshot{Range: daterange.Must(at, at.AddDate(0, 0, 3)), Guests: 2, TotalPrice: 343},
		Requested:   domainmodification.Snapshot{Range: daterange.Must(at, at.AddDate(0, 0, 4)), Guests: 2, TotalPrice: 450},
		PriceDelta:  107,
		Currency:    "EUR",
		Status:      domainmodification.StatusApproved,
		RespondedAt: &responded,
		CreatedAt:   at,
		UpdatedAt:   responded,
		Version:     1,
	}

	got := roundTrip(t, newRequestDocument(req)).toAggregate()
	assert.Equal(t, req.Status, got.Status)
	assert.Equal(t, int64(107), got.PriceDelta)
	assert.True(t, req.Requested.Range.Equal(got.Requested.Range))
	require.NotNil(t, got.RespondedAt)
	assert.True(t, responded.Equal(*got.RespondedAt))

	req.RespondedAt = nil
	assert.Nil(t, roundTrip(t, newRequestDocument(req)).toAggregate().RespondedAt)
}
