package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainlistings "stayride/internal/domain/listings"
	domainpricing "stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/money"
	"stayride/internal/infra/storage/memory"
)

func TestVoucherValidation(t *testing.T) {
	now := time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)
	riad := &domainlistings.Listing{ID: "lst-riad", ServiceType: domainlistings.ServiceProperty, Currency: "EUR"}
	car := &domainlistings.Listing{ID: "lst-car", ServiceType: domainlistings.ServiceVehicle, Currency: "MAD"}

	catalogue := memory.NewVoucherCatalogue(
		memory.VoucherDefinition{Code: "WELCOME10", Kind: domainpricing.VoucherPercentage, Percentage: 10},
		memory.VoucherDefinition{Code: "RIDE20", Kind: domainpricing.VoucherFixed, Amount: 20, Currency: "EUR", ServiceType: domainlistings.ServiceVehicle},
		memory.VoucherDefinition{Code: "MEDINA", Kind: domainpricing.VoucherPercentage, Percentage: 15, ListingIDs: []domainlistings.ListingID{"lst-riad"}},
		memory.VoucherDefinition{Code: "LATER", Kind: domainpricing.VoucherPercentage, Percentage: 5, ValidFrom: now.Add(time.Hour)},
		memory.VoucherDefinition{Code: "GONE", Kind: domainpricing.VoucherPercentage, Percentage: 5, ValidUntil: now},
		memory.VoucherDefinition{Code: "ODD", Kind: "bogof"},
	)

	tests := []struct {
		name    string
		code    string
		listing *domainlistings.Listing
		reason  string
	}{
		{name: "percentage", code: " welcome10 ", listing: riad},
		{name: "unknown", code: "NOPE", listing: riad, reason: "unknown code"},
		{name: "wrong service", code: "RIDE20", listing: riad, reason: "not applicable to this service"},
		{name: "wrong currency", code: "RIDE20", listing: car, reason: "currency mismatch"},
		{name: "listing scoped", code: "MEDINA", listing: riad},
		{name: "other listing", code: "MEDINA", listing: car, reason: "not applicable to this listing"},
		{name: "not yet valid", code: "LATER", listing: riad, reason: "not yet valid"},
		{name: "expired at boundary", code: "GONE", listing: riad, reason: "expired"},
		{name: "unsupported kind", code: "ODD", listing: riad, reason: "unsupported voucher"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := catalogue.Validate(context.Background(), tt.code, tt.listing, now)
			require.NoError(t, err)
			assert.Equal(t, tt.code, v.Code)
			assert.Equal(t, tt.reason == "", v.Valid)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}

	v, err := catalogue.Validate(context.Background(), "WELCOME10", riad, now)
	require.NoError(t, err)
	assert.Equal(t, money.Percent(10), v.Percentage)
}

func TestVoucherRedemptionLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)
	catalogue := memory.NewVoucherCatalogue(memory.VoucherDefinition{
		Code: "ONCE", Kind: domainpricing.VoucherPercentage, Percentage: 10, MaxRedemptions: 1,
	})

	require.NoError(t, catalogue.Redeem(ctx, "once", "bk-1"))
	require.NoError(t, catalogue.Redeem(ctx, "ONCE", "bk-1"))

	v, err := catalogue.Validate(ctx, "ONCE", nil, now)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "already used", v.Reason)

	assert.ErrorIs(t, catalogue.Redeem(ctx, "MISSING", "bk-1"), memory.ErrVoucherNotFound)
}
