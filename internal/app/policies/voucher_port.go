package policies

import (
	"context"
	"time"

	domainlistings "stayride/internal/domain/listings"
	domainpricing "stayride/internal/domain/pricing"
)

// VoucherPort checks promotional codes. An unknown, expired or consumed code is
// not an error: it comes back as a voucher with Valid=false and a reason.
type VoucherPort interface {
	Validate(ctx context.Context, code string, listing *domainlistings.Listing, now time.Time) (*domainpricing.Voucher, error)
	// Redeem marks a code as consumed by a booking.
	Redeem(ctx context.Context, code string, bookingID string) error
}
