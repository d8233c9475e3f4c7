package pricing

import (
	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/money"
)

type DiscountType string

const (
	DiscountNone     DiscountType = "none"
	DiscountStandard DiscountType = "standard"
	DiscountLongStay DiscountType = "long_stay"
)

type Discount struct {
	Amount int64
	Type   DiscountType
	Rate   money.Rate
}

// ResolveDiscount picks at most one tier for the duration. The long-stay tier
// takes precedence whenever its threshold is met; tiers never stack.
func ResolveDiscount(basePrice int64, units int, standard, longStay listings.DiscountTier) Discount {
	switch {
	case longStay.Applies(units):
		return Discount{Amount: money.Share(basePrice, longStay.Percentage), Type: DiscountLongStay, Rate: longStay.Percentage}
	case standard.Applies(units):
		return Discount{Amount: money.Share(basePrice, standard.Percentage), Type: DiscountStandard, Rate: standard.Percentage}
	default:
		return Discount{Type: DiscountNone}
	}
}
