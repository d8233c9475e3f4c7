package pricing

import (
	"fmt"

	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/shared/rules"
)

// Breakdown is the full price of a stay or rental. All amounts are whole
// currency units in Currency.
type Breakdown struct {
	Currency           string       `json:"currency" bson:"currency"`
	Units              int          `json:"units" bson:"units"`
	ExtraHours         int          `json:"extra_hours,omitempty" bson:"extra_hours"`
	PricePerUnit       int64        `json:"price_per_unit" bson:"price_per_unit"`
	HoursPrice         int64        `json:"hours_price,omitempty" bson:"hours_price"`
	BasePrice          int64        `json:"base_price" bson:"base_price"`
	DiscountAmount     int64        `json:"discount_amount" bson:"discount_amount"`
	DiscountType       DiscountType `json:"discount_type" bson:"discount_type"`
	DiscountRate       money.Rate   `json:"discount_rate_bps,omitempty" bson:"discount_rate"`
	VoucherCode        string       `json:"voucher_code,omitempty" bson:"voucher_code"`
	VoucherDiscount    int64        `json:"voucher_discount,omitempty" bson:"voucher_discount"`
	VoucherError       rules.Kind   `json:"voucher_error,omitempty" bson:"voucher_error"`
	VoucherReason      string       `json:"voucher_reason,omitempty" bson:"voucher_reason"`
	DriverFee          int64        `json:"driver_fee,omitempty" bson:"driver_fee"`
	PriceAfterDiscount int64        `json:"price_after_discount" bson:"price_after_discount"`
	ServiceFee         VATSplit     `json:"service_fee" bson:"service_fee"`
	HostCommission     VATSplit     `json:"host_commission" bson:"host_commission"`
	CleaningFee        int64        `json:"cleaning_fee" bson:"cleaning_fee"`
	Taxes              int64        `json:"taxes" bson:"taxes"`
	FinalTotal         int64        `json:"final_total" bson:"final_total"`
	HostNetAmount      int64        `json:"host_net_amount" bson:"host_net_amount"`
}

// Verify checks the additivity invariants every computed breakdown satisfies.
func (b Breakdown) Verify() error {
	if want := b.PriceAfterDiscount + b.ServiceFee.TTC + b.CleaningFee + b.Taxes; b.FinalTotal != want {
		return fmt.Errorf("pricing: final total %d != %d", b.FinalTotal, want)
	}
	if want := b.PriceAfterDiscount - b.HostCommission.TTC; b.HostNetAmount != want {
		return fmt.Errorf("pricing: host net %d != %d", b.HostNetAmount, want)
	}
	for _, s := range []VATSplit{b.ServiceFee, b.HostCommission} {
		if s.HT+s.VAT != s.TTC {
			return fmt.Errorf("pricing: vat split %d + %d != %d", s.HT, s.VAT, s.TTC)
		}
	}
	return nil
}

func (b Breakdown) Total() money.Money {
	return money.Money{Amount: b.FinalTotal, Currency: b.Currency}
}

// TotalDiscount is the tier discount plus any voucher discount.
func (b Breakdown) TotalDiscount() int64 {
	return b.DiscountAmount + b.VoucherDiscount
}

// VoucherRejected reports whether a code was submitted but not honoured.
func (b Breakdown) VoucherRejected() bool {
	return b.VoucherError != ""
}
