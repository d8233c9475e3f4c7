package pricing

import "stayride/internal/domain/shared/money"

type VoucherKind string

const (
	VoucherPercentage VoucherKind = "percentage"
	VoucherFixed      VoucherKind = "fixed"
)

// Voucher is the outcome of a promotional code check performed by a collaborator.
type Voucher struct {
	Code       string      `json:"code"`
	Valid      bool        `json:"valid"`
	Reason     string      `json:"reason,omitempty"`
	Kind       VoucherKind `json:"kind,omitempty"`
	Percentage money.Rate  `json:"percentage_bps,omitempty"`
	Amount     int64       `json:"amount,omitempty"`
}

func (v *Voucher) discountOn(amount int64) int64 {
	if v == nil || !v.Valid || amount <= 0 {
		return 0
	}
	var d int64
	switch v.Kind {
	case VoucherPercentage:
		d = money.Share(amount, v.Percentage)
	case VoucherFixed:
		d = v.Amount
	}
	if d < 0 {
		return 0
	}
	if d > amount {
		return amount
	}
	return d
}
