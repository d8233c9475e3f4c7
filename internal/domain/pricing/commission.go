package pricing

import (
	"errors"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/money"
)

var ErrUnknownServiceType = errors.New("pricing: no rates for service type")

// Rates are the platform percentages for one service type.
type Rates struct {
	TravelerFee money.Rate
	HostFee     money.Rate
}

// RateTable is fixed per service type; listings cannot override it.
type RateTable map[listings.ServiceType]Rates

func DefaultRateTable() RateTable {
	return RateTable{
		listings.ServiceProperty: {TravelerFee: money.Percent(12), HostFee: money.Percent(2)},
		listings.ServiceVehicle:  {TravelerFee: money.Percent(10), HostFee: money.Percent(5)},
	}
}

func (t RateTable) For(service listings.ServiceType) (Rates, error) {
	r, ok := t[service]
	if !ok {
		return Rates{}, ErrUnknownServiceType
	}
	return r, nil
}

// Commission is the host-side deduction and what remains for the host.
type Commission struct {
	VATSplit
	HostNet int64 `json:"host_net"`
}

// HostCommission derives the commission from the post-discount price. The TTC
// amount leaves the host share because the platform remits the VAT.
func (t RateTable) HostCommission(priceAfterDiscount int64, service listings.ServiceType) (Commission, error) {
	r, err := t.For(service)
	if err != nil {
		return Commission{}, err
	}
	split := SplitVAT(money.Share(priceAfterDiscount, r.HostFee))
	return Commission{VATSplit: split, HostNet: priceAfterDiscount - split.TTC}, nil
}

// ServiceFee derives the guest-side platform fee; override is an HT amount set on the listing.
func (t RateTable) ServiceFee(priceAfterDiscount int64, service listings.ServiceType, override *int64) (VATSplit, error) {
	r, err := t.For(service)
	if err != nil {
		return VATSplit{}, err
	}
	if override != nil {
		return SplitVAT(*override), nil
	}
	return SplitVAT(money.Share(priceAfterDiscount, r.TravelerFee)), nil
}
