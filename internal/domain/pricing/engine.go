package pricing

import (
	"errors"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/rules"
)

var (
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrInvalidPrice      = errors.New("pricing: price per unit must be positive")
	ErrNegativeAncillary = errors.New("pricing: ancillary amounts cannot be negative")
)

// Ancillary carries the fees that sit outside the discount base.
type Ancillary struct {
	CleaningFee          int64
	FreeCleaningMinUnits *int
	Taxes                int64
	DriverFee            int64
	WithDriver           bool
	ServiceFeeOverride   *int64
}

// Input is everything a price computation needs; the engine reads nothing else.
type Input struct {
	ServiceType  listings.ServiceType
	Currency     string
	PricePerUnit int64
	Units        int
	ExtraHours   int
	HourlyRate   int64
	Discount     listings.DiscountTier
	LongStay     listings.DiscountTier
	Ancillary    Ancillary
	Voucher      *Voucher
}

// Options are the guest choices that influence the price beyond the range.
type Options struct {
	WithDriver bool     `json:"with_driver"`
	Voucher    *Voucher `json:"voucher,omitempty"`
}

// Engine computes breakdowns. It is stateless apart from the rate table and
// is the only place totals are derived, for quotes, bookings and modifications alike.
type Engine struct {
	Rates RateTable
}

func NewEngine(rates RateTable) *Engine {
	if rates == nil {
		rates = DefaultRateTable()
	}
	return &Engine{Rates: rates}
}

// InputFromListing maps a listing tariff and a range to an engine input.
func InputFromListing(l *listings.Listing, dr daterange.DateRange, opts Options) Input {
	cfg := l.Pricing
	units, extraHours := BillingUnits(dr, l.ServiceType, cfg.HasHourlyRate())
	in := Input{
		ServiceType:  l.ServiceType,
		Currency:     l.Currency,
		PricePerUnit: cfg.BasePricePerUnit,
		Units:        units,
		ExtraHours:   extraHours,
		HourlyRate:   cfg.HourlyRateAmount(),
		Discount:     cfg.Discount,
		LongStay:     cfg.LongStayDiscount,
		Ancillary: Ancillary{
			CleaningFee:          cfg.CleaningFee,
			FreeCleaningMinUnits: cfg.FreeCleaningMinUnits,
			Taxes:                cfg.Taxes,
			ServiceFeeOverride:   cfg.ServiceFeeOverride,
		},
		Voucher: opts.Voucher,
	}
	if l.ServiceType == listings.ServiceVehicle && opts.WithDriver {
		in.Ancillary.WithDriver = true
		in.Ancillary.DriverFee = cfg.DriverFeeAmount()
	}
	return in
}

// Quote prices a listing for a range in one call.
func (e *Engine) Quote(l *listings.Listing, dr daterange.DateRange, opts Options) (Breakdown, error) {
	if err := dr.Validate(); err != nil {
		return Breakdown{}, rules.New(rules.KindInvalidDateRange, err.Error())
	}
	return e.Compute(InputFromListing(l, dr, opts))
}

func (e *Engine) Compute(in Input) (Breakdown, error) {
	if in.Currency == "" {
		return Breakdown{}, ErrCurrencyUnset
	}
	if in.Units < 1 {
		return Breakdown{}, rules.Newf(rules.KindInvalidDateRange, "units must be at least 1, got %d", in.Units)
	}
	if in.PricePerUnit <= 0 {
		return Breakdown{}, ErrInvalidPrice
	}
	a := in.Ancillary
	if a.CleaningFee < 0 || a.Taxes < 0 || a.DriverFee < 0 || in.HourlyRate < 0 || in.ExtraHours < 0 {
		return Breakdown{}, ErrNegativeAncillary
	}
	vehicle := in.ServiceType == listings.ServiceVehicle

	b := Breakdown{
		Currency:     in.Currency,
		Units:        in.Units,
		PricePerUnit: in.PricePerUnit,
	}
	b.BasePrice = in.PricePerUnit * int64(in.Units)
	if vehicle && in.ExtraHours > 0 && in.HourlyRate > 0 {
		b.ExtraHours = in.ExtraHours
		b.HoursPrice = int64(in.ExtraHours) * in.HourlyRate
		b.BasePrice += b.HoursPrice
	}

	d := ResolveDiscount(b.BasePrice, in.Units, in.Discount, in.LongStay)
	b.DiscountAmount, b.DiscountType, b.DiscountRate = d.Amount, d.Type, d.Rate

	if v := in.Voucher; v != nil && v.Code != "" {
		b.VoucherCode = v.Code
		if v.Valid {
			b.VoucherDiscount = v.discountOn(b.BasePrice - b.DiscountAmount)
		} else {
			b.VoucherError = rules.KindVoucherInvalid
			b.VoucherReason = v.Reason
		}
	}
	b.PriceAfterDiscount = b.BasePrice - b.DiscountAmount - b.VoucherDiscount

	// The driver fee joins after the discount and is part of the fee base.
	if vehicle && a.WithDriver {
		b.DriverFee = a.DriverFee
		b.PriceAfterDiscount += a.DriverFee
	}
	if !vehicle {
		b.CleaningFee = CleaningFee(in.Units, a.CleaningFee, a.FreeCleaningMinUnits)
	}
	b.Taxes = LocalTaxes(a.Taxes)

	fee, err := e.Rates.ServiceFee(b.PriceAfterDiscount, in.ServiceType, a.ServiceFeeOverride)
	if err != nil {
		return Breakdown{}, err
	}
	b.ServiceFee = fee
	commission, err := e.Rates.HostCommission(b.PriceAfterDiscount, in.ServiceType)
	if err != nil {
		return Breakdown{}, err
	}
	b.HostCommission = commission.VATSplit
	b.HostNetAmount = commission.HostNet
	b.FinalTotal = b.PriceAfterDiscount + b.ServiceFee.TTC + b.CleaningFee + b.Taxes
	return b, nil
}

// Delta is requested minus current: positive means the guest owes a surplus,
// negative means a refund is due.
func Delta(current, requested Breakdown) int64 {
	return requested.FinalTotal - current.FinalTotal
}
