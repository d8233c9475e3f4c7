package listings

import (
	"errors"

	"stayride/internal/domain/shared/money"
)

var (
	ErrNegativeAmount  = errors.New("listings: pricing amounts must be non-negative")
	ErrBasePrice       = errors.New("listings: base price per unit must be positive")
	ErrDiscountPercent = errors.New("listings: discount percentage must be between 0 and 100")
	ErrDiscountUnits   = errors.New("listings: discount minimum units must be at least 1")
	ErrVehicleOnly     = errors.New("listings: driver fee and hourly rate apply to vehicles only")
)

// DiscountTier is one duration-based discount level.
type DiscountTier struct {
	Enabled    bool       `json:"enabled"`
	MinUnits   int        `json:"min_units"`
	Percentage money.Rate `json:"percentage_bps"`
}

// Applies reports whether the tier is active for the given number of units.
func (t DiscountTier) Applies(units int) bool {
	return t.Enabled && t.MinUnits > 0 && units >= t.MinUnits && t.Percentage > 0
}

func (t DiscountTier) validate() error {
	if !t.Enabled {
		return nil
	}
	if t.MinUnits < 1 {
		return ErrDiscountUnits
	}
	if !t.Percentage.Valid() {
		return ErrDiscountPercent
	}
	return nil
}

// PricingConfig is the per-listing tariff the engine reads; it is never mutated by a computation.
type PricingConfig struct {
	BasePricePerUnit     int64        `json:"base_price_per_unit"`
	Discount             DiscountTier `json:"discount"`
	LongStayDiscount     DiscountTier `json:"long_stay_discount"`
	CleaningFee          int64        `json:"cleaning_fee"`
	FreeCleaningMinUnits *int         `json:"free_cleaning_min_units,omitempty"`
	ServiceFeeOverride   *int64       `json:"service_fee_override,omitempty"`
	Taxes                int64        `json:"taxes"`
	DriverFee            *int64       `json:"driver_fee,omitempty"`
	HourlyRate           *int64       `json:"hourly_rate,omitempty"`
}

func (c PricingConfig) Validate(service ServiceType) error {
	if c.BasePricePerUnit <= 0 {
		return ErrBasePrice
	}
	if c.CleaningFee < 0 || c.Taxes < 0 {
		return ErrNegativeAmount
	}
	for _, p := range []*int64{c.ServiceFeeOverride, c.DriverFee, c.HourlyRate} {
		if p != nil && *p < 0 {
			return ErrNegativeAmount
		}
	}
	if service != ServiceVehicle && (c.DriverFee != nil || c.HourlyRate != nil) {
		return ErrVehicleOnly
	}
	if err := c.Discount.validate(); err != nil {
		return err
	}
	return c.LongStayDiscount.validate()
}

// HasHourlyRate reports whether partial days are billed by the hour.
func (c PricingConfig) HasHourlyRate() bool {
	return c.HourlyRate != nil && *c.HourlyRate > 0
}

// DriverFeeAmount returns the configured driver fee or zero.
func (c PricingConfig) DriverFeeAmount() int64 {
	if c.DriverFee == nil {
		return 0
	}
	return *c.DriverFee
}

// HourlyRateAmount returns the configured hourly rate or zero.
func (c PricingConfig) HourlyRateAmount() int64 {
	if c.HourlyRate == nil {
		return 0
	}
	return *c.HourlyRate
}
