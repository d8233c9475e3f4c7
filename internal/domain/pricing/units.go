package pricing

import (
	"time"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
)

const day = 24 * time.Hour

// BillingUnits derives billed nights/days for a range. Properties bill calendar
// nights. Vehicles bill started 24h periods, with a sub-24h rental billed as one
// day; when an hourly rate exists the leftover hours of a multi-day rental are
// returned as extra hours instead of another day.
func BillingUnits(dr daterange.DateRange, service listings.ServiceType, hourly bool) (units int, extraHours int) {
	if service != listings.ServiceVehicle {
		return dr.Nights(), 0
	}
	d := dr.Duration()
	if d <= 0 {
		return 0, 0
	}
	days := int(d / day)
	rem := d % day
	if rem == 0 {
		return days, 0
	}
	if days == 0 {
		return 1, 0
	}
	hours := int((rem + time.Hour - 1) / time.Hour)
	if !hourly || hours >= 24 {
		return days + 1, 0
	}
	return days, hours
}
