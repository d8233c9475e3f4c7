package cancellation

import (
	"time"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/money"
)

const day = 24 * time.Hour

// Tier applies Penalty when the cancellation happens at least Notice before the start.
type Tier struct {
	Notice  time.Duration
	Penalty money.Rate
}

// Ladder is an ordered list of tiers, most generous first. Otherwise applies
// when no tier's notice is met.
type Ladder struct {
	Tiers     []Tier
	Otherwise money.Rate
}

func (l Ladder) PenaltyFor(notice time.Duration) money.Rate {
	for _, t := range l.Tiers {
		if notice >= t.Notice {
			return t.Penalty
		}
	}
	return l.Otherwise
}

// PropertyPolicy is the guest-side rule set for one declared property policy.
type PropertyPolicy struct {
	BeforeStart Ladder
	AfterStart  money.Rate
}

type Tables struct {
	VehicleRenter Ladder
	VehicleOwner  Ladder
	// VehicleInProgress is the penalty on the remaining days once a rental started.
	VehicleInProgress money.Rate
	// VehicleRenterRefund is the share of the remaining days refunded when the renter stops early.
	VehicleRenterRefund money.Rate
	Property            map[listings.CancellationPolicy]PropertyPolicy
	PropertyHost        Ladder
}

func DefaultTables() Tables {
	return Tables{
		VehicleRenter: Ladder{
			Tiers: []Tier{
				{Notice: 7 * day, Penalty: money.Percent(0)},
				{Notice: 72 * time.Hour, Penalty: money.Percent(15)},
				{Notice: 24 * time.Hour, Penalty: money.Percent(30)},
			},
			Otherwise: money.Percent(50),
		},
		VehicleOwner: Ladder{
			Tiers: []Tier{
				{Notice: 28 * day, Penalty: money.Percent(0)},
				{Notice: 7 * day, Penalty: money.Percent(20)},
				{Notice: 48 * time.Hour, Penalty: money.Percent(40)},
			},
			Otherwise: money.Percent(50),
		},
		VehicleInProgress:   money.Percent(50),
		VehicleRenterRefund: money.Percent(50),
		Property: map[listings.CancellationPolicy]PropertyPolicy{
			listings.PolicyFlexible: {
				BeforeStart: Ladder{Tiers: []Tier{{Notice: 24 * time.Hour}}, Otherwise: money.Percent(50)},
				AfterStart:  money.Percent(50),
			},
			listings.PolicyModerate: {
				BeforeStart: Ladder{Tiers: []Tier{{Notice: 5 * day}}, Otherwise: money.Percent(50)},
				AfterStart:  money.Percent(50),
			},
			listings.PolicyStrict: {
				BeforeStart: Ladder{
					Tiers:     []Tier{{Notice: 14 * day}, {Notice: 7 * day, Penalty: money.Percent(50)}},
					Otherwise: money.Percent(100),
				},
				AfterStart: money.Percent(100),
			},
			listings.PolicyNonRefundable: {
				BeforeStart: Ladder{Otherwise: money.Percent(100)},
				AfterStart:  money.Percent(100),
			},
		},
		PropertyHost: Ladder{
			Tiers: []Tier{
				{Notice: 30 * day, Penalty: money.Percent(0)},
				{Notice: 7 * day, Penalty: money.Percent(25)},
			},
			Otherwise: money.Percent(50),
		},
	}
}
