package cancellation

import (
	"errors"
	"fmt"
	"time"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/shared/rules"
)

var ErrNegativeBase = errors.New("cancellation: base amount cannot be negative")

// Bearer is the party whose money the penalty comes out of.
type Bearer string

const (
	BearerNone  Bearer = "none"
	BearerGuest Bearer = "guest"
	BearerHost  Bearer = "host"
)

// Subject is the booking snapshot a cancellation is computed on.
// Base is the undiscounted base price, before service fee. Paid, when set,
// caps the refund at what the guest was charged.
type Subject struct {
	ServiceType listings.ServiceType
	Policy      listings.CancellationPolicy
	Range       daterange.DateRange
	Base        int64
	Paid        int64
	Currency    string
	Pending     bool
	Terminal    bool
}

type Result struct {
	Penalty        int64      `json:"penalty"`
	RefundAmount   int64      `json:"refund_amount"`
	PenaltyPercent money.Rate `json:"penalty_bps"`
	RefundPercent  money.Rate `json:"refund_bps"`
	// Basis is the amount the percentages apply to: the base, or the remaining share once started.
	Basis       int64  `json:"basis"`
	Currency    string `json:"currency"`
	Bearer      Bearer `json:"bearer"`
	InProgress  bool   `json:"in_progress"`
	Description string `json:"description"`
}

// Engine computes penalty and refund as a pure function of the booking snapshot,
// the acting role and the injected time.
type Engine struct {
	Tables Tables
}

func NewEngine() *Engine {
	return &Engine{Tables: DefaultTables()}
}

func (e *Engine) Compute(s Subject, actor Role, now time.Time) (Result, error) {
	if s.Terminal {
		return Result{}, rules.New(rules.KindTerminalBookingState, "booking is already completed or cancelled")
	}
	if !actor.Valid() {
		return Result{}, ErrUnknownRole
	}
	if s.Base < 0 {
		return Result{}, ErrNegativeBase
	}
	if !s.ServiceType.Valid() {
		return Result{}, listings.ErrUnknownService
	}
	res := Result{Currency: s.Currency, Bearer: BearerNone}
	if s.Pending {
		res.Description = "booking not confirmed yet, no payment captured"
		return res, nil
	}
	if s.Range.Ended(now) {
		return Result{}, rules.New(rules.KindInvalidBookingState, "booking period is over")
	}
	if actor == RoleSystem {
		res.Basis = s.Base
		res.RefundAmount = s.Base
		res.RefundPercent = money.Percent(100)
		res.Description = "cancelled by the platform, full refund"
		capRefund(&res, s.Paid)
		return res, nil
	}

	if s.Range.Started(now) {
		res.InProgress = true
		res.Basis = remainingShare(s, now)
	} else {
		res.Basis = s.Base
	}
	notice := s.Range.Until(now)

	if s.ServiceType == listings.ServiceVehicle {
		e.vehicle(&res, actor, notice)
	} else {
		if err := e.property(&res, s.Policy, actor, notice); err != nil {
			return Result{}, err
		}
	}
	if res.Penalty == 0 {
		res.Bearer = BearerNone
	}
	capRefund(&res, s.Paid)
	res.Description = describe(s.ServiceType, actor, res, notice)
	return res, nil
}

func (e *Engine) vehicle(res *Result, actor Role, notice time.Duration) {
	t := e.Tables
	switch {
	case res.InProgress && actor.Provider():
		res.PenaltyPercent = t.VehicleInProgress
		res.RefundPercent = money.Percent(100)
		res.Bearer = BearerHost
	case res.InProgress:
		res.PenaltyPercent = t.VehicleInProgress
		res.RefundPercent = t.VehicleRenterRefund
		res.Bearer = BearerGuest
	case actor.Provider():
		res.PenaltyPercent = t.VehicleOwner.PenaltyFor(notice)
		res.RefundPercent = money.Percent(100)
		res.Bearer = BearerHost
	default:
		res.PenaltyPercent = t.VehicleRenter.PenaltyFor(notice)
		res.RefundPercent = money.Percent(100) - res.PenaltyPercent
		res.Bearer = BearerGuest
	}
	res.Penalty = money.Share(res.Basis, res.PenaltyPercent)
	if res.Bearer == BearerGuest && !res.InProgress {
		res.RefundAmount = res.Basis - res.Penalty
		return
	}
	res.RefundAmount = money.Share(res.Basis, res.RefundPercent)
}

func (e *Engine) property(res *Result, policy listings.CancellationPolicy, actor Role, notice time.Duration) error {
	if actor.Provider() {
		if res.InProgress {
			res.PenaltyPercent = e.Tables.PropertyHost.Otherwise
		} else {
			res.PenaltyPercent = e.Tables.PropertyHost.PenaltyFor(notice)
		}
		res.Penalty = money.Share(res.Basis, res.PenaltyPercent)
		res.RefundPercent = money.Percent(100)
		res.RefundAmount = res.Basis
		res.Bearer = BearerHost
		return nil
	}
	if policy == "" {
		policy = listings.PolicyModerate
	}
	rule, ok := e.Tables.Property[policy]
	if !ok {
		return listings.ErrUnknownPolicy
	}
	if res.InProgress {
		res.PenaltyPercent = rule.AfterStart
	} else {
		res.PenaltyPercent = rule.BeforeStart.PenaltyFor(notice)
	}
	res.Penalty = money.Share(res.Basis, res.PenaltyPercent)
	res.RefundAmount = res.Basis - res.Penalty
	res.RefundPercent = money.Percent(100) - res.PenaltyPercent
	res.Bearer = BearerGuest
	return nil
}

func capRefund(res *Result, paid int64) {
	if paid > 0 && res.RefundAmount > paid {
		res.RefundAmount = paid
	}
}

// remainingShare prorates the base on the units not yet consumed.
func remainingShare(s Subject, now time.Time) int64 {
	rest, ok := s.Range.Remaining(now)
	if !ok {
		return 0
	}
	total := units(s.Range, s.ServiceType)
	left := units(rest, s.ServiceType)
	if left > total {
		left = total
	}
	return money.Prorate(s.Base, int64(left), int64(total))
}

func units(dr daterange.DateRange, service listings.ServiceType) int {
	if service == listings.ServiceVehicle {
		d := dr.Duration()
		n := int((d + day - 1) / day)
		if n < 1 {
			n = 1
		}
		return n
	}
	n := dr.Nights()
	if n < 1 {
		n = 1
	}
	return n
}

func describe(service listings.ServiceType, actor Role, res Result, notice time.Duration) string {
	when := fmt.Sprintf("%s before start", humanize(notice))
	if res.InProgress {
		when = fmt.Sprintf("during the %s, on the remaining %s", stayWord(service), service.UnitName()+"s")
	}
	return fmt.Sprintf("%s cancels %s: %s penalty (%d), %s refunded (%d)",
		actor, when, pct(res.PenaltyPercent), res.Penalty, pct(res.RefundPercent), res.RefundAmount)
}

func stayWord(service listings.ServiceType) string {
	if service == listings.ServiceVehicle {
		return "rental"
	}
	return "stay"
}

func pct(r money.Rate) string {
	if r%100 == 0 {
		return fmt.Sprintf("%d%%", r/100)
	}
	return fmt.Sprintf("%.2f%%", r.Percent())
}

func humanize(d time.Duration) string {
	if d >= day {
		days := d / day
		hours := (d % day) / time.Hour
		if hours == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dh", d/time.Hour)
}
