// Package support holds helpers shared by the application handlers.
package support

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"stayride/internal/app/commands"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/cancellation"
	domainlistings "stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	domainpricing "stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/rules"
)

// Now reads the clock, falling back to the system clock.
func Now(clock policies.Clock) time.Time {
	if clock == nil {
		return policies.SystemClock{}.Now()
	}
	return clock.Now().UTC()
}

// Range builds a stay range, reporting malformed bounds as InvalidDateRange.
func Range(checkIn, checkOut time.Time) (daterange.DateRange, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return daterange.DateRange{}, rules.New(rules.KindInvalidDateRange, err.Error())
	}
	return dr, nil
}

// BookingRole resolves which side of the booking the actor stands on and
// refuses actors that are neither its guest nor its host.
func BookingRole(b *domainbooking.Booking, actor commands.Actor) (cancellation.Role, error) {
	role := cancellation.Role(actor.Role)
	switch {
	case role.Traveler() && b.IsGuest(actor.ID):
		return role, nil
	case role.Provider() && b.IsHost(actor.ID):
		return role, nil
	}
	return "", rules.New(rules.KindNotAllowed, "actor is not a party to this booking")
}

// CanView reports whether the actor may read the booking.
func CanView(b *domainbooking.Booking, actor commands.Actor) bool {
	return b.IsGuest(actor.ID) || b.IsHost(actor.ID)
}

// Calendar loads the listing calendar and the occupancy snapshot used by the
// change workflow.
func Calendar(ctx context.Context, unit uow.UnitOfWork, listingID domainlistings.ListingID) (*domainavailability.AvailabilityCalendar, domainmodification.Occupied, error) {
	cal, err := unit.Availability().Calendar(ctx, listingID)
	if err != nil {
		return nil, domainmodification.Occupied{}, err
	}
	return cal, domainmodification.Occupied{Existing: cal.Occupancies(), Blocked: cal.BlockedRanges()}, nil
}

// ActiveListing loads a listing that accepts bookings.
func ActiveListing(ctx context.Context, unit uow.UnitOfWork, id string) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(id))
	if err != nil {
		return nil, err
	}
	if listing.State != domainlistings.ListingActive {
		return nil, rules.New(rules.KindNotAllowed, "listing is not open for booking")
	}
	return listing, nil
}

// PendingRequest returns the booking's outstanding change request, or nil.
func PendingRequest(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID) (*domainmodification.Request, error) {
	req, err := unit.Modifications().PendingForBooking(ctx, id)
	if errors.Is(err, domainmodification.ErrRequestNotFound) {
		return nil, nil
	}
	return req, err
}

// LapsePendingRequest closes the booking's outstanding change request, if
// any, and returns it so its event can be staged.
func LapsePendingRequest(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID, reason string, now time.Time) (*domainmodification.Request, error) {
	req, err := PendingRequest(ctx, unit, id)
	if err != nil || req == nil {
		return nil, err
	}
	if err := req.Lapse(reason, now); err != nil {
		return nil, err
	}
	if err := unit.Modifications().Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// StayRequest is a stay to be priced.
type StayRequest struct {
	Listing     *domainlistings.Listing
	Range       daterange.DateRange
	Guests      int
	WithDriver  bool
	VoucherCode string
}

// Pricer validates a stay against the listing and prices it through the one
// pricing engine, resolving the voucher through the voucher collaborator.
type Pricer struct {
	Engine   *domainpricing.Engine
	Vouchers policies.VoucherPort
}

func (p Pricer) Price(ctx context.Context, req StayRequest, now time.Time) (domainpricing.Breakdown, domainpricing.Options, error) {
	l := req.Listing
	units, _ := domainpricing.BillingUnits(req.Range, l.ServiceType, l.Pricing.HasHourlyRate())
	if err := l.ValidateStay(units, req.Guests); err != nil {
		return domainpricing.Breakdown{}, domainpricing.Options{}, err
	}
	opts := domainpricing.Options{WithDriver: req.WithDriver && l.ServiceType == domainlistings.ServiceVehicle}
	if code := strings.TrimSpace(req.VoucherCode); code != "" {
		voucher := &domainpricing.Voucher{Code: code, Reason: "unknown code"}
		if p.Vouchers != nil {
			v, err := p.Vouchers.Validate(ctx, code, l, now)
			if err != nil {
				return domainpricing.Breakdown{}, domainpricing.Options{}, err
			}
			if v != nil {
				voucher = v
			}
		}
		opts.Voucher = voucher
	}
	engine := p.Engine
	if engine == nil {
		engine = domainpricing.NewEngine(nil)
	}
	price, err := engine.Quote(l, req.Range, opts)
	if err != nil {
		return domainpricing.Breakdown{}, domainpricing.Options{}, err
	}
	return price, opts, nil
}

// Logger falls back to the default logger.
func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
