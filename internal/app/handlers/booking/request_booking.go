package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/middleware"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/shared/rules"
)

const requestBookingKey = "booking.request"

var (
	ErrListingIDRequired = errors.New("booking: listing id required")
	ErrBookingIDRequired = errors.New("booking: booking id required")
)

type RequestBookingCommand struct {
	BookingID       string
	ListingID       string
	Actor           commands.Actor
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	WithDriver      bool
	VoucherCode     string
	PaymentMethod   string
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) Principal() commands.Actor { return c.Actor }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c RequestBookingCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return ErrListingIDRequired
	}
	return nil
}

// RequestBookingHandler opens a pending booking. The calendar check here is a
// pre-filter only: pending bookings do not hold dates, and the atomic check
// happens when the host confirms.
type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Pricer     support.Pricer
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (res *dto.Booking, err error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = finish(err); err != nil {
			res = nil
		}
	}()

	if !cancellation.Role(cmd.Actor.Role).Traveler() {
		return nil, rules.New(rules.KindNotAllowed, "only guests and renters can book")
	}
	now := support.Now(h.Clock)
	dr, err := support.Range(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	if dr.Started(now) {
		return nil, rules.New(rules.KindInvalidDateRange, "start is in the past")
	}
	listing, err := support.ActiveListing(ctx, unit, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnedBy(cmd.Actor.ID) {
		return nil, rules.New(rules.KindNotAllowed, "hosts cannot book their own listing")
	}
	price, opts, err := h.Pricer.Price(ctx, support.StayRequest{
		Listing:     listing,
		Range:       dr,
		Guests:      cmd.Guests,
		WithDriver:  cmd.WithDriver,
		VoucherCode: cmd.VoucherCode,
	}, now)
	if err != nil {
		return nil, err
	}
	cal, _, err := support.Calendar(ctx, unit, listing.ID)
	if err != nil {
		return nil, err
	}
	if err := cal.Check(dr, ""); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(cmd.BookingID)
	if id == "" {
		id = uuid.NewString()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:            domainbooking.BookingID(id),
		Listing:       listing,
		GuestID:       cmd.Actor.ID,
		Range:         dr,
		Guests:        cmd.Guests,
		Price:         price,
		Options:       opts,
		PaymentMethod: cmd.PaymentMethod,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "booking requested",
		"booking_id", booking.ID, "listing_id", listing.ID, "total", price.FinalTotal)
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
