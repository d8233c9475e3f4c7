package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/middleware"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/shared/rules"
)

const confirmBookingKey = "booking.confirm"

var ErrPaymentsRequired = errors.New("booking: payments collaborator required")

type ConfirmBookingCommand struct {
	BookingID       string
	Actor           commands.Actor
	IdempotencyKeyV string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

func (c ConfirmBookingCommand) Principal() commands.Actor { return c.Actor }

func (c ConfirmBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ConfirmBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c ConfirmBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

// ConfirmBookingHandler is the host accepting a pending booking. The dates are
// reserved on the listing calendar, whose versioned save is the atomic guard
// against two overlapping confirmations.
type ConfirmBookingHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Vouchers   policies.VoucherPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (res *dto.Booking, err error) {
	if h.Payments == nil {
		return nil, ErrPaymentsRequired
	}
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = finish(err); err != nil {
			res = nil
		}
	}()

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	role, err := support.BookingRole(booking, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if !role.Provider() {
		return nil, rules.New(rules.KindNotAllowed, "only the host or owner can confirm")
	}
	if booking.Status != domainbooking.StatusPending {
		if booking.Status.Terminal() {
			return nil, rules.Newf(rules.KindTerminalBookingState, "booking is %s", booking.Status)
		}
		return nil, rules.Newf(rules.KindInvalidBookingState, "cannot confirm a %s booking", booking.Status)
	}
	now := support.Now(h.Clock)
	cal, _, err := support.Calendar(ctx, unit, booking.ListingID)
	if err != nil {
		return nil, err
	}
	if err := cal.Reserve(booking.Range, string(booking.ID), now); err != nil {
		return nil, err
	}

	ref, err := h.Payments.Capture(ctx, string(booking.ID), booking.TotalPrice())
	if err != nil {
		return nil, err
	}
	// From here on the capture must be reversed if the booking is not stored.
	total := booking.TotalPrice()
	unit.OnRollback(func(ctx context.Context) {
		_, _ = h.Payments.Refund(ctx, string(booking.ID), total)
	})

	if err = booking.Confirm(ref, now); err != nil {
		return nil, err
	}
	if err = unit.Availability().Save(ctx, cal); err != nil {
		if errors.Is(err, domainavailability.ErrConcurrentUpdate) {
			return nil, rules.New(rules.KindDateConflict, "dates were taken by a concurrent confirmation")
		}
		return nil, err
	}
	if err = unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if code := booking.Price.VoucherCode; code != "" && !booking.Price.VoucherRejected() && h.Vouchers != nil {
		if err = h.Vouchers.Redeem(ctx, code, string(booking.ID)); err != nil {
			return nil, err
		}
	}
	if err = outbox.Stage(ctx, h.Outbox, h.Encoder, booking, cal); err != nil {
		return nil, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "booking confirmed",
		"booking_id", booking.ID, "listing_id", booking.ListingID, "payment_reference", ref)
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[ConfirmBookingCommand, *dto.Booking] = (*ConfirmBookingHandler)(nil)
var _ middleware.IdempotentCommand = ConfirmBookingCommand{}
