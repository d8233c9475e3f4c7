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
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/money"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID       string
	Actor           commands.Actor
	Reason          string
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) Principal() commands.Actor { return c.Actor }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &CancelBookingResult{} }

func (c CancelBookingCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

type CancelBookingResult struct {
	Booking         dto.Booking `json:"booking"`
	RefundReference string      `json:"refund_reference,omitempty"`
}

type CancelBookingHandler struct {
	UoWFactory   uow.UoWFactory
	Cancellation *cancellation.Engine
	Payments     policies.PaymentsPort
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Clock        policies.Clock
	Logger       *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (res *CancelBookingResult, err error) {
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
	now := support.Now(h.Clock)
	outcome, err := engine(h.Cancellation).Compute(booking.CancellationSubject(), role, now)
	if err != nil {
		return nil, err
	}
	held := booking.Status.Occupying()
	if err := booking.Cancel(outcome, role, cmd.Reason, now); err != nil {
		return nil, err
	}

	var cal *domainavailability.AvailabilityCalendar
	if held {
		cal, _, err = support.Calendar(ctx, unit, booking.ListingID)
		if err != nil {
			return nil, err
		}
		if err := cal.Release(string(booking.ID), now); err != nil && !errors.Is(err, domainavailability.ErrRangeNotFound) {
			return nil, err
		}
		if err := unit.Availability().Save(ctx, cal); err != nil {
			return nil, err
		}
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	sources := []events.Source{booking}
	if cal != nil {
		sources = append(sources, cal)
	}
	lapsed, err := support.LapsePendingRequest(ctx, unit, booking.ID, "booking cancelled", now)
	if err != nil {
		return nil, err
	}
	if lapsed != nil {
		sources = append(sources, lapsed)
	}

	result := &CancelBookingResult{}
	if outcome.RefundAmount > 0 {
		ref, err := h.Payments.Refund(ctx, string(booking.ID), money.Money{Amount: outcome.RefundAmount, Currency: booking.Price.Currency})
		if err != nil {
			return nil, err
		}
		result.RefundReference = ref
	}
	if err = outbox.Stage(ctx, h.Outbox, h.Encoder, sources...); err != nil {
		return nil, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "booking cancelled",
		"booking_id", booking.ID, "by", role, "penalty", outcome.Penalty, "refund", outcome.RefundAmount)
	result.Booking = dto.MapBooking(booking)
	return result, nil
}

func engine(e *cancellation.Engine) *cancellation.Engine {
	if e == nil {
		return cancellation.NewEngine()
	}
	return e
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
var _ middleware.IdempotentCommand = CancelBookingCommand{}
