package modification

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
	domainmodification "stayride/internal/domain/modification"
)

const proposeModificationKey = "modification.propose"

var (
	ErrBookingIDRequired = errors.New("modification: booking id required")
	ErrRequestIDRequired = errors.New("modification: request id required")
)

type ProposeModificationCommand struct {
	RequestID       string
	BookingID       string
	Actor           commands.Actor
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	Message         string
	IdempotencyKeyV string
}

func (c ProposeModificationCommand) Key() string { return proposeModificationKey }

func (c ProposeModificationCommand) Principal() commands.Actor { return c.Actor }

func (c ProposeModificationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ProposeModificationCommand) ResultPrototype() any { return &dto.ModificationOutcome{} }

func (c ProposeModificationCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return ErrBookingIDRequired
	}
	return nil
}

// ProposeModificationHandler changes a pending booking in place, or opens a
// change request against a confirmed one.
type ProposeModificationHandler struct {
	UoWFactory uow.UoWFactory
	Workflow   *domainmodification.Workflow
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *ProposeModificationHandler) Handle(ctx context.Context, cmd ProposeModificationCommand) (res *dto.ModificationOutcome, err error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = finish(err); err != nil {
			res = nil
		}
	}()

	dr, err := support.Range(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	_, occupied, err := support.Calendar(ctx, unit, booking.ListingID)
	if err != nil {
		return nil, err
	}
	pending, err := support.PendingRequest(ctx, unit, booking.ID)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(cmd.RequestID)
	if id == "" {
		id = uuid.NewString()
	}
	outcome, err := workflow(h.Workflow).Propose(domainmodification.ProposeInput{
		RequestID:   domainmodification.RequestID(id),
		Booking:     booking,
		Listing:     listing,
		RequesterID: cmd.Actor.ID,
		Change:      domainmodification.Change{Range: dr, Guests: cmd.Guests, Message: cmd.Message},
		Calendar:    occupied,
		Pending:     pending,
		Now:         support.Now(h.Clock),
	})
	if err != nil {
		return nil, err
	}

	log := support.Logger(h.Logger)
	result := &dto.ModificationOutcome{Applied: outcome.Applied, PriceDelta: outcome.Delta}
	if outcome.Applied {
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return nil, err
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, booking); err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "pending booking modified", "booking_id", booking.ID, "delta", outcome.Delta)
		view := dto.MapBooking(booking)
		result.Booking = &view
		return result, nil
	}

	req := outcome.Request
	if err := unit.Modifications().Save(ctx, req); err != nil {
		return nil, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, req); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "modification requested", "booking_id", booking.ID, "request_id", req.ID, "delta", req.PriceDelta)
	view := dto.MapModification(req)
	result.Modification = &view
	return result, nil
}

func workflow(w *domainmodification.Workflow) *domainmodification.Workflow {
	if w == nil {
		return domainmodification.NewWorkflow(nil)
	}
	return w
}

var _ commands.Handler[ProposeModificationCommand, *dto.ModificationOutcome] = (*ProposeModificationHandler)(nil)
var _ middleware.IdempotentCommand = ProposeModificationCommand{}
