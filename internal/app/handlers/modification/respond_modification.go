package modification

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
	domainmodification "stayride/internal/domain/modification"
	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/shared/rules"
)

const (
	approveModificationKey  = "modification.approve"
	rejectModificationKey   = "modification.reject"
	withdrawModificationKey = "modification.withdraw"
)

var ErrPaymentsRequired = errors.New("modification: payments collaborator required")

// RespondCommand carries a host answer or a guest withdrawal on a change request.
type RespondCommand struct {
	RequestID       string
	Actor           commands.Actor
	Message         string
	IdempotencyKeyV string
	action          string
}

func ApproveCommand(c RespondCommand) RespondCommand {
	c.action = approveModificationKey
	return c
}

func RejectCommand(c RespondCommand) RespondCommand {
	c.action = rejectModificationKey
	return c
}

func WithdrawCommand(c RespondCommand) RespondCommand {
	c.action = withdrawModificationKey
	return c
}

func (c RespondCommand) Key() string { return c.action }

func (c RespondCommand) Principal() commands.Actor { return c.Actor }

func (c RespondCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RespondCommand) ResultPrototype() any { return &dto.ModificationOutcome{} }

func (c RespondCommand) Validate() error {
	if strings.TrimSpace(c.RequestID) == "" {
		return ErrRequestIDRequired
	}
	return nil
}

type RespondHandler struct {
	UoWFactory uow.UoWFactory
	Workflow   *domainmodification.Workflow
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

// Register binds the three response commands on the bus.
func (h *RespondHandler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[RespondCommand, *dto.ModificationOutcome](bus, approveModificationKey, commands.HandlerFunc[RespondCommand, *dto.ModificationOutcome](h.Approve))
	commands.RegisterHandler[RespondCommand, *dto.ModificationOutcome](bus, rejectModificationKey, commands.HandlerFunc[RespondCommand, *dto.ModificationOutcome](h.Reject))
	commands.RegisterHandler[RespondCommand, *dto.ModificationOutcome](bus, withdrawModificationKey, commands.HandlerFunc[RespondCommand, *dto.ModificationOutcome](h.Withdraw))
}

// Approve runs the approval guards, charges any surplus, then applies the
// change to the booking and moves its calendar hold. A cheaper change is
// refunded after approval.
func (h *RespondHandler) Approve(ctx context.Context, cmd RespondCommand) (res *dto.ModificationOutcome, err error) {
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

	req, err := unit.Modifications().ByID(ctx, domainmodification.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	cal, occupied, err := support.Calendar(ctx, unit, booking.ListingID)
	if err != nil {
		return nil, err
	}
	wf := workflow(h.Workflow)
	in := domainmodification.ApproveInput{
		Request:  req,
		Booking:  booking,
		ActorID:  cmd.Actor.ID,
		Message:  cmd.Message,
		Calendar: occupied,
		Now:      support.Now(h.Clock),
	}
	if err = wf.CheckApproval(in); err != nil {
		return nil, err
	}
	now := in.Now

	if surplus := req.Surplus(); surplus > 0 {
		charged := money.Money{Amount: surplus, Currency: req.Currency}
		in.SurplusReference, err = h.Payments.ChargeSurplus(ctx, string(booking.ID), charged)
		if err != nil {
			return nil, err
		}
		unit.OnRollback(func(ctx context.Context) {
			_, _ = h.Payments.Refund(ctx, string(booking.ID), charged)
		})
	}

	if err = wf.Approve(in); err != nil {
		return nil, err
	}
	if err = cal.Move(string(booking.ID), booking.Range, now); err != nil {
		return nil, err
	}
	if err = unit.Availability().Save(ctx, cal); err != nil {
		if errors.Is(err, domainavailability.ErrConcurrentUpdate) {
			return nil, rules.New(rules.KindDateConflict, "calendar changed while approving")
		}
		return nil, err
	}
	if refund := req.RefundDue(); refund > 0 {
		ref, refundErr := h.Payments.Refund(ctx, string(booking.ID), money.Money{Amount: refund, Currency: req.Currency})
		if refundErr != nil {
			err = refundErr
			return nil, err
		}
		req.AttachRefund(ref)
	}
	if err = unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err = unit.Modifications().Save(ctx, req); err != nil {
		return nil, err
	}
	if err = outbox.Stage(ctx, h.Outbox, h.Encoder, req, booking, cal); err != nil {
		return nil, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "modification approved",
		"booking_id", booking.ID, "request_id", req.ID, "delta", req.PriceDelta)
	view, mod := dto.MapBooking(booking), dto.MapModification(req)
	return &dto.ModificationOutcome{Applied: true, Booking: &view, Modification: &mod, PriceDelta: req.PriceDelta}, nil
}

func (h *RespondHandler) Reject(ctx context.Context, cmd RespondCommand) (*dto.ModificationOutcome, error) {
	return h.close(ctx, cmd, func(req *domainmodification.Request) error {
		return req.Reject(cmd.Actor.ID, cmd.Message, support.Now(h.Clock))
	})
}

func (h *RespondHandler) Withdraw(ctx context.Context, cmd RespondCommand) (*dto.ModificationOutcome, error) {
	return h.close(ctx, cmd, func(req *domainmodification.Request) error {
		return req.Withdraw(cmd.Actor.ID, support.Now(h.Clock))
	})
}

// close ends a request without touching the booking.
func (h *RespondHandler) close(ctx context.Context, cmd RespondCommand, transition func(*domainmodification.Request) error) (res *dto.ModificationOutcome, err error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = finish(err); err != nil {
			res = nil
		}
	}()

	req, err := unit.Modifications().ByID(ctx, domainmodification.RequestID(cmd.RequestID))
	if err != nil {
		return nil, err
	}
	if err := transition(req); err != nil {
		return nil, err
	}
	if err := unit.Modifications().Save(ctx, req); err != nil {
		return nil, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, req); err != nil {
		return nil, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "modification closed", "request_id", req.ID, "status", req.Status)
	mod := dto.MapModification(req)
	return &dto.ModificationOutcome{Modification: &mod, PriceDelta: req.PriceDelta}, nil
}

var _ middleware.IdempotentCommand = RespondCommand{}
