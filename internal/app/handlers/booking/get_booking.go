package booking

import (
	"context"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/policies"
	"stayride/internal/app/queries"
	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/shared/rules"
)

const (
	getBookingKey          = "booking.get"
	cancellationPreviewKey = "booking.cancellation_preview"
)

type GetBookingQuery struct {
	BookingID string
	Actor     commands.Actor
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) Principal() commands.Actor { return q.Actor }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Booking{}, err
	}
	defer finish(nil)

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if !support.CanView(booking, q.Actor) {
		return dto.Booking{}, rules.New(rules.KindNotAllowed, "actor is not a party to this booking")
	}
	return dto.MapBooking(booking), nil
}

// CancellationPreviewQuery computes what cancelling now would cost, without
// touching the booking.
type CancellationPreviewQuery struct {
	BookingID string
	Actor     commands.Actor
}

func (q CancellationPreviewQuery) Key() string { return cancellationPreviewKey }

func (q CancellationPreviewQuery) Principal() commands.Actor { return q.Actor }

type CancellationPreviewHandler struct {
	UoWFactory   uow.UoWFactory
	Cancellation *cancellation.Engine
	Clock        policies.Clock
}

func (h *CancellationPreviewHandler) Handle(ctx context.Context, q CancellationPreviewQuery) (dto.CancellationPreview, error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.CancellationPreview{}, err
	}
	defer finish(nil)

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.CancellationPreview{}, err
	}
	role, err := support.BookingRole(booking, q.Actor)
	if err != nil {
		return dto.CancellationPreview{}, err
	}
	res, err := engine(h.Cancellation).Compute(booking.CancellationSubject(), role, support.Now(h.Clock))
	if err != nil {
		return dto.CancellationPreview{}, err
	}
	return dto.CancellationPreview{
		BookingID:      string(booking.ID),
		Actor:          string(role),
		Penalty:        res.Penalty,
		RefundAmount:   res.RefundAmount,
		PenaltyPercent: formatRate(res.PenaltyPercent.Percent()),
		RefundPercent:  formatRate(res.RefundPercent.Percent()),
		Basis:          res.Basis,
		Currency:       res.Currency,
		Bearer:         string(res.Bearer),
		InProgress:     res.InProgress,
		Description:    res.Description,
	}, nil
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[CancellationPreviewQuery, dto.CancellationPreview] = (*CancellationPreviewHandler)(nil)
