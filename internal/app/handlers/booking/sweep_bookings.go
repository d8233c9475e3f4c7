package booking

import (
	"context"
	"log/slog"
	"time"

	"stayride/internal/app/commands"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
)

const sweepBookingsKey = "booking.sweep"

// SweepBookingsCommand is issued by the scheduler, never by an HTTP actor.
type SweepBookingsCommand struct {
	PendingTTL time.Duration
}

func (c SweepBookingsCommand) Key() string { return sweepBookingsKey }

type SweepBookingsResult struct {
	Expired   int `json:"expired"`
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Lapsed    int `json:"lapsed"`
}

// SweepBookingsHandler applies the time-driven transitions: pending bookings
// left unconfirmed too long are expired, confirmed ones move through
// in_progress to completed.
type SweepBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *SweepBookingsHandler) Handle(ctx context.Context, cmd SweepBookingsCommand) (res *SweepBookingsResult, err error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = finish(err); err != nil {
			res = nil
		}
	}()

	now := support.Now(h.Clock)
	res = &SweepBookingsResult{}

	pending, err := unit.Bookings().ListByStatus(ctx, domainbooking.StatusPending)
	if err != nil {
		return nil, err
	}
	for _, b := range pending {
		if !b.Overdue(now, cmd.PendingTTL) {
			continue
		}
		if err := b.Expire(now); err != nil {
			return nil, err
		}
		if err := h.store(ctx, unit, b); err != nil {
			return nil, err
		}
		res.Expired++
	}

	active, err := unit.Bookings().ListByStatus(ctx, domainbooking.StatusConfirmed, domainbooking.StatusInProgress)
	if err != nil {
		return nil, err
	}
	for _, b := range active {
		before := b.Status
		if !b.Advance(now) {
			continue
		}
		if err := h.store(ctx, unit, b); err != nil {
			return nil, err
		}
		if before == domainbooking.StatusConfirmed {
			lapsed, err := support.LapsePendingRequest(ctx, unit, b.ID, "booking started", now)
			if err != nil {
				return nil, err
			}
			if lapsed != nil {
				if err := outbox.Stage(ctx, h.Outbox, h.Encoder, lapsed); err != nil {
					return nil, err
				}
				res.Lapsed++
			}
		}
		if before == domainbooking.StatusConfirmed && b.Status == domainbooking.StatusInProgress {
			res.Started++
		}
		if b.Status == domainbooking.StatusCompleted {
			res.Completed++
		}
	}
	if res.Expired+res.Started+res.Completed > 0 {
		support.Logger(h.Logger).InfoContext(ctx, "bookings swept",
			"expired", res.Expired, "started", res.Started, "completed", res.Completed, "lapsed", res.Lapsed)
	}
	return res, nil
}

func (h *SweepBookingsHandler) store(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return outbox.Stage(ctx, h.Outbox, h.Encoder, b)
}

var _ commands.Handler[SweepBookingsCommand, *SweepBookingsResult] = (*SweepBookingsHandler)(nil)
