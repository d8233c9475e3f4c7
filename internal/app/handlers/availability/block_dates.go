package availability

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
	domainavailability "stayride/internal/domain/availability"
	domainlistings "stayride/internal/domain/listings"
	"stayride/internal/domain/shared/rules"
)

const (
	blockDatesKey   = "availability.block"
	unblockDatesKey = "availability.unblock"
)

var ErrListingIDRequired = errors.New("availability: listing id required")

// BlockDatesCommand closes a period on the host's own calendar.
type BlockDatesCommand struct {
	ListingID       string
	Actor           commands.Actor
	From            time.Time
	To              time.Time
	Reference       string
	IdempotencyKeyV string
}

func (c BlockDatesCommand) Key() string { return blockDatesKey }

func (c BlockDatesCommand) Principal() commands.Actor { return c.Actor }

func (c BlockDatesCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c BlockDatesCommand) ResultPrototype() any { return &dto.Calendar{} }

func (c BlockDatesCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return ErrListingIDRequired
	}
	return nil
}

// UnblockDatesCommand reopens a host block by its reference.
type UnblockDatesCommand struct {
	ListingID string
	Actor     commands.Actor
	Reference string
}

func (c UnblockDatesCommand) Key() string { return unblockDatesKey }

func (c UnblockDatesCommand) Principal() commands.Actor { return c.Actor }

type CalendarHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *CalendarHandler) Block(ctx context.Context, cmd BlockDatesCommand) (res *dto.Calendar, err error) {
	dr, err := support.Range(cmd.From, cmd.To)
	if err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(cmd.Reference)
	if ref == "" {
		ref = "block-" + uuid.NewString()
	}
	return h.update(ctx, cmd.ListingID, cmd.Actor, func(cal *domainavailability.AvailabilityCalendar, now time.Time) error {
		return cal.BlockRange(dr, ref, now)
	})
}

func (h *CalendarHandler) Unblock(ctx context.Context, cmd UnblockDatesCommand) (*dto.Calendar, error) {
	return h.update(ctx, cmd.ListingID, cmd.Actor, func(cal *domainavailability.AvailabilityCalendar, now time.Time) error {
		for _, b := range cal.Blocks {
			if b.Reference == cmd.Reference && b.Reason == domainavailability.ReasonBooking {
				return rules.New(rules.KindNotAllowed, "booking holds are released by cancelling the booking")
			}
		}
		return cal.Release(cmd.Reference, now)
	})
}

func (h *CalendarHandler) update(ctx context.Context, listingID string, actor commands.Actor, change func(*domainavailability.AvailabilityCalendar, time.Time) error) (res *dto.Calendar, err error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err = finish(err); err != nil {
			res = nil
		}
	}()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(actor.ID) {
		return nil, rules.New(rules.KindNotAllowed, "only the host or owner manages the calendar")
	}
	cal, err := unit.Availability().Calendar(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if err := change(cal, support.Now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, cal); err != nil {
		if errors.Is(err, domainavailability.ErrConcurrentUpdate) {
			return nil, rules.New(rules.KindDateConflict, "calendar changed concurrently")
		}
		return nil, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, cal); err != nil {
		return nil, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "calendar updated", "listing_id", listing.ID, "version", cal.Version)
	out := dto.MapCalendar(cal, time.Time{}, time.Time{})
	return &out, nil
}

// Register binds the calendar commands on the bus.
func (h *CalendarHandler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[BlockDatesCommand, *dto.Calendar](bus, blockDatesKey, commands.HandlerFunc[BlockDatesCommand, *dto.Calendar](h.Block))
	commands.RegisterHandler[UnblockDatesCommand, *dto.Calendar](bus, unblockDatesKey, commands.HandlerFunc[UnblockDatesCommand, *dto.Calendar](h.Unblock))
}

var _ middleware.IdempotentCommand = BlockDatesCommand{}
