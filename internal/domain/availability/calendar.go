package availability

import (
	"context"
	"errors"
	"time"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/rules"
)

var (
	ErrRangeNotFound      = errors.New("availability: range not found")
	ErrConcurrentUpdate   = errors.New("availability: calendar changed concurrently")
	ErrReferenceRequired  = errors.New("availability: block reference required")
	ErrDuplicateReference = errors.New("availability: reference already holds a block")
)

type BlockReason string

const (
	ReasonBooking   BlockReason = "BOOKING"
	ReasonHostBlock BlockReason = "HOST_BLOCK"
)

type Block struct {
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
	CreatedAt time.Time
}

// AvailabilityCalendar is the per-listing record of held dates. Storage saves it
// with a version guard so two confirmations racing for the same dates cannot both win.
type AvailabilityCalendar struct {
	ListingID listings.ListingID
	Blocks    []Block
	Version   int64
	events.EventRecorder
}

type Repository interface {
	Calendar(ctx context.Context, id listings.ListingID) (*AvailabilityCalendar, error)
	Save(ctx context.Context, calendar *AvailabilityCalendar) error
}

func NewCalendar(id listings.ListingID) *AvailabilityCalendar {
	return &AvailabilityCalendar{ListingID: id}
}

// Occupancies returns the confirmed bookings held by the calendar.
func (c *AvailabilityCalendar) Occupancies() []Occupancy {
	var out []Occupancy
	for _, b := range c.Blocks {
		if b.Reason == ReasonBooking {
			out = append(out, Occupancy{Reference: b.Reference, Range: b.Range})
		}
	}
	return out
}

// BlockedRanges returns the periods closed by the host.
func (c *AvailabilityCalendar) BlockedRanges() []daterange.DateRange {
	var out []daterange.DateRange
	for _, b := range c.Blocks {
		if b.Reason != ReasonBooking {
			out = append(out, b.Range)
		}
	}
	return out
}

func (c *AvailabilityCalendar) CanReserve(r daterange.DateRange) bool {
	return !HasConflict(c.Occupancies(), c.BlockedRanges(), r)
}

// Check returns a DateConflict violation when r collides with anything other than exclude.
func (c *AvailabilityCalendar) Check(r daterange.DateRange, exclude string) error {
	conflict, found := FindConflict(Excluding(c.Occupancies(), exclude), c.BlockedRanges(), r)
	if !found {
		return nil
	}
	if conflict.Blocked {
		return rules.Newf(rules.KindDateConflict, "dates blocked from %s to %s", day(conflict.Range.CheckIn), day(conflict.Range.CheckOut))
	}
	return rules.Newf(rules.KindDateConflict, "dates taken from %s to %s", day(conflict.Range.CheckIn), day(conflict.Range.CheckOut))
}

// Reserve holds r for a confirmed booking.
func (c *AvailabilityCalendar) Reserve(r daterange.DateRange, bookingID string, now time.Time) error {
	if bookingID == "" {
		return ErrReferenceRequired
	}
	if c.indexOf(bookingID) >= 0 {
		return ErrDuplicateReference
	}
	if err := c.Check(r, ""); err != nil {
		c.Record(CalendarOverbookingPrevented{ListingID: string(c.ListingID), Range: r, At: now.UTC()})
		return err
	}
	c.Blocks = append(c.Blocks, Block{Range: r, Reason: ReasonBooking, Reference: bookingID, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{ListingID: string(c.ListingID), Range: r, Reason: ReasonBooking, Reference: bookingID, At: now.UTC()})
	return nil
}

// Move shifts a booking's hold to a new range, ignoring the booking's own current hold.
func (c *AvailabilityCalendar) Move(bookingID string, r daterange.DateRange, now time.Time) error {
	idx := c.indexOf(bookingID)
	if idx < 0 {
		return c.Reserve(r, bookingID, now)
	}
	if err := c.Check(r, bookingID); err != nil {
		c.Record(CalendarOverbookingPrevented{ListingID: string(c.ListingID), Range: r, At: now.UTC()})
		return err
	}
	previous := c.Blocks[idx].Range
	c.Blocks[idx].Range = r
	c.Record(CalendarReleased{ListingID: string(c.ListingID), Range: previous, Reason: ReasonBooking, Reference: bookingID, At: now.UTC()})
	c.Record(CalendarBlocked{ListingID: string(c.ListingID), Range: r, Reason: ReasonBooking, Reference: bookingID, At: now.UTC()})
	return nil
}

// BlockRange closes dates on behalf of the host.
func (c *AvailabilityCalendar) BlockRange(r daterange.DateRange, reference string, now time.Time) error {
	if reference == "" {
		return ErrReferenceRequired
	}
	if c.indexOf(reference) >= 0 {
		return ErrDuplicateReference
	}
	if err := c.Check(r, ""); err != nil {
		return err
	}
	c.Blocks = append(c.Blocks, Block{Range: r, Reason: ReasonHostBlock, Reference: reference, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{ListingID: string(c.ListingID), Range: r, Reason: ReasonHostBlock, Reference: reference, At: now.UTC()})
	return nil
}

func (c *AvailabilityCalendar) Release(reference string, now time.Time) error {
	idx := c.indexOf(reference)
	if idx == -1 {
		return ErrRangeNotFound
	}
	removed := c.Blocks[idx]
	c.Blocks = append(c.Blocks[:idx], c.Blocks[idx+1:]...)
	c.Record(CalendarReleased{ListingID: string(c.ListingID), Range: removed.Range, Reason: removed.Reason, Reference: reference, At: now.UTC()})
	return nil
}

// Holds reports whether reference currently holds dates.
func (c *AvailabilityCalendar) Holds(reference string) bool {
	return c.indexOf(reference) >= 0
}

func (c *AvailabilityCalendar) indexOf(reference string) int {
	for i, b := range c.Blocks {
		if b.Reference == reference {
			return i
		}
	}
	return -1
}

func day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
