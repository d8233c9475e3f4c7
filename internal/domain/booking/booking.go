package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayride/internal/domain/availability"
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/shared/rules"
)

var (
	ErrBookingNotFound  = errors.New("booking: not found")
	ErrGuestRequired    = errors.New("booking: guest id required")
	ErrInvalidGuests    = errors.New("booking: guests count must be positive")
	ErrListingRequired  = errors.New("booking: listing required")
	ErrConcurrentUpdate = errors.New("booking: concurrent update")
)

type BookingID string

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Occupying reports whether bookings in this status hold their dates on the calendar.
func (s Status) Occupying() bool {
	return s == StatusConfirmed || s == StatusInProgress
}

type Cancellation struct {
	Penalty     int64               `json:"penalty"`
	Refund      int64               `json:"refund"`
	Bearer      cancellation.Bearer `json:"bearer"`
	Reason      string              `json:"reason,omitempty"`
	CancelledBy cancellation.Role   `json:"cancelled_by"`
	CancelledAt time.Time           `json:"cancelled_at"`
	Description string              `json:"description"`
}

type Booking struct {
	ID                 BookingID
	ListingID          listings.ListingID
	ServiceType        listings.ServiceType
	GuestID            string
	HostID             listings.HostID
	Range              daterange.DateRange
	Guests             int
	Status             Status
	Price              pricing.Breakdown
	Options            pricing.Options
	PaymentMethod      string
	PaymentReference   string
	CancellationPolicy listings.CancellationPolicy
	Cancellation       *Cancellation
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Booking, error)
}

type CreateParams struct {
	ID            BookingID
	Listing       *listings.Listing
	GuestID       string
	Range         daterange.DateRange
	Guests        int
	Price         pricing.Breakdown
	Options       pricing.Options
	PaymentMethod string
	Now           time.Time
}

// NewBooking opens a pending booking. The listing's host, service type and
// cancellation policy are snapshotted so later listing edits do not leak in.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Listing == nil {
		return nil, ErrListingRequired
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if err := params.Range.Validate(); err != nil {
		return nil, rules.New(rules.KindInvalidDateRange, err.Error())
	}
	if err := params.Price.Verify(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	b := &Booking{
		ID:                 params.ID,
		ListingID:          params.Listing.ID,
		ServiceType:        params.Listing.ServiceType,
		GuestID:            params.GuestID,
		HostID:             params.Listing.Host,
		Range:              params.Range,
		Guests:             params.Guests,
		Status:             StatusPending,
		Price:              params.Price,
		Options:            params.Options,
		PaymentMethod:      params.PaymentMethod,
		CancellationPolicy: params.Listing.CancellationPolicy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range,
		Guests: b.Guests, Total: b.TotalPrice(), At: now,
	})
	return b, nil
}

func (b *Booking) TotalPrice() money.Money {
	return b.Price.Total()
}

func (b *Booking) DiscountAmount() int64 {
	return b.Price.TotalDiscount()
}

func (b *Booking) IsGuest(actorID string) bool {
	return actorID != "" && b.GuestID == actorID
}

func (b *Booking) IsHost(actorID string) bool {
	return actorID != "" && string(b.HostID) == actorID
}

// Confirm is the host or owner accepting a pending booking once payment is captured.
func (b *Booking) Confirm(paymentReference string, now time.Time) error {
	if b.Status.Terminal() {
		return rules.Newf(rules.KindTerminalBookingState, "booking is %s", b.Status)
	}
	if b.Status != StatusPending {
		return rules.Newf(rules.KindInvalidBookingState, "cannot confirm a %s booking", b.Status)
	}
	if b.Range.Started(now) {
		return rules.New(rules.KindInvalidBookingState, "start date has passed")
	}
	b.PaymentReference = paymentReference
	b.Status = StatusConfirmed
	b.touch(now)
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Total: b.TotalPrice(), At: b.UpdatedAt})
	return nil
}

// CancellationSubject snapshots what the cancellation engine needs.
func (b *Booking) CancellationSubject() cancellation.Subject {
	return cancellation.Subject{
		ServiceType: b.ServiceType,
		Policy:      b.CancellationPolicy,
		Range:       b.Range,
		Base:        b.Price.BasePrice,
		Paid:        b.Price.FinalTotal,
		Currency:    b.Price.Currency,
		Pending:     b.Status == StatusPending,
		Terminal:    b.Status.Terminal(),
	}
}

// Cancel applies a computed cancellation result.
func (b *Booking) Cancel(res cancellation.Result, actor cancellation.Role, reason string, now time.Time) error {
	if b.Status.Terminal() {
		return rules.Newf(rules.KindTerminalBookingState, "booking is %s", b.Status)
	}
	previous := b.Status
	b.Status = StatusCancelled
	b.touch(now)
	b.Cancellation = &Cancellation{
		Penalty:     res.Penalty,
		Refund:      res.RefundAmount,
		Bearer:      res.Bearer,
		Reason:      strings.TrimSpace(reason),
		CancelledBy: actor,
		CancelledAt: b.UpdatedAt,
		Description: res.Description,
	}
	b.Record(BookingCancelled{
		BookingID: b.ID, ListingID: b.ListingID, PreviousStatus: previous, CancelledBy: actor,
		Penalty: money.Money{Amount: res.Penalty, Currency: b.Price.Currency},
		Refund:  money.Money{Amount: res.RefundAmount, Currency: b.Price.Currency},
		Reason:  b.Cancellation.Reason, At: b.UpdatedAt,
	})
	return nil
}

// Overdue reports whether a pending booking should be expired: it waited
// longer than ttl for confirmation, or its start has passed.
func (b *Booking) Overdue(now time.Time, ttl time.Duration) bool {
	if b.Status != StatusPending {
		return false
	}
	if b.Range.Started(now) {
		return true
	}
	return ttl > 0 && now.Sub(b.CreatedAt) >= ttl
}

// Expire cancels an unconfirmed booking on behalf of the platform.
func (b *Booking) Expire(now time.Time) error {
	if b.Status != StatusPending {
		return rules.Newf(rules.KindInvalidBookingState, "cannot expire a %s booking", b.Status)
	}
	b.Status = StatusCancelled
	b.touch(now)
	b.Cancellation = &Cancellation{
		Bearer:      cancellation.BearerNone,
		Reason:      "expired",
		CancelledBy: cancellation.RoleSystem,
		CancelledAt: b.UpdatedAt,
		Description: "not confirmed in time",
	}
	b.Record(BookingExpired{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

// Advance applies the time-driven transitions and reports whether anything changed.
func (b *Booking) Advance(now time.Time) bool {
	changed := false
	if b.Status == StatusConfirmed && b.Range.Started(now) && !b.Range.Ended(now) {
		b.Status = StatusInProgress
		b.touch(now)
		b.Record(BookingStarted{BookingID: b.ID, At: b.UpdatedAt})
		changed = true
	}
	if b.Status.Occupying() && b.Range.Ended(now) {
		b.Status = StatusCompleted
		b.touch(now)
		b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, HostNet: b.Price.HostNetAmount, At: b.UpdatedAt})
		changed = true
	}
	return changed
}

// Reschedule overwrites dates, party size and price. The caller has already
// checked availability and priced the new values with the pricing engine.
func (b *Booking) Reschedule(dr daterange.DateRange, guests int, price pricing.Breakdown, now time.Time) error {
	if b.Status.Terminal() {
		return rules.Newf(rules.KindTerminalBookingState, "booking is %s", b.Status)
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return rules.Newf(rules.KindInvalidBookingState, "cannot modify a %s booking", b.Status)
	}
	if guests <= 0 {
		return ErrInvalidGuests
	}
	if err := price.Verify(); err != nil {
		return err
	}
	previous := b.Range
	delta := pricing.Delta(b.Price, price)
	b.Range = dr
	b.Guests = guests
	b.Price = price
	b.touch(now)
	b.Record(BookingModified{
		BookingID: b.ID, ListingID: b.ListingID, PreviousRange: previous, Range: dr, Guests: guests,
		Total: b.TotalPrice(), Delta: money.Money{Amount: delta, Currency: price.Currency}, At: b.UpdatedAt,
	})
	return nil
}

// Occupancy returns the calendar hold of a confirmed or running booking.
func (b *Booking) Occupancy() (availability.Occupancy, bool) {
	if !b.Status.Occupying() {
		return availability.Occupancy{}, false
	}
	return availability.Occupancy{Reference: string(b.ID), Range: b.Range}, true
}

// Occupancies keeps only bookings that hold their dates; pending ones never block.
func Occupancies(bookings []*Booking) []availability.Occupancy {
	var out []availability.Occupancy
	for _, b := range bookings {
		if o, ok := b.Occupancy(); ok {
			out = append(out, o)
		}
	}
	return out
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}
