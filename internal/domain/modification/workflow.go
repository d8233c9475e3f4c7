package modification

import (
	"errors"
	"strings"
	"time"

	"stayride/internal/domain/availability"
	"stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/rules"
)

var ErrMissingInput = errors.New("modification: booking and listing are required")

// Change is what the guest asks for.
type Change struct {
	Range   daterange.DateRange
	Guests  int
	Message string
}

// Occupied is the read snapshot of the listing's calendar.
type Occupied struct {
	Existing []availability.Occupancy
	Blocked  []daterange.DateRange
}

type ProposeInput struct {
	RequestID   RequestID
	Booking     *booking.Booking
	Listing     *listings.Listing
	RequesterID string
	Change      Change
	Calendar    Occupied
	// Pending is the booking's outstanding request, if any.
	Pending *Request
	Now     time.Time
}

// Outcome tells the caller which branch ran: Applied when a pending booking
// was changed in place, Request when a confirmed booking got a change request.
type Outcome struct {
	Applied   bool
	Request   *Request
	Breakdown pricing.Breakdown
	Delta     int64
}

type ApproveInput struct {
	Request          *Request
	Booking          *booking.Booking
	ActorID          string
	Message          string
	SurplusReference string
	Calendar         Occupied
	Now              time.Time
}

// Workflow drives change requests. Prices come from the same engine used at
// booking time so quoted and charged deltas cannot drift.
type Workflow struct {
	Pricing *pricing.Engine
}

func NewWorkflow(engine *pricing.Engine) *Workflow {
	if engine == nil {
		engine = pricing.NewEngine(nil)
	}
	return &Workflow{Pricing: engine}
}

func (w *Workflow) Propose(in ProposeInput) (Outcome, error) {
	b, l := in.Booking, in.Listing
	if b == nil || l == nil {
		return Outcome{}, ErrMissingInput
	}
	if err := modifiable(b, in.Now); err != nil {
		return Outcome{}, err
	}
	if !b.IsGuest(in.RequesterID) {
		return Outcome{}, rules.New(rules.KindNotAllowed, "only the guest can request a change")
	}
	change := in.Change
	if change.Guests == 0 {
		change.Guests = b.Guests
	}
	if err := change.Range.Validate(); err != nil {
		return Outcome{}, rules.New(rules.KindInvalidDateRange, err.Error())
	}
	if change.Range.Equal(b.Range) && change.Guests == b.Guests {
		return Outcome{}, rules.New(rules.KindInvalidDateRange, "requested dates and guests are unchanged")
	}
	if change.Range.Started(in.Now) {
		return Outcome{}, rules.New(rules.KindInvalidDateRange, "requested start is in the past")
	}
	units, _ := pricing.BillingUnits(change.Range, l.ServiceType, l.Pricing.HasHourlyRate())
	if err := l.ValidateStay(units, change.Guests); err != nil {
		return Outcome{}, err
	}
	if err := checkAvailability(in.Calendar, b.ID, change.Range); err != nil {
		return Outcome{}, err
	}
	if b.Status == booking.StatusConfirmed && in.Pending != nil && in.Pending.Status == StatusPending {
		return Outcome{}, rules.Newf(rules.KindDuplicatePendingRequest, "request %s is still pending", in.Pending.ID)
	}

	price, err := w.Pricing.Quote(l, change.Range, b.Options)
	if err != nil {
		return Outcome{}, err
	}
	delta := pricing.Delta(b.Price, price)

	if b.Status == booking.StatusPending {
		if err := b.Reschedule(change.Range, change.Guests, price, in.Now); err != nil {
			return Outcome{}, err
		}
		return Outcome{Applied: true, Breakdown: price, Delta: delta}, nil
	}

	now := in.Now.UTC()
	req := &Request{
		ID:          in.RequestID,
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		HostID:      b.HostID,
		RequesterID: in.RequesterID,
		Original: Snapshot{
			Range: b.Range, Guests: b.Guests, TotalPrice: b.Price.FinalTotal,
		},
		Requested: Snapshot{
			Range: change.Range, Guests: change.Guests, TotalPrice: price.FinalTotal,
		},
		RequestedPrice: price,
		PriceDelta:     delta,
		Currency:       price.Currency,
		Status:         StatusPending,
		GuestMessage:   strings.TrimSpace(change.Message),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	req.Record(ModificationRequested{
		RequestID: req.ID, BookingID: b.ID, Requested: change.Range, Guests: change.Guests, Delta: delta, At: now,
	})
	return Outcome{Request: req, Breakdown: price, Delta: delta}, nil
}

// CheckApproval runs every approval guard except the surplus capture, so
// callers can refuse before any money moves.
func (w *Workflow) CheckApproval(in ApproveInput) error {
	r, b := in.Request, in.Booking
	if r == nil || b == nil {
		return ErrMissingInput
	}
	if err := r.ensurePending(); err != nil {
		return err
	}
	if r.BookingID != b.ID {
		return rules.New(rules.KindInvalidBookingState, "request belongs to another booking")
	}
	if !b.IsHost(in.ActorID) {
		return rules.New(rules.KindNotAllowed, "only the host or owner can approve")
	}
	if err := modifiable(b, in.Now); err != nil {
		return err
	}
	if b.Status != booking.StatusConfirmed {
		return rules.Newf(rules.KindInvalidBookingState, "cannot modify a %s booking", b.Status)
	}
	if r.Requested.Range.Started(in.Now) {
		return rules.New(rules.KindInvalidDateRange, "requested start has passed")
	}
	return checkAvailability(in.Calendar, b.ID, r.Requested.Range)
}

// Approve overwrites the booking with the requested values. A positive delta
// must already be captured; the caller passes the payment reference.
func (w *Workflow) Approve(in ApproveInput) error {
	if err := w.CheckApproval(in); err != nil {
		return err
	}
	r, b := in.Request, in.Booking
	if r.Surplus() > 0 && strings.TrimSpace(in.SurplusReference) == "" {
		return rules.Newf(rules.KindSurplusNotCaptured, "surplus of %d %s must be captured first", r.Surplus(), r.Currency)
	}
	if err := b.Reschedule(r.Requested.Range, r.Requested.Guests, r.RequestedPrice, in.Now); err != nil {
		return err
	}
	r.SurplusReference = strings.TrimSpace(in.SurplusReference)
	r.respond(StatusApproved, in.Message, in.Now)
	r.Record(ModificationApproved{
		RequestID: r.ID, BookingID: r.BookingID, Delta: r.PriceDelta, SurplusReference: r.SurplusReference, At: r.UpdatedAt,
	})
	return nil
}

// modifiable judges the booking by the clock as well as its stored status;
// the sweep advances statuses only periodically.
func modifiable(b *booking.Booking, now time.Time) error {
	if b.Status.Terminal() {
		return rules.Newf(rules.KindTerminalBookingState, "booking is %s", b.Status)
	}
	if b.Status.Occupying() && b.Range.Ended(now) {
		return rules.New(rules.KindTerminalBookingState, "booking period is over")
	}
	if b.Status != booking.StatusPending && b.Status != booking.StatusConfirmed {
		return rules.Newf(rules.KindInvalidBookingState, "cannot modify a %s booking", b.Status)
	}
	if b.Range.Started(now) {
		return rules.New(rules.KindInvalidBookingState, "booking has already started")
	}
	return nil
}

func checkAvailability(cal Occupied, self booking.BookingID, dr daterange.DateRange) error {
	existing := availability.Excluding(cal.Existing, string(self))
	if c, found := availability.FindConflict(existing, cal.Blocked, dr); found {
		if c.Blocked {
			return rules.New(rules.KindDateConflict, "requested dates are blocked by the host")
		}
		return rules.New(rules.KindDateConflict, "requested dates overlap a confirmed booking")
	}
	return nil
}
