package booking

import (
	"time"

	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	ListingID listings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID
	ListingID listings.ListingID
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingModified struct {
	BookingID     BookingID
	ListingID     listings.ListingID
	PreviousRange daterange.DateRange
	Range         daterange.DateRange
	Guests        int
	Total         money.Money
	Delta         money.Money
	At            time.Time
}

func (e BookingModified) EventName() string     { return "booking.modified" }
func (e BookingModified) AggregateID() string   { return string(e.BookingID) }
func (e BookingModified) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID      BookingID
	ListingID      listings.ListingID
	PreviousStatus Status
	CancelledBy    cancellation.Role
	Penalty        money.Money
	Refund         money.Money
	Reason         string
	At             time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingExpired struct {
	BookingID BookingID
	ListingID listings.ListingID
	At        time.Time
}

func (e BookingExpired) EventName() string     { return "booking.expired" }
func (e BookingExpired) AggregateID() string   { return string(e.BookingID) }
func (e BookingExpired) OccurredAt() time.Time { return e.At }

type BookingStarted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingStarted) EventName() string     { return "booking.started" }
func (e BookingStarted) AggregateID() string   { return string(e.BookingID) }
func (e BookingStarted) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	ListingID listings.ListingID
	HostNet   int64
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
