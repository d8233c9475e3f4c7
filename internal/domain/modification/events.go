package modification

import (
	"time"

	"stayride/internal/domain/booking"
	"stayride/internal/domain/shared/daterange"
)

type ModificationRequested struct {
	RequestID RequestID
	BookingID booking.BookingID
	Requested daterange.DateRange
	Guests    int
	Delta     int64
	At        time.Time
}

func (e ModificationRequested) EventName() string     { return "modification.requested" }
func (e ModificationRequested) AggregateID() string   { return string(e.RequestID) }
func (e ModificationRequested) OccurredAt() time.Time { return e.At }

type ModificationApproved struct {
	RequestID        RequestID
	BookingID        booking.BookingID
	Delta            int64
	SurplusReference string
	At               time.Time
}

func (e ModificationApproved) EventName() string     { return "modification.approved" }
func (e ModificationApproved) AggregateID() string   { return string(e.RequestID) }
func (e ModificationApproved) OccurredAt() time.Time { return e.At }

type ModificationRejected struct {
	RequestID RequestID
	BookingID booking.BookingID
	Message   string
	At        time.Time
}

func (e ModificationRejected) EventName() string     { return "modification.rejected" }
func (e ModificationRejected) AggregateID() string   { return string(e.RequestID) }
func (e ModificationRejected) OccurredAt() time.Time { return e.At }

// ModificationWithdrawn carries a Reason when the platform closed the request.
type ModificationWithdrawn struct {
	RequestID RequestID
	BookingID booking.BookingID
	Reason    string `json:",omitempty"`
	At        time.Time
}

func (e ModificationWithdrawn) EventName() string     { return "modification.withdrawn" }
func (e ModificationWithdrawn) AggregateID() string   { return string(e.RequestID) }
func (e ModificationWithdrawn) OccurredAt() time.Time { return e.At }
