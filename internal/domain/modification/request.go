package modification

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/rules"
)

var (
	ErrRequestNotFound  = errors.New("modification: request not found")
	ErrConcurrentUpdate = errors.New("modification: concurrent update")
)

type RequestID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Snapshot is one side of a change: the booking as it was, or as requested.
type Snapshot struct {
	Range      daterange.DateRange `json:"range"`
	Guests     int                 `json:"guests"`
	TotalPrice int64               `json:"total_price"`
}

// Request is a guest's change to a confirmed booking awaiting the host's answer.
// Approved, rejected and cancelled are final; a new request may follow.
type Request struct {
	ID                   RequestID
	BookingID            booking.BookingID
	ListingID            listings.ListingID
	HostID               listings.HostID
	RequesterID          string
	Original             Snapshot
	Requested            Snapshot
	RequestedPrice       pricing.Breakdown
	PriceDelta           int64
	Currency             string
	Status               Status
	GuestMessage         string
	OwnerResponseMessage string
	SurplusReference     string
	RefundReference      string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	RespondedAt          *time.Time
	Version              int64
	events.EventRecorder
}

// Repository stores requests. Save must refuse a second pending request for
// the same booking with rules.ErrDuplicatePendingRequest, atomically.
type Repository interface {
	ByID(ctx context.Context, id RequestID) (*Request, error)
	Save(ctx context.Context, request *Request) error
	PendingForBooking(ctx context.Context, bookingID booking.BookingID) (*Request, error)
	ListByBooking(ctx context.Context, bookingID booking.BookingID) ([]*Request, error)
}

// Surplus reports the amount the guest owes on approval, zero when none.
func (r *Request) Surplus() int64 {
	if r.PriceDelta > 0 {
		return r.PriceDelta
	}
	return 0
}

// RefundDue reports the amount returned to the guest on approval, zero when none.
func (r *Request) RefundDue() int64 {
	if r.PriceDelta < 0 {
		return -r.PriceDelta
	}
	return 0
}

func (r *Request) Reject(actorID, message string, now time.Time) error {
	if err := r.ensurePending(); err != nil {
		return err
	}
	if actorID == "" || string(r.HostID) != actorID {
		return rules.New(rules.KindNotAllowed, "only the host or owner can reject")
	}
	r.respond(StatusRejected, message, now)
	r.Record(ModificationRejected{RequestID: r.ID, BookingID: r.BookingID, Message: r.OwnerResponseMessage, At: r.UpdatedAt})
	return nil
}

// Withdraw is the requester cancelling before the host answered.
func (r *Request) Withdraw(actorID string, now time.Time) error {
	if err := r.ensurePending(); err != nil {
		return err
	}
	if actorID == "" || r.RequesterID != actorID {
		return rules.New(rules.KindNotAllowed, "only the requester can withdraw")
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now.UTC()
	r.Record(ModificationWithdrawn{RequestID: r.ID, BookingID: r.BookingID, At: r.UpdatedAt})
	return nil
}

// Lapse closes a pending request on behalf of the platform once its booking
// can no longer change.
func (r *Request) Lapse(reason string, now time.Time) error {
	if err := r.ensurePending(); err != nil {
		return err
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now.UTC()
	r.Record(ModificationWithdrawn{RequestID: r.ID, BookingID: r.BookingID, Reason: reason, At: r.UpdatedAt})
	return nil
}

// AttachRefund stores the payment reference of the refund issued for a cheaper change.
func (r *Request) AttachRefund(reference string) {
	r.RefundReference = reference
}

func (r *Request) ensurePending() error {
	if r.Status != StatusPending {
		return rules.Newf(rules.KindInvalidBookingState, "request is already %s", r.Status)
	}
	return nil
}

func (r *Request) respond(status Status, message string, now time.Time) {
	at := now.UTC()
	r.Status = status
	r.OwnerResponseMessage = strings.TrimSpace(message)
	r.UpdatedAt = at
	r.RespondedAt = &at
}
