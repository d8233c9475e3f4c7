package dto

import (
	"time"

	domainmodification "stayride/internal/domain/modification"
)

type ModificationSide struct {
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Guests     int       `json:"guests"`
	TotalPrice int64     `json:"total_price"`
}

type Modification struct {
	ID                   string           `json:"id"`
	BookingID            string           `json:"booking_id"`
	Status               string           `json:"status"`
	Original             ModificationSide `json:"original"`
	Requested            ModificationSide `json:"requested"`
	PriceDelta           int64            `json:"price_delta"`
	Currency             string           `json:"currency"`
	GuestMessage         string           `json:"guest_message,omitempty"`
	OwnerResponseMessage string           `json:"owner_response_message,omitempty"`
	SurplusReference     string           `json:"surplus_reference,omitempty"`
	RefundReference      string           `json:"refund_reference,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	RespondedAt          *time.Time       `json:"responded_at,omitempty"`
}

// ModificationOutcome answers a change proposal: either the booking was
// updated in place, or a request now waits for the host.
type ModificationOutcome struct {
	Applied      bool          `json:"applied"`
	Booking      *Booking      `json:"booking,omitempty"`
	Modification *Modification `json:"modification,omitempty"`
	PriceDelta   int64         `json:"price_delta"`
}

func MapModification(r *domainmodification.Request) Modification {
	return Modification{
		ID:                   string(r.ID),
		BookingID:            string(r.BookingID),
		Status:               string(r.Status),
		Original:             mapSide(r.Original),
		Requested:            mapSide(r.Requested),
		PriceDelta:           r.PriceDelta,
		Currency:             r.Currency,
		GuestMessage:         r.GuestMessage,
		OwnerResponseMessage: r.OwnerResponseMessage,
		SurplusReference:     r.SurplusReference,
		RefundReference:      r.RefundReference,
		CreatedAt:            r.CreatedAt,
		RespondedAt:          r.RespondedAt,
	}
}

func mapSide(s domainmodification.Snapshot) ModificationSide {
	return ModificationSide{
		CheckIn:    s.Range.CheckIn,
		CheckOut:   s.Range.CheckOut,
		Guests:     s.Guests,
		TotalPrice: s.TotalPrice,
	}
}
