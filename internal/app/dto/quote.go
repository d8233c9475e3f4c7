package dto

import (
	"time"

	domainpricing "stayride/internal/domain/pricing"
)

type Quote struct {
	ListingID   string                  `json:"listing_id"`
	ServiceType string                  `json:"service_type"`
	CheckIn     time.Time               `json:"check_in"`
	CheckOut    time.Time               `json:"check_out"`
	Guests      int                     `json:"guests"`
	UnitName    string                  `json:"unit_name"`
	Breakdown   domainpricing.Breakdown `json:"breakdown"`
}

type CancellationPreview struct {
	BookingID      string `json:"booking_id"`
	Actor          string `json:"actor"`
	Penalty        int64  `json:"penalty"`
	RefundAmount   int64  `json:"refund_amount"`
	PenaltyPercent string `json:"penalty_percent"`
	RefundPercent  string `json:"refund_percent"`
	Basis          int64  `json:"basis"`
	Currency       string `json:"currency"`
	Bearer         string `json:"bearer"`
	InProgress     bool   `json:"in_progress"`
	Description    string `json:"description"`
}
