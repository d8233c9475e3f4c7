package dto

import (
	"time"

	domainbooking "stayride/internal/domain/booking"
	domainpricing "stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

type CancellationDTO struct {
	Penalty     int64     `json:"penalty"`
	Refund      int64     `json:"refund"`
	Bearer      string    `json:"bearer"`
	Reason      string    `json:"reason,omitempty"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
	Description string    `json:"description"`
}

type Booking struct {
	ID                 string                  `json:"id"`
	ListingID          string                  `json:"listing_id"`
	ServiceType        string                  `json:"service_type"`
	GuestID            string                  `json:"guest_id"`
	HostID             string                  `json:"host_id"`
	CheckIn            time.Time               `json:"check_in"`
	CheckOut           time.Time               `json:"check_out"`
	Guests             int                     `json:"guests"`
	Status             string                  `json:"status"`
	Total              MoneyDTO                `json:"total"`
	DiscountAmount     int64                   `json:"discount_amount"`
	Price              domainpricing.Breakdown `json:"price"`
	WithDriver         bool                    `json:"with_driver,omitempty"`
	PaymentMethod      string                  `json:"payment_method,omitempty"`
	PaymentReference   string                  `json:"payment_reference,omitempty"`
	CancellationPolicy string                  `json:"cancellation_policy,omitempty"`
	Cancellation       *CancellationDTO        `json:"cancellation,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	out := Booking{
		ID:                 string(b.ID),
		ListingID:          string(b.ListingID),
		ServiceType:        string(b.ServiceType),
		GuestID:            b.GuestID,
		HostID:             string(b.HostID),
		CheckIn:            b.Range.CheckIn,
		CheckOut:           b.Range.CheckOut,
		Guests:             b.Guests,
		Status:             string(b.Status),
		Total:              MapMoney(b.TotalPrice()),
		DiscountAmount:     b.DiscountAmount(),
		Price:              b.Price,
		WithDriver:         b.Options.WithDriver,
		PaymentMethod:      b.PaymentMethod,
		PaymentReference:   b.PaymentReference,
		CancellationPolicy: string(b.CancellationPolicy),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if c := b.Cancellation; c != nil {
		out.Cancellation = &CancellationDTO{
			Penalty:     c.Penalty,
			Refund:      c.Refund,
			Bearer:      string(c.Bearer),
			Reason:      c.Reason,
			CancelledBy: string(c.CancelledBy),
			CancelledAt: c.CancelledAt,
			Description: c.Description,
		}
	}
	return out
}
