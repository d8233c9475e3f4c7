package quotes

import (
	"context"
	"time"

	"stayride/internal/app/dto"
	"stayride/internal/app/handlers/support"
	"stayride/internal/app/policies"
	"stayride/internal/app/queries"
	"stayride/internal/app/uow"
)

const getQuoteKey = "pricing.quote"

type GetQuoteQuery struct {
	ListingID   string
	CheckIn     time.Time
	CheckOut    time.Time
	Guests      int
	WithDriver  bool
	VoucherCode string
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

// GetQuoteHandler prices a prospective stay with the same computation used
// when the booking is requested.
type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Pricer     support.Pricer
	Clock      policies.Clock
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Quote{}, err
	}
	defer finish(nil)

	dr, err := support.Range(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	listing, err := support.ActiveListing(ctx, unit, q.ListingID)
	if err != nil {
		return dto.Quote{}, err
	}
	price, _, err := h.Pricer.Price(ctx, support.StayRequest{
		Listing:     listing,
		Range:       dr,
		Guests:      q.Guests,
		WithDriver:  q.WithDriver,
		VoucherCode: q.VoucherCode,
	}, support.Now(h.Clock))
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.Quote{
		ListingID:   string(listing.ID),
		ServiceType: string(listing.ServiceType),
		CheckIn:     dr.CheckIn,
		CheckOut:    dr.CheckOut,
		Guests:      q.Guests,
		UnitName:    listing.ServiceType.UnitName(),
		Breakdown:   price,
	}, nil
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
