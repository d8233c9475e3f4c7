package availability

import (
	"context"
	"time"

	"stayride/internal/app/dto"
	"stayride/internal/app/queries"
	"stayride/internal/app/uow"
	domainlistings "stayride/internal/domain/listings"
)

const getCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	ListingID string
	From      time.Time
	To        time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ctx, finish, err := uow.Enter(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Calendar{}, err
	}
	defer finish(nil)

	listingID := domainlistings.ListingID(q.ListingID)
	if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
		return dto.Calendar{}, err
	}
	calendar, err := unit.Availability().Calendar(ctx, listingID)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(calendar, q.From, q.To), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
