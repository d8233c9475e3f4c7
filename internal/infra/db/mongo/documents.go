package mongo

import (
	"time"

	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	domainpricing "stayride/internal/domain/pricing"
	domainrange "stayride/internal/domain/shared/daterange"
)

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newRangeDocument(dr domainrange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: dr.CheckIn.UnixMilli(), CheckOut: dr.CheckOut.UnixMilli()}
}

func (d rangeDocument) toRange() domainrange.DateRange {
	return domainrange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

type listingDocument struct {
	ID                 string                 `bson:"_id"`
	Host               string                 `bson:"host_id"`
	Title              string                 `bson:"title"`
	ServiceType        string                 `bson:"service_type"`
	Currency           string                 `bson:"currency"`
	Pricing            listings.PricingConfig `bson:"pricing"`
	MinUnits           int                    `bson:"min_units"`
	MaxUnits           int                    `bson:"max_units"`
	MaxOccupancy       int                    `bson:"max_occupancy"`
	CancellationPolicy string                 `bson:"cancellation_policy"`
	State              string                 `bson:"state"`
	CreatedAt          int64                  `bson:"created_at"`
	UpdatedAt          int64                  `bson:"updated_at"`
	Version            int64                  `bson:"version"`
}

func newListingDocument(l *listings.Listing) listingDocument {
	return listingDocument{
		ID:                 string(l.ID),
		Host:               string(l.Host),
		Title:              l.Title,
		ServiceType:        string(l.ServiceType),
		Currency:           l.Currency,
		Pricing:            l.Pricing,
		MinUnits:           l.MinUnits,
		MaxUnits:           l.MaxUnits,
		MaxOccupancy:       l.MaxOccupancy,
		CancellationPolicy: string(l.CancellationPolicy),
		State:              string(l.State),
		CreatedAt:          l.CreatedAt.UnixMilli(),
		UpdatedAt:          l.UpdatedAt.UnixMilli(),
		Version:            l.Version,
	}
}

func (d listingDocument) toAggregate() *listings.Listing {
	return &listings.Listing{
		ID:                 listings.ListingID(d.ID),
		Host:               listings.HostID(d.Host),
		Title:              d.Title,
		ServiceType:        listings.ServiceType(d.ServiceType),
		Currency:           d.Currency,
		Pricing:            d.Pricing,
		MinUnits:           d.MinUnits,
		MaxUnits:           d.MaxUnits,
		MaxOccupancy:       d.MaxOccupancy,
		CancellationPolicy: listings.CancellationPolicy(d.CancellationPolicy),
		State:              listings.ListingState(d.State),
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}

type blockDocument struct {
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	Reference string        `bson:"reference"`
	CreatedAt int64         `bson:"created_at"`
}

type calendarDocument struct {
	ID      string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

func newCalendarDocument(cal *domainavailability.AvailabilityCalendar) calendarDocument {
	doc := calendarDocument{ID: string(cal.ListingID), Version: cal.Version, Blocks: make([]blockDocument, 0, len(cal.Blocks))}
	for _, b := range cal.Blocks {
		doc.Blocks = append(doc.Blocks, blockDocument{
			Range:     newRangeDocument(b.Range),
			Reason:    string(b.Reason),
			Reference: b.Reference,
			CreatedAt: b.CreatedAt.UnixMilli(),
		})
	}
	return doc
}

func (d calendarDocument) toAggregate() *domainavailability.AvailabilityCalendar {
	cal := domainavailability.NewCalendar(listings.ListingID(d.ID))
	cal.Version = d.Version
	for _, b := range d.Blocks {
		cal.Blocks = append(cal.Blocks, domainavailability.Block{
			Range:     b.Range.toRange(),
			Reason:    domainavailability.BlockReason(b.Reason),
			Reference: b.Reference,
			CreatedAt: timestampToTime(b.CreatedAt),
		})
	}
	return cal
}

type cancellationDocument struct {
	Penalty     int64  `bson:"penalty"`
	Refund      int64  `bson:"refund"`
	Bearer      string `bson:"bearer"`
	Reason      string `bson:"reason"`
	CancelledBy string `bson:"cancelled_by"`
	CancelledAt int64  `bson:"cancelled_at"`
	Description string `bson:"description"`
}

type bookingDocument struct {
	ID               string                  `bson:"_id"`
	ListingID        string                  `bson:"listing_id"`
	ServiceType      string                  `bson:"service_type"`
	GuestID          string                  `bson:"guest_id"`
	HostID           string                  `bson:"host_id"`
	Range            rangeDocument           `bson:"range"`
	Guests           int                     `bson:"guests"`
	Status           string                  `bson:"status"`
	Price            domainpricing.Breakdown `bson:"price"`
	Options          domainpricing.Options   `bson:"options"`
	PaymentMethod    string                  `bson:"payment_method"`
	PaymentReference string                  `bson:"payment_reference"`
	Policy           string                  `bson:"policy"`
	Cancellation     *cancellationDocument   `bson:"cancellation,omitempty"`
	CreatedAt        int64                   `bson:"created_at"`
	UpdatedAt        int64                   `bson:"updated_at"`
	Version          int64                   `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:               string(b.ID),
		ListingID:        string(b.ListingID),
		ServiceType:      string(b.ServiceType),
		GuestID:          b.GuestID,
		HostID:           string(b.HostID),
		Range:            newRangeDocument(b.Range),
		Guests:           b.Guests,
		Status:           string(b.Status),
		Price:            b.Price,
		Options:          b.Options,
		PaymentMethod:    b.PaymentMethod,
		PaymentReference: b.PaymentReference,
		Policy:           string(b.CancellationPolicy),
		CreatedAt:        b.CreatedAt.UnixMilli(),
		UpdatedAt:        b.UpdatedAt.UnixMilli(),
		Version:          b.Version,
	}
	if c := b.Cancellation; c != nil {
		doc.Cancellation = &cancellationDocument{
			Penalty:     c.Penalty,
			Refund:      c.Refund,
			Bearer:      string(c.Bearer),
			Reason:      c.Reason,
			CancelledBy: string(c.CancelledBy),
			CancelledAt: c.CancelledAt.UnixMilli(),
			Description: c.Description,
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	agg := &domainbooking.Booking{
		ID:                 domainbooking.BookingID(d.ID),
		ListingID:          listings.ListingID(d.ListingID),
		ServiceType:        listings.ServiceType(d.ServiceType),
		GuestID:            d.GuestID,
		HostID:             listings.HostID(d.HostID),
		Range:              d.Range.toRange(),
		Guests:             d.Guests,
		Status:             domainbooking.Status(d.Status),
		Price:              d.Price,
		Options:            d.Options,
		PaymentMethod:      d.PaymentMethod,
		PaymentReference:   d.PaymentReference,
		CancellationPolicy: listings.CancellationPolicy(d.Policy),
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
	if c := d.Cancellation; c != nil {
		agg.Cancellation = &domainbooking.Cancellation{
			Penalty:     c.Penalty,
			Refund:      c.Refund,
			Bearer:      cancellation.Bearer(c.Bearer),
			Reason:      c.Reason,
			CancelledBy: cancellation.Role(c.CancelledBy),
			CancelledAt: timestampToTime(c.CancelledAt),
			Description: c.Description,
		}
	}
	return agg
}

type snapshotDocument struct {
	Range      rangeDocument `bson:"range"`
	Guests     int           `bson:"guests"`
	TotalPrice int64         `bson:"total_price"`
}

func newSnapshotDocument(s domainmodification.Snapshot) snapshotDocument {
	return snapshotDocument{Range: newRangeDocument(s.Range), Guests: s.Guests, TotalPrice: s.TotalPrice}
}

func (d snapshotDocument) toSnapshot() domainmodification.Snapshot {
	return domainmodification.Snapshot{Range: d.Range.toRange(), Guests: d.Guests, TotalPrice: d.TotalPrice}
}

type requestDocument struct {
	ID                   string                  `bson:"_id"`
	BookingID            string                  `bson:"booking_id"`
	ListingID            string                  `bson:"listing_id"`
	HostID               string                  `bson:"host_id"`
	RequesterID          string                  `bson:"requester_id"`
	Original             snapshotDocument        `bson:"original"`
	Requested            snapshotDocument        `bson:"requested"`
	RequestedPrice       domainpricing.Breakdown `bson:"requested_price"`
	PriceDelta           int64                   `bson:"price_delta"`
	Currency             string                  `bson:"currency"`
	Status               string                  `bson:"status"`
	GuestMessage         string                  `bson:"guest_message"`
	OwnerResponseMessage string                  `bson:"owner_response_message"`
	SurplusReference     string                  `bson:"surplus_reference"`
	RefundReference      string                  `bson:"refund_reference"`
	CreatedAt            int64                   `bson:"created_at"`
	UpdatedAt            int64                   `bson:"updated_at"`
	RespondedAt          *int64                  `bson:"responded_at,omitempty"`
	Version              int64                   `bson:"version"`
}

func newRequestDocument(r *domainmodification.Request) requestDocument {
	doc := requestDocument{
		ID:                   string(r.ID),
		BookingID:            string(r.BookingID),
		ListingID:            string(r.ListingID),
		HostID:               string(r.HostID),
		RequesterID:          r.RequesterID,
		Original:             newSnapshotDocument(r.Original),
		Requested:            newSnapshotDocument(r.Requested),
		RequestedPrice:       r.RequestedPrice,
		PriceDelta:           r.PriceDelta,
		Currency:             r.Currency,
		Status:               string(r.Status),
		GuestMessage:         r.GuestMessage,
		OwnerResponseMessage: r.OwnerResponseMessage,
		SurplusReference:     r.SurplusReference,
		RefundReference:      r.RefundReference,
		CreatedAt:            r.CreatedAt.UnixMilli(),
		UpdatedAt:            r.UpdatedAt.UnixMilli(),
		Version:              r.Version,
	}
	if r.RespondedAt != nil {
		at := r.RespondedAt.UnixMilli()
		doc.RespondedAt = &at
	}
	return doc
}

func (d requestDocument) toAggregate() *domainmodification.Request {
	agg := &domainmodification.Request{
		ID:                   domainmodification.RequestID(d.ID),
		BookingID:            domainbooking.BookingID(d.BookingID),
		ListingID:            listings.ListingID(d.ListingID),
		HostID:               listings.HostID(d.HostID),
		RequesterID:          d.RequesterID,
		Original:             d.Original.toSnapshot(),
		Requested:            d.Requested.toSnapshot(),
		RequestedPrice:       d.RequestedPrice,
		PriceDelta:           d.PriceDelta,
		Currency:             d.Currency,
		Status:               domainmodification.Status(d.Status),
		GuestMessage:         d.GuestMessage,
		OwnerResponseMessage: d.OwnerResponseMessage,
		SurplusReference:     d.SurplusReference,
		RefundReference:      d.RefundReference,
		CreatedAt:            timestampToTime(d.CreatedAt),
		UpdatedAt:            timestampToTime(d.UpdatedAt),
		Version:              d.Version,
	}
	if d.RespondedAt != nil {
		at := timestampToTime(*d.RespondedAt)
		agg.RespondedAt = &at
	}
	return agg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
