package memory

import (
	"sync"

	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	"stayride/internal/domain/shared/events"
)

// Store holds committed state. Units read from it and write to it only on commit.
type Store struct {
	mu        sync.RWMutex
	listings  map[domainlistings.ListingID]*domainlistings.Listing
	calendars map[domainlistings.ListingID]*domainavailability.AvailabilityCalendar
	bookings  map[domainbooking.BookingID]*domainbooking.Booking
	requests  map[domainmodification.RequestID]*domainmodification.Request
}

func NewStore() *Store {
	return &Store{
		listings:  make(map[domainlistings.ListingID]*domainlistings.Listing),
		calendars: make(map[domainlistings.ListingID]*domainavailability.AvailabilityCalendar),
		bookings:  make(map[domainbooking.BookingID]*domainbooking.Booking),
		requests:  make(map[domainmodification.RequestID]*domainmodification.Request),
	}
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	c := *l
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneCalendar(cal *domainavailability.AvailabilityCalendar) *domainavailability.AvailabilityCalendar {
	c := *cal
	c.Blocks = append([]domainavailability.Block(nil), cal.Blocks...)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	if b.Cancellation != nil {
		cancel := *b.Cancellation
		c.Cancellation = &cancel
	}
	if b.Options.Voucher != nil {
		v := *b.Options.Voucher
		c.Options.Voucher = &v
	}
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneRequest(r *domainmodification.Request) *domainmodification.Request {
	c := *r
	if r.RespondedAt != nil {
		at := *r.RespondedAt
		c.RespondedAt = &at
	}
	c.EventRecorder = events.EventRecorder{}
	return &c
}
