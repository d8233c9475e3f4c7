package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	"stayride/internal/domain/shared/rules"
)

var (
	// ErrFactoryMisconfigured indicates a factory without a store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
	ErrReadOnly             = errors.New("memory: unit of work is read-only")
)

// Factory begins units over a shared Store. Records added to Outbox inside a
// unit are published to it on commit.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:     f.Store,
		outbox:    f.Outbox,
		readOnly:  opts.ReadOnly,
		listings:  make(map[domainlistings.ListingID]*domainlistings.Listing),
		calendars: make(map[domainlistings.ListingID]*domainavailability.AvailabilityCalendar),
		bookings:  make(map[domainbooking.BookingID]*domainbooking.Booking),
		requests:  make(map[domainmodification.RequestID]*domainmodification.Request),
	}, nil
}

// Unit buffers writes until Commit, where every staged aggregate is checked
// against the committed version under the store lock and applied at once.
type Unit struct {
	uow.Compensations

	store    *Store
	outbox   *Outbox
	readOnly bool

	mu        sync.Mutex
	done      bool
	listings  map[domainlistings.ListingID]*domainlistings.Listing
	calendars map[domainlistings.ListingID]*domainavailability.AvailabilityCalendar
	bookings  map[domainbooking.BookingID]*domainbooking.Booking
	requests  map[domainmodification.RequestID]*domainmodification.Request
	records   []appoutbox.EventRecord
}

func (u *Unit) Listings() domainlistings.ListingRepository { return listingRepo{u} }

func (u *Unit) Availability() domainavailability.Repository { return calendarRepo{u} }

func (u *Unit) Bookings() domainbooking.Repository { return bookingRepo{u} }

func (u *Unit) Modifications() domainmodification.Repository { return requestRepo{u} }

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		u.mu.Unlock()
		u.Discard()
		return nil
	}
	u.store.mu.Lock()
	err := u.validate()
	if err == nil {
		u.apply()
	}
	u.store.mu.Unlock()
	records := u.records
	u.records = nil
	u.mu.Unlock()

	if err != nil {
		u.Compensate(ctx)
		return err
	}
	u.Discard()
	if u.outbox != nil {
		u.outbox.append(records...)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	u.records = nil
	u.mu.Unlock()
	u.Compensate(ctx)
	return nil
}

func (u *Unit) stage(rec appoutbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.records = append(u.records, rec)
	return nil
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

// validate runs with the store lock held.
func (u *Unit) validate() error {
	s := u.store
	for id, cal := range u.calendars {
		if committedVersion(s.calendars[id]) != cal.Version {
			return fmt.Errorf("%w: listing %s", domainavailability.ErrConcurrentUpdate, id)
		}
	}
	for id, b := range u.bookings {
		if stored, ok := s.bookings[id]; (ok && stored.Version != b.Version) || (!ok && b.Version != 0) {
			return fmt.Errorf("%w: booking %s", domainbooking.ErrConcurrentUpdate, id)
		}
	}
	for id, r := range u.requests {
		if stored, ok := s.requests[id]; (ok && stored.Version != r.Version) || (!ok && r.Version != 0) {
			return fmt.Errorf("%w: request %s", domainmodification.ErrConcurrentUpdate, id)
		}
		if r.Status != domainmodification.StatusPending {
			continue
		}
		if other := u.pendingLocked(r.BookingID, r.ID); other != nil {
			return duplicatePending(r.BookingID)
		}
	}
	return nil
}

// apply runs with the store lock held.
func (u *Unit) apply() {
	s := u.store
	for id, l := range u.listings {
		l.Version++
		s.listings[id] = cloneListing(l)
	}
	for id, cal := range u.calendars {
		cal.Version++
		s.calendars[id] = cloneCalendar(cal)
	}
	for id, b := range u.bookings {
		b.Version++
		s.bookings[id] = cloneBooking(b)
	}
	for id, r := range u.requests {
		r.Version++
		s.requests[id] = cloneRequest(r)
	}
}

// pendingLocked looks for a pending request of bookingID other than except,
// across staged and committed state. Callers hold u.mu and a store lock.
func (u *Unit) pendingLocked(bookingID domainbooking.BookingID, except domainmodification.RequestID) *domainmodification.Request {
	for id, r := range u.requests {
		if id != except && r.BookingID == bookingID && r.Status == domainmodification.StatusPending {
			return r
		}
	}
	for id, r := range u.store.requests {
		if id == except || r.BookingID != bookingID || r.Status != domainmodification.StatusPending {
			continue
		}
		if staged, ok := u.requests[id]; ok && staged.Status != domainmodification.StatusPending {
			continue
		}
		return r
	}
	return nil
}

func committedVersion(cal *domainavailability.AvailabilityCalendar) int64 {
	if cal == nil {
		return 0
	}
	return cal.Version
}

func duplicatePending(bookingID domainbooking.BookingID) error {
	return rules.Newf(rules.KindDuplicatePendingRequest, "booking %s already has a pending change request", bookingID)
}

type listingRepo struct{ u *Unit }

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if l, ok := u.listings[id]; ok {
		return l, nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	l, ok := u.store.listings[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return cloneListing(l), nil
}

func (r listingRepo) Save(ctx context.Context, listing *domainlistings.Listing) error {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.listings[listing.ID] = listing
	return nil
}

type calendarRepo struct{ u *Unit }

// Calendar returns an empty calendar for listings that never held a block.
func (r calendarRepo) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.AvailabilityCalendar, error) {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if cal, ok := u.calendars[id]; ok {
		return cal, nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	if cal, ok := u.store.calendars[id]; ok {
		return cloneCalendar(cal), nil
	}
	return domainavailability.NewCalendar(id), nil
}

// Save fails fast when the calendar moved on since it was read; Commit checks again.
func (r calendarRepo) Save(ctx context.Context, cal *domainavailability.AvailabilityCalendar) error {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.store.mu.RLock()
	current := committedVersion(u.store.calendars[cal.ListingID])
	u.store.mu.RUnlock()
	if current != cal.Version {
		return domainavailability.ErrConcurrentUpdate
	}
	u.calendars[cal.ListingID] = cal
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if b, ok := u.bookings[id]; ok {
		return b, nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	b, ok := u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.bookings[b.ID] = b
	return nil
}

func (r bookingRepo) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.ListingID == listingID }), nil
}

func (r bookingRepo) ListByStatus(ctx context.Context, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool {
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r bookingRepo) list(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	var out []*domainbooking.Booking
	for id, b := range u.store.bookings {
		if _, staged := u.bookings[id]; !staged && match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	for _, b := range u.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type requestRepo struct{ u *Unit }

func (r requestRepo) ByID(ctx context.Context, id domainmodification.RequestID) (*domainmodification.Request, error) {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if req, ok := u.requests[id]; ok {
		return req, nil
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	req, ok := u.store.requests[id]
	if !ok {
		return nil, domainmodification.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

// Save refuses a second pending request for the same booking.
func (r requestRepo) Save(ctx context.Context, req *domainmodification.Request) error {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	if req.Status == domainmodification.StatusPending {
		u.store.mu.RLock()
		other := u.pendingLocked(req.BookingID, req.ID)
		u.store.mu.RUnlock()
		if other != nil {
			return duplicatePending(req.BookingID)
		}
	}
	u.requests[req.ID] = req
	return nil
}

func (r requestRepo) PendingForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainmodification.Request, error) {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	req := u.pendingLocked(bookingID, "")
	if req == nil {
		return nil, domainmodification.ErrRequestNotFound
	}
	if _, staged := u.requests[req.ID]; staged {
		return req, nil
	}
	return cloneRequest(req), nil
}

func (r requestRepo) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainmodification.Request, error) {
	u := r.u
	u.mu.Lock()
	defer u.mu.Unlock()
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	var out []*domainmodification.Request
	for id, req := range u.store.requests {
		if _, staged := u.requests[id]; !staged && req.BookingID == bookingID {
			out = append(out, cloneRequest(req))
		}
	}
	for _, req := range u.requests {
		if req.BookingID == bookingID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
