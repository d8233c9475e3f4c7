package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	"stayride/internal/domain/shared/rules"
)

var ErrConcurrentUpdate = errors.New("postgres: concurrent update detected")

// translate turns constraint violations into the rule failures they enforce.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case violates(err, sqlstateExclusionViolation, blocksNoOverlap):
		return rules.New(rules.KindDateConflict, "dates overlap a held period")
	case violates(err, sqlstateUniqueViolation, pendingPerBookingIndex):
		return rules.New(rules.KindDuplicatePendingRequest, "booking already has a pending change request")
	}
	return err
}

type ListingRepository struct {
	Pool *pgxpool.Pool
}

const listingColumns = `id, host_id, title, service_type, currency, pricing, min_units, max_units,
	max_occupancy, cancellation_policy, state, created_at, updated_at, version`

func (r ListingRepository) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	row := db(ctx, r.Pool).QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, string(id))
	var l listings.Listing
	err := row.Scan(&l.ID, &l.Host, &l.Title, &l.ServiceType, &l.Currency, &l.Pricing, &l.MinUnits, &l.MaxUnits,
		&l.MaxOccupancy, &l.CancellationPolicy, &l.State, &l.CreatedAt, &l.UpdatedAt, &l.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}
		return nil, err
	}
	l.CreatedAt, l.UpdatedAt = l.CreatedAt.UTC(), l.UpdatedAt.UTC()
	return &l, nil
}

func (r ListingRepository) Save(ctx context.Context, l *listings.Listing) error {
	tag, err := db(ctx, r.Pool).Exec(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			host_id = EXCLUDED.host_id, title = EXCLUDED.title, service_type = EXCLUDED.service_type,
			currency = EXCLUDED.currency, pricing = EXCLUDED.pricing, min_units = EXCLUDED.min_units,
			max_units = EXCLUDED.max_units, max_occupancy = EXCLUDED.max_occupancy,
			cancellation_policy = EXCLUDED.cancellation_policy, state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at, version = EXCLUDED.version
		WHERE listings.version = $15`,
		string(l.ID), string(l.Host), l.Title, string(l.ServiceType), l.Currency, l.Pricing, l.MinUnits, l.MaxUnits,
		l.MaxOccupancy, string(l.CancellationPolicy), string(l.State), l.CreatedAt, l.UpdatedAt, l.Version+1, l.Version)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	l.Version++
	return nil
}

type CalendarRepository struct {
	Pool *pgxpool.Pool
}

// Calendar returns an empty calendar for listings that never held a block.
func (r CalendarRepository) Calendar(ctx context.Context, id listings.ListingID) (*domainavailability.AvailabilityCalendar, error) {
	q := db(ctx, r.Pool)
	cal := domainavailability.NewCalendar(id)
	err := q.QueryRow(ctx, `SELECT version FROM calendars WHERE listing_id = $1`, string(id)).Scan(&cal.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return cal, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT reference, reason, lower(period), upper(period), created_at
		FROM calendar_blocks WHERE listing_id = $1 ORDER BY lower(period)`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var b domainavailability.Block
		if err := rows.Scan(&b.Reference, &b.Reason, &b.Range.CheckIn, &b.Range.CheckOut, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Range.CheckIn, b.Range.CheckOut, b.CreatedAt = b.Range.CheckIn.UTC(), b.Range.CheckOut.UTC(), b.CreatedAt.UTC()
		cal.Blocks = append(cal.Blocks, b)
	}
	return cal, rows.Err()
}

// Save bumps the calendar version under a row lock, then rewrites its blocks.
// The exclusion constraint rejects overlapping blocks even if two writers
// slipped past the version check.
func (r CalendarRepository) Save(ctx context.Context, cal *domainavailability.AvailabilityCalendar) error {
	q := db(ctx, r.Pool)
	id := string(cal.ListingID)
	tag, err := q.Exec(ctx, `UPDATE calendars SET version = version + 1 WHERE listing_id = $1 AND version = $2`, id, cal.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if cal.Version != 0 {
			return domainavailability.ErrConcurrentUpdate
		}
		tag, err = q.Exec(ctx, `INSERT INTO calendars (listing_id, version) VALUES ($1, 1) ON CONFLICT (listing_id) DO NOTHING`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domainavailability.ErrConcurrentUpdate
		}
	}
	if _, err := q.Exec(ctx, `DELETE FROM calendar_blocks WHERE listing_id = $1`, id); err != nil {
		return err
	}
	for _, b := range cal.Blocks {
		_, err := q.Exec(ctx, `
			INSERT INTO calendar_blocks (listing_id, reference, reason, period, created_at)
			VALUES ($1, $2, $3, tstzrange($4, $5, '[)'), $6)`,
			id, b.Reference, string(b.Reason), b.Range.CheckIn, b.Range.CheckOut, b.CreatedAt)
		if err != nil {
			return translate(err)
		}
	}
	cal.Version++
	return nil
}

type BookingRepository struct {
	Pool *pgxpool.Pool
}

const bookingColumns = `id, listing_id, service_type, guest_id, host_id, check_in, check_out, guests, status,
	price, options, payment_method, payment_reference, policy, cancellation, created_at, updated_at, version`

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var b domainbooking.Booking
	err := row.Scan(&b.ID, &b.ListingID, &b.ServiceType, &b.GuestID, &b.HostID, &b.Range.CheckIn, &b.Range.CheckOut,
		&b.Guests, &b.Status, &b.Price, &b.Options, &b.PaymentMethod, &b.PaymentReference, &b.CancellationPolicy,
		&b.Cancellation, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	b.Range.CheckIn, b.Range.CheckOut = b.Range.CheckIn.UTC(), b.Range.CheckOut.UTC()
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return &b, nil
}

func (r BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := scanBooking(db(ctx, r.Pool).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, err
}

func (r BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	tag, err := db(ctx, r.Pool).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out, guests = EXCLUDED.guests,
			status = EXCLUDED.status, price = EXCLUDED.price, options = EXCLUDED.options,
			payment_method = EXCLUDED.payment_method, payment_reference = EXCLUDED.payment_reference,
			cancellation = EXCLUDED.cancellation, updated_at = EXCLUDED.updated_at, version = EXCLUDED.version
		WHERE bookings.version = $19`,
		string(b.ID), string(b.ListingID), string(b.ServiceType), b.GuestID, string(b.HostID), b.Range.CheckIn,
		b.Range.CheckOut, b.Guests, string(b.Status), b.Price, b.Options, b.PaymentMethod, b.PaymentReference,
		string(b.CancellationPolicy), b.Cancellation, b.CreatedAt, b.UpdatedAt, b.Version+1, b.Version)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r BookingRepository) ListByListing(ctx context.Context, listingID listings.ListingID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE listing_id = $1 ORDER BY created_at`, string(listingID))
}

func (r BookingRepository) ListByStatus(ctx context.Context, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = ANY($1) ORDER BY created_at`, values)
}

func (r BookingRepository) list(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := db(ctx, r.Pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type ModificationRepository struct {
	Pool *pgxpool.Pool
}

const requestColumns = `id, booking_id, listing_id, host_id, requester_id, original, requested, requested_price,
	price_delta, currency, status, guest_message, owner_response_message, surplus_reference, refund_reference,
	created_at, updated_at, responded_at, version`

func scanRequest(row pgx.Row) (*domainmodification.Request, error) {
	var r domainmodification.Request
	err := row.Scan(&r.ID, &r.BookingID, &r.ListingID, &r.HostID, &r.RequesterID, &r.Original, &r.Requested,
		&r.RequestedPrice, &r.PriceDelta, &r.Currency, &r.Status, &r.GuestMessage, &r.OwnerResponseMessage,
		&r.SurplusReference, &r.RefundReference, &r.CreatedAt, &r.UpdatedAt, &r.RespondedAt, &r.Version)
	if err != nil {
		return nil, err
	}
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	if r.RespondedAt != nil {
		at := r.RespondedAt.UTC()
		r.RespondedAt = &at
	}
	return &r, nil
}

func (r ModificationRepository) ByID(ctx context.Context, id domainmodification.RequestID) (*domainmodification.Request, error) {
	req, err := scanRequest(db(ctx, r.Pool).QueryRow(ctx, `SELECT `+requestColumns+` FROM modification_requests WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainmodification.ErrRequestNotFound
	}
	return req, err
}

// Save relies on the partial unique index to refuse a second pending request.
func (r ModificationRepository) Save(ctx context.Context, req *domainmodification.Request) error {
	tag, err := db(ctx, r.Pool).Exec(ctx, `
		INSERT INTO modification_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, owner_response_message = EXCLUDED.owner_response_message,
			surplus_reference = EXCLUDED.surplus_reference, refund_reference = EXCLUDED.refund_reference,
			updated_at = EXCLUDED.updated_at, responded_at = EXCLUDED.responded_at, version = EXCLUDED.version
		WHERE modification_requests.version = $20`,
		string(req.ID), string(req.BookingID), string(req.ListingID), string(req.HostID), req.RequesterID,
		req.Original, req.Requested, req.RequestedPrice, req.PriceDelta, req.Currency, string(req.Status),
		req.GuestMessage, req.OwnerResponseMessage, req.SurplusReference, req.RefundReference,
		req.CreatedAt, req.UpdatedAt, req.RespondedAt, req.Version+1, req.Version)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domainmodification.ErrConcurrentUpdate
	}
	req.Version++
	return nil
}

func (r ModificationRepository) PendingForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainmodification.Request, error) {
	req, err := scanRequest(db(ctx, r.Pool).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM modification_requests WHERE booking_id = $1 AND status = 'pending'`, string(bookingID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainmodification.ErrRequestNotFound
	}
	return req, err
}

func (r ModificationRepository) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainmodification.Request, error) {
	rows, err := db(ctx, r.Pool).Query(ctx,
		`SELECT `+requestColumns+` FROM modification_requests WHERE booking_id = $1 ORDER BY created_at`, string(bookingID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainmodification.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

var (
	_ listings.ListingRepository    = ListingRepository{}
	_ domainavailability.Repository = CalendarRepository{}
	_ domainbooking.Repository      = BookingRepository{}
	_ domainmodification.Repository = ModificationRepository{}
)
