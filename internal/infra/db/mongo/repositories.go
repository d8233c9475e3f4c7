package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
	"stayride/internal/domain/shared/rules"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// versionedUpsert writes doc where the stored version still equals expected.
// A missing match on an existing id surfaces as a duplicate key on upsert.
func versionedUpsert(ctx context.Context, col *mongo.Collection, id string, expected int64, doc any) error {
	filter := bson.M{"_id": id, "version": expected}
	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// duplicateOn reports whether err is a duplicate key error raised by the named index.
func duplicateOn(err error, index string) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), index)
}

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, listings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *listings.Listing) error {
	doc := newListingDocument(l)
	doc.Version = l.Version + 1
	if err := versionedUpsert(ctx, r.col, doc.ID, l.Version, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	l.Version = doc.Version
	return nil
}

type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(calendarsCollection)}
}

// Calendar returns an empty calendar for listings that never held a block.
func (r *CalendarRepository) Calendar(ctx context.Context, id listings.ListingID) (*domainavailability.AvailabilityCalendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.AvailabilityCalendar) error {
	doc := newCalendarDocument(cal)
	doc.Version = cal.Version + 1
	if err := versionedUpsert(ctx, r.col, doc.ID, cal.Version, doc); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) || mongo.IsDuplicateKeyError(err) {
			return domainavailability.ErrConcurrentUpdate
		}
		return err
	}
	cal.Version = doc.Version
	return nil
}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if err := versionedUpsert(ctx, r.col, doc.ID, b.Version, doc); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) || mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID listings.ListingID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"listing_id": string(listingID)})
}

func (r *BookingRepository) ListByStatus(ctx context.Context, statuses ...domainbooking.Status) ([]*domainbooking.Booking, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return r.find(ctx, bson.M{"status": bson.M{"$in": values}})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type ModificationRepository struct {
	col *mongo.Collection
}

func NewModificationRepository(db *mongo.Database) *ModificationRepository {
	return &ModificationRepository{col: db.Collection(modificationsCollection)}
}

func (r *ModificationRepository) ByID(ctx context.Context, id domainmodification.RequestID) (*domainmodification.Request, error) {
	var doc requestDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmodification.ErrRequestNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save relies on the partial unique index to refuse a second pending request.
func (r *ModificationRepository) Save(ctx context.Context, req *domainmodification.Request) error {
	doc := newRequestDocument(req)
	doc.Version = req.Version + 1
	if err := versionedUpsert(ctx, r.col, doc.ID, req.Version, doc); err != nil {
		switch {
		case duplicateOn(err, pendingPerBookingIndex):
			return rules.Newf(rules.KindDuplicatePendingRequest, "booking %s already has a pending change request", req.BookingID)
		case errors.Is(err, ErrConcurrentUpdate) || mongo.IsDuplicateKeyError(err):
			return domainmodification.ErrConcurrentUpdate
		}
		return err
	}
	req.Version = doc.Version
	return nil
}

func (r *ModificationRepository) PendingForBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainmodification.Request, error) {
	var doc requestDocument
	filter := bson.M{"booking_id": string(bookingID), "status": string(domainmodification.StatusPending)}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmodification.ErrRequestNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ModificationRepository) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainmodification.Request, error) {
	cur, err := r.col.Find(ctx, bson.M{"booking_id": string(bookingID)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainmodification.Request
	for cur.Next(ctx) {
		var doc requestDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

var (
	_ listings.ListingRepository    = (*ListingRepository)(nil)
	_ domainavailability.Repository = (*CalendarRepository)(nil)
	_ domainbooking.Repository      = (*BookingRepository)(nil)
	_ domainmodification.Repository = (*ModificationRepository)(nil)
)
