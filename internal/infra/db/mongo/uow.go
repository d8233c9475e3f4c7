package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	listings      *ListingRepository
	calendars     *CalendarRepository
	bookings      *BookingRepository
	modifications *ModificationRepository
}

func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:            db,
		listings:      NewListingRepository(db),
		calendars:     NewCalendarRepository(db),
		bookings:      NewBookingRepository(db),
		modifications: NewModificationRepository(db),
	}
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.listings == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:       session,
		readOnly:      opts.ReadOnly,
		listings:      f.listings,
		calendars:     f.calendars,
		bookings:      f.bookings,
		modifications: f.modifications,
	}, nil
}

// Unit runs every repository call on the session bound by InjectContext.
type Unit struct {
	uow.Compensations

	session  mongo.Session
	readOnly bool

	listings      *ListingRepository
	calendars     *CalendarRepository
	bookings      *BookingRepository
	modifications *ModificationRepository
}

func (u *Unit) Listings() domainlistings.ListingRepository { return u.listings }

func (u *Unit) Availability() domainavailability.Repository { return u.calendars }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Modifications() domainmodification.Repository { return u.modifications }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		u.Discard()
		return u.session.AbortTransaction(ctx)
	}
	if err := u.session.CommitTransaction(ctx); err != nil {
		u.Compensate(ctx)
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	u.Discard()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	defer u.Compensate(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
