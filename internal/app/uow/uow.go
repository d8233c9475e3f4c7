package uow

import (
	"context"
	"sync"

	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainmodification "stayride/internal/domain/modification"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlistings.ListingRepository
	Availability() domainavailability.Repository
	Bookings() domainbooking.Repository
	Modifications() domainmodification.Repository

	// OnRollback registers an undo step for a side effect performed outside
	// the store. Steps run in reverse order when the unit rolls back or its
	// commit fails, and are dropped on a successful commit.
	OnRollback(fn func(ctx context.Context))

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// Compensations is embedded by unit implementations to satisfy OnRollback.
type Compensations struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

func (c *Compensations) OnRollback(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

// Compensate runs and clears the registered steps, newest first. The steps
// get a context detached from cancellation of the failed request.
func (c *Compensations) Compensate(ctx context.Context) {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i](ctx)
	}
}

// Discard clears the registered steps after a successful commit.
func (c *Compensations) Discard() {
	c.mu.Lock()
	c.fns = nil
	c.mu.Unlock()
}
