package listings

import (
	"time"
)

type ListingCreatedEvent struct {
	ListingID   ListingID
	HostID      HostID
	ServiceType ServiceType
	At          time.Time
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingActivatedEvent struct {
	ListingID ListingID
	HostID    HostID
	At        time.Time
}

func (e ListingActivatedEvent) EventName() string     { return "listing.activated" }
func (e ListingActivatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingActivatedEvent) OccurredAt() time.Time { return e.At }

type ListingSuspendedEvent struct {
	ListingID ListingID
	Reason    string
	At        time.Time
}

func (e ListingSuspendedEvent) EventName() string     { return "listing.suspended" }
func (e ListingSuspendedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingSuspendedEvent) OccurredAt() time.Time { return e.At }

type ListingPricingUpdatedEvent struct {
	ListingID ListingID
	At        time.Time
}

func (e ListingPricingUpdatedEvent) EventName() string     { return "listing.pricing_updated" }
func (e ListingPricingUpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingPricingUpdatedEvent) OccurredAt() time.Time { return e.At }
