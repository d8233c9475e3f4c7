package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/rules"
)

var (
	ErrListingNotFound  = errors.New("listings: not found")
	ErrTitleRequired    = errors.New("listings: title is required")
	ErrHostRequired     = errors.New("listings: host is required")
	ErrOccupancyLimit   = errors.New("listings: max occupancy must be at least 1")
	ErrUnitsRange       = errors.New("listings: min units must be <= max units")
	ErrInvalidState     = errors.New("listings: invalid state transition")
	ErrUnknownService   = errors.New("listings: unknown service type")
	ErrUnknownPolicy    = errors.New("listings: unknown cancellation policy")
	ErrCurrencyRequired = errors.New("listings: currency is required")
)

type ListingID string
type HostID string

// ServiceType distinguishes furnished-property stays from vehicle rentals.
type ServiceType string

const (
	ServiceProperty ServiceType = "property"
	ServiceVehicle  ServiceType = "vehicle"
)

func (s ServiceType) Valid() bool {
	return s == ServiceProperty || s == ServiceVehicle
}

// UnitName is the billing unit label: nights for stays, days for rentals.
func (s ServiceType) UnitName() string {
	if s == ServiceVehicle {
		return "day"
	}
	return "night"
}

// CancellationPolicy is declared by property hosts; vehicles use a fixed ladder.
type CancellationPolicy string

const (
	PolicyFlexible      CancellationPolicy = "flexible"
	PolicyModerate      CancellationPolicy = "moderate"
	PolicyStrict        CancellationPolicy = "strict"
	PolicyNonRefundable CancellationPolicy = "non_refundable"
)

func (p CancellationPolicy) Valid() bool {
	switch p {
	case PolicyFlexible, PolicyModerate, PolicyStrict, PolicyNonRefundable:
		return true
	}
	return false
}

type ListingState string

const (
	ListingDraft     ListingState = "DRAFT"
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

type Listing struct {
	ID                 ListingID
	Host               HostID
	Title              string
	ServiceType        ServiceType
	Currency           string
	Pricing            PricingConfig
	MinUnits           int
	MaxUnits           int
	MaxOccupancy       int
	CancellationPolicy CancellationPolicy
	State              ListingState
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateListingParams struct {
	ID                 ListingID
	Host               HostID
	Title              string
	ServiceType        ServiceType
	Currency           string
	Pricing            PricingConfig
	MinUnits           int
	MaxUnits           int
	MaxOccupancy       int
	CancellationPolicy CancellationPolicy
	Now                time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !params.ServiceType.Valid() {
		return nil, ErrUnknownService
	}
	if strings.TrimSpace(params.Currency) == "" {
		return nil, ErrCurrencyRequired
	}
	if params.MaxOccupancy < 1 {
		return nil, ErrOccupancyLimit
	}
	minUnits := params.MinUnits
	if minUnits < 1 {
		minUnits = 1
	}
	if params.MaxUnits > 0 && minUnits > params.MaxUnits {
		return nil, ErrUnitsRange
	}
	policy := params.CancellationPolicy
	if params.ServiceType == ServiceProperty {
		if policy == "" {
			policy = PolicyModerate
		}
		if !policy.Valid() {
			return nil, ErrUnknownPolicy
		}
	} else {
		policy = ""
	}
	if err := params.Pricing.Validate(params.ServiceType); err != nil {
		return nil, err
	}

	listing := &Listing{
		ID:                 params.ID,
		Host:               params.Host,
		Title:              strings.TrimSpace(params.Title),
		ServiceType:        params.ServiceType,
		Currency:           strings.ToUpper(strings.TrimSpace(params.Currency)),
		Pricing:            params.Pricing,
		MinUnits:           minUnits,
		MaxUnits:           params.MaxUnits,
		MaxOccupancy:       params.MaxOccupancy,
		CancellationPolicy: policy,
		State:              ListingDraft,
		CreatedAt:          params.Now.UTC(),
		UpdatedAt:          params.Now.UTC(),
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, ServiceType: listing.ServiceType, At: listing.CreatedAt})
	return listing, nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if l.MaxOccupancy < 1 {
		return ErrOccupancyLimit
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingActivatedEvent{ListingID: l.ID, HostID: l.Host, At: l.UpdatedAt})
	return nil
}

func (l *Listing) Suspend(reason string, now time.Time) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspendedEvent{ListingID: l.ID, Reason: reason, At: l.UpdatedAt})
	return nil
}

// UpdatePricing replaces the pricing configuration; existing bookings keep their snapshot.
func (l *Listing) UpdatePricing(cfg PricingConfig, now time.Time) error {
	if err := cfg.Validate(l.ServiceType); err != nil {
		return err
	}
	l.Pricing = cfg
	l.UpdatedAt = now.UTC()
	l.Record(ListingPricingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// OwnedBy reports whether actorID is the listing's host or owner.
func (l *Listing) OwnedBy(actorID string) bool {
	return actorID != "" && string(l.Host) == actorID
}

// ValidateStay checks a billed duration and party size against the listing limits.
// The pricing engine never clamps; this is where out-of-policy requests are refused.
func (l *Listing) ValidateStay(units, guests int) error {
	if units < 1 {
		return rules.Newf(rules.KindInvalidDateRange, "at least one %s is required", l.ServiceType.UnitName())
	}
	if units < l.MinUnits {
		return rules.Newf(rules.KindMinimumUnitsViolation, "minimum is %d %s(s), got %d", l.MinUnits, l.ServiceType.UnitName(), units)
	}
	if l.MaxUnits > 0 && units > l.MaxUnits {
		return rules.Newf(rules.KindMinimumUnitsViolation, "maximum is %d %s(s), got %d", l.MaxUnits, l.ServiceType.UnitName(), units)
	}
	if guests < 1 {
		return rules.New(rules.KindMaxOccupancyViolation, "at least one guest is required")
	}
	if guests > l.MaxOccupancy {
		return rules.Newf(rules.KindMaxOccupancyViolation, "maximum occupancy is %d, got %d", l.MaxOccupancy, guests)
	}
	return nil
}
