package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"stayride/internal/app/policies"
	domainlistings "stayride/internal/domain/listings"
	domainpricing "stayride/internal/domain/pricing"
	"stayride/internal/domain/shared/money"
)

var ErrVoucherNotFound = errors.New("memory: voucher not found")

// VoucherDefinition is a promotional code as issued by marketing.
type VoucherDefinition struct {
	Code           string                     `json:"code"`
	Kind           domainpricing.VoucherKind  `json:"kind"`
	Percentage     float64                    `json:"percentage,omitempty"`
	Amount         int64                      `json:"amount,omitempty"`
	Currency       string                     `json:"currency,omitempty"`
	ServiceType    domainlistings.ServiceType `json:"service_type,omitempty"`
	ListingIDs     []domainlistings.ListingID `json:"listing_ids,omitempty"`
	ValidFrom      time.Time                  `json:"valid_from,omitempty"`
	ValidUntil     time.Time                  `json:"valid_until,omitempty"`
	MaxRedemptions int                        `json:"max_redemptions,omitempty"`
}

type voucherState struct {
	def      VoucherDefinition
	redeemed map[string]struct{}
}

// VoucherCatalogue validates codes against an in-process list.
type VoucherCatalogue struct {
	mu    sync.RWMutex
	codes map[string]*voucherState
}

func NewVoucherCatalogue(defs ...VoucherDefinition) *VoucherCatalogue {
	c := &VoucherCatalogue{codes: make(map[string]*voucherState)}
	for _, d := range defs {
		c.Add(d)
	}
	return c
}

func (c *VoucherCatalogue) Add(def VoucherDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[normalizeCode(def.Code)] = &voucherState{def: def, redeemed: make(map[string]struct{})}
}

func (c *VoucherCatalogue) Validate(ctx context.Context, code string, listing *domainlistings.Listing, now time.Time) (*domainpricing.Voucher, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &domainpricing.Voucher{Code: code}
	st, ok := c.codes[normalizeCode(code)]
	if !ok {
		out.Reason = "unknown code"
		return out, nil
	}
	d := st.def
	switch {
	case !d.ValidFrom.IsZero() && now.Before(d.ValidFrom):
		out.Reason = "not yet valid"
	case !d.ValidUntil.IsZero() && !now.Before(d.ValidUntil):
		out.Reason = "expired"
	case d.MaxRedemptions > 0 && len(st.redeemed) >= d.MaxRedemptions:
		out.Reason = "already used"
	case listing != nil && d.ServiceType != "" && d.ServiceType != listing.ServiceType:
		out.Reason = "not applicable to this service"
	case listing != nil && len(d.ListingIDs) > 0 && !containsListing(d.ListingIDs, listing.ID):
		out.Reason = "not applicable to this listing"
	case d.Kind == domainpricing.VoucherFixed && listing != nil && d.Currency != "" && !strings.EqualFold(d.Currency, listing.Currency):
		out.Reason = "currency mismatch"
	case d.Kind != domainpricing.VoucherPercentage && d.Kind != domainpricing.VoucherFixed:
		out.Reason = "unsupported voucher"
	default:
		out.Valid = true
		out.Kind = d.Kind
		out.Percentage = money.PercentFloat(d.Percentage)
		out.Amount = d.Amount
	}
	return out, nil
}

// Redeem records the booking against the code; redeeming twice for the same
// booking is a no-op.
func (c *VoucherCatalogue) Redeem(ctx context.Context, code string, bookingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.codes[normalizeCode(code)]
	if !ok {
		return ErrVoucherNotFound
	}
	st.redeemed[bookingID] = struct{}{}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func containsListing(ids []domainlistings.ListingID, id domainlistings.ListingID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

var _ policies.VoucherPort = (*VoucherCatalogue)(nil)
