package availability

import (
	"stayride/internal/domain/shared/daterange"
)

// Occupancy is a confirmed stay or rental holding its dates. Pending bookings
// are never turned into occupancies: the first booking to be confirmed wins.
type Occupancy struct {
	Reference string
	Range     daterange.DateRange
}

// Conflict describes what a proposed range collides with.
type Conflict struct {
	Reference string
	Range     daterange.DateRange
	Blocked   bool
}

// HasConflict reports whether proposed overlaps any occupancy or blocked range.
// Ranges are half-open, so a checkout on another stay's check-in day is free.
func HasConflict(existing []Occupancy, blocked []daterange.DateRange, proposed daterange.DateRange) bool {
	_, found := FindConflict(existing, blocked, proposed)
	return found
}

func FindConflict(existing []Occupancy, blocked []daterange.DateRange, proposed daterange.DateRange) (Conflict, bool) {
	for _, o := range existing {
		if o.Range.Overlaps(proposed) {
			return Conflict{Reference: o.Reference, Range: o.Range}, true
		}
	}
	for _, r := range blocked {
		if r.Overlaps(proposed) {
			return Conflict{Range: r, Blocked: true}, true
		}
	}
	return Conflict{}, false
}

// Excluding drops the occupancy held by reference, typically the booking being modified.
func Excluding(existing []Occupancy, reference string) []Occupancy {
	out := make([]Occupancy, 0, len(existing))
	for _, o := range existing {
		if o.Reference != reference {
			out = append(out, o)
		}
	}
	return out
}
