package cancellation

import "errors"

var ErrUnknownRole = errors.New("cancellation: unknown actor role")

// Role is who acts on a booking. Guests and renters are the paying side,
// hosts and owners the providing side; system covers automated jobs.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleRenter Role = "renter"
	RoleHost   Role = "host"
	RoleOwner  Role = "owner"
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleRenter, RoleHost, RoleOwner, RoleSystem:
		return true
	}
	return false
}

// Traveler reports whether the role is the paying side.
func (r Role) Traveler() bool {
	return r == RoleGuest || r == RoleRenter
}

// Provider reports whether the role is the host or owner.
func (r Role) Provider() bool {
	return r == RoleHost || r == RoleOwner
}
