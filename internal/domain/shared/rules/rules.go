// Package rules holds the validation failure taxonomy shared by the booking engine.
// Every business rule breach is reported as a *Violation carrying a Kind, so callers
// can branch on the kind instead of matching strings.
package rules

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidDateRange        Kind = "InvalidDateRange"
	KindMinimumUnitsViolation   Kind = "MinimumUnitsViolation"
	KindMaxOccupancyViolation   Kind = "MaxOccupancyViolation"
	KindDateConflict            Kind = "DateConflict"
	KindDuplicatePendingRequest Kind = "DuplicatePendingRequest"
	KindTerminalBookingState    Kind = "TerminalBookingState"
	KindVoucherInvalid          Kind = "VoucherInvalid"
	KindInvalidBookingState     Kind = "InvalidBookingState"
	KindSurplusNotCaptured      Kind = "SurplusNotCaptured"
	KindNotAllowed              Kind = "NotAllowed"
)

type Violation struct {
	Kind   Kind
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return "rules: " + string(v.Kind)
	}
	return fmt.Sprintf("rules: %s: %s", v.Kind, v.Detail)
}

// Is matches any violation of the same kind against a bare sentinel.
func (v *Violation) Is(target error) bool {
	t, ok := target.(*Violation)
	if !ok {
		return false
	}
	return t.Kind == v.Kind && (t.Detail == "" || t.Detail == v.Detail)
}

var (
	ErrInvalidDateRange        = &Violation{Kind: KindInvalidDateRange}
	ErrMinimumUnitsViolation   = &Violation{Kind: KindMinimumUnitsViolation}
	ErrMaxOccupancyViolation   = &Violation{Kind: KindMaxOccupancyViolation}
	ErrDateConflict            = &Violation{Kind: KindDateConflict}
	ErrDuplicatePendingRequest = &Violation{Kind: KindDuplicatePendingRequest}
	ErrTerminalBookingState    = &Violation{Kind: KindTerminalBookingState}
	ErrVoucherInvalid          = &Violation{Kind: KindVoucherInvalid}
	ErrInvalidBookingState     = &Violation{Kind: KindInvalidBookingState}
	ErrSurplusNotCaptured      = &Violation{Kind: KindSurplusNotCaptured}
	ErrNotAllowed              = &Violation{Kind: KindNotAllowed}
)

func New(kind Kind, detail string) *Violation {
	return &Violation{Kind: kind, Detail: detail}
}

func Newf(kind Kind, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the violation kind from err, if any.
func KindOf(err error) (Kind, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v.Kind, true
	}
	return "", false
}
