package policies

import (
	"context"

	"stayride/internal/domain/shared/money"
)

// PaymentsPort is the payment collaborator. Each call returns a reference the
// booking or modification keeps as proof of the money movement.
type PaymentsPort interface {
	Capture(ctx context.Context, bookingID string, amount money.Money) (string, error)
	ChargeSurplus(ctx context.Context, bookingID string, amount money.Money) (string, error)
	Refund(ctx context.Context, bookingID string, amount money.Money) (string, error)
}
