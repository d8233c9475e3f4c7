package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"stayride/internal/app/policies"
	"stayride/internal/domain/shared/money"
)

var (
	ErrNonPositiveAmount = errors.New("memory: payment amount must be positive")
	ErrRefundExceeds     = errors.New("memory: refund exceeds collected amount")
)

type EntryKind string

const (
	EntryCapture EntryKind = "capture"
	EntrySurplus EntryKind = "surplus"
	EntryRefund  EntryKind = "refund"
)

type LedgerEntry struct {
	Reference string
	BookingID string
	Kind      EntryKind
	Amount    money.Money
	At        time.Time
}

// Ledger is an in-process payment provider that records every money movement.
type Ledger struct {
	mu      sync.Mutex
	entries []LedgerEntry
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

func (l *Ledger) Capture(ctx context.Context, bookingID string, amount money.Money) (string, error) {
	return l.record(bookingID, EntryCapture, amount)
}

func (l *Ledger) ChargeSurplus(ctx context.Context, bookingID string, amount money.Money) (string, error) {
	return l.record(bookingID, EntrySurplus, amount)
}

func (l *Ledger) Refund(ctx context.Context, bookingID string, amount money.Money) (string, error) {
	return l.record(bookingID, EntryRefund, amount)
}

// Balance is what the ledger currently holds for a booking.
func (l *Ledger) Balance(bookingID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(bookingID)
}

func (l *Ledger) Entries(bookingID string) []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LedgerEntry
	for _, e := range l.entries {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out
}

func (l *Ledger) record(bookingID string, kind EntryKind, amount money.Money) (string, error) {
	if amount.Amount <= 0 {
		return "", ErrNonPositiveAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if kind == EntryRefund && amount.Amount > l.balanceLocked(bookingID) {
		return "", ErrRefundExceeds
	}
	entry := LedgerEntry{
		Reference: string(kind) + "_" + uuid.NewString(),
		BookingID: bookingID,
		Kind:      kind,
		Amount:    amount,
		At:        l.now(),
	}
	l.entries = append(l.entries, entry)
	return entry.Reference, nil
}

func (l *Ledger) balanceLocked(bookingID string) int64 {
	var total int64
	for _, e := range l.entries {
		if e.BookingID != bookingID {
			continue
		}
		if e.Kind == EntryRefund {
			total -= e.Amount.Amount
		} else {
			total += e.Amount.Amount
		}
	}
	return total
}

var _ policies.PaymentsPort = (*Ledger)(nil)
