package money

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// Money keeps amounts in whole currency units; the marketplace currencies have no minor unit.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsPositive() bool {
	return m.Amount > 0
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// Rate is a percentage expressed in basis points: Percent(20) == 2000.
type Rate int64

const rateBase = 10_000

// Percent builds a Rate from a whole percentage.
func Percent(p int64) Rate {
	return Rate(p * 100)
}

// PercentFloat builds a Rate from a decimal percentage such as 12.5.
func PercentFloat(p float64) Rate {
	return Rate(math.Round(p * 100))
}

// Percent reports the rate as a decimal percentage.
func (r Rate) Percent() float64 {
	return float64(r) / 100
}

func (r Rate) Valid() bool {
	return r >= 0 && r <= rateBase
}

// Share returns amount*rate rounded half-up to the nearest whole unit.
// Negative amounts round half away from zero so Share(-x) == -Share(x).
func Share(amount int64, r Rate) int64 {
	return roundDiv(amount*int64(r), rateBase)
}

// Prorate returns amount*num/den rounded half-up.
func Prorate(amount int64, num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return roundDiv(amount*num, den)
}

func roundDiv(n, d int64) int64 {
	if d < 0 {
		n, d = -n, -d
	}
	q, rem := n/d, n%d
	if rem < 0 {
		rem = -rem
	}
	if rem*2 >= d {
		if n < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}
