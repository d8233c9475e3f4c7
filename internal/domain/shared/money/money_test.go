package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   Rate
		want   int64
	}{
		{"exact", 500_000, Percent(20), 100_000},
		{"half rounds up", 5, Percent(10), 1},
		{"below half rounds down", 4, Percent(10), 0},
		{"fractional rate", 1_000, PercentFloat(12.5), 125},
		{"negative mirrors positive", -5, Percent(10), -1},
		{"zero rate", 123_456, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Share(tt.amount, tt.rate))
		})
	}
}

func TestProrate(t *testing.T) {
	assert.Equal(t, int64(67), Prorate(100, 2, 3))
	assert.Equal(t, int64(33), Prorate(100, 1, 3))
	assert.Equal(t, int64(0), Prorate(100, 1, 0))
}

func TestMoneyArithmetic(t *testing.T) {
	a := Must(100, "xof")
	assert.Equal(t, "XOF", a.Currency)

	sum, err := a.Add(Must(50, "XOF"))
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum.Amount)

	_, err = a.Sub(Must(1, "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = New(1, "EURO")
	require.ErrorIs(t, err, ErrInvalidCurrency)
	assert.Equal(t, int64(-100), a.Neg().Amount)
}

func TestRateValid(t *testing.T) {
	assert.True(t, Percent(0).Valid())
	assert.True(t, Percent(100).Valid())
	assert.False(t, Percent(101).Valid())
	assert.False(t, Rate(-1).Valid())
	assert.InDelta(t, 12.5, PercentFloat(12.5).Percent(), 0.0001)
}
