package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(day int) time.Time {
	return time.Date(2026, 7, day, 0, 0, 0, 0, time.UTC)
}

func TestNewRejectsEmptyAndInverted(t *testing.T) {
	_, err := New(d(5), d(5))
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(d(6), d(5))
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(time.Time{}, d(5))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := Must(d(1), d(5))
	assert.False(t, a.Overlaps(Must(d(5), d(8))), "checkout day equal to check-in is free")
	assert.True(t, a.Overlaps(Must(d(4), d(8))))
	assert.True(t, a.Overlaps(Must(d(2), d(3))))
	assert.False(t, Must(d(5), d(8)).Overlaps(a))
}

func TestRemaining(t *testing.T) {
	r := Must(d(1), d(5))
	rest, ok := r.Remaining(d(3))
	require.True(t, ok)
	assert.Equal(t, d(3), rest.CheckIn)
	assert.Equal(t, 2, rest.Nights())

	_, ok = r.Remaining(d(5))
	assert.False(t, ok)

	rest, ok = r.Remaining(d(1).Add(-time.Hour))
	require.True(t, ok)
	assert.True(t, rest.Equal(r))
}

func TestNightsUsesCalendarDates(t *testing.T) {
	r := Must(d(1).Add(15*time.Hour), d(3).Add(11*time.Hour))
	assert.Equal(t, 2, r.Nights())
}
