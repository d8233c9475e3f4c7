package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/rules"
)

func day0(n int) time.Time {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func rng(from, to int) daterange.DateRange {
	return daterange.Must(day0(from), day0(to))
}

func TestHasConflict(t *testing.T) {
	existing := []Occupancy{{Reference: "b1", Range: rng(0, 4)}}
	blocked := []daterange.DateRange{rng(10, 12)}

	tests := []struct {
		name     string
		proposed daterange.DateRange
		want     bool
	}{
		{"checkout equals check-in", rng(4, 6), false},
		{"check-in equals checkout", rng(-3, 0), false},
		{"overlap tail", rng(3, 6), true},
		{"inside", rng(1, 2), true},
		{"covering", rng(-1, 5), true},
		{"blocked period", rng(11, 13), true},
		{"between", rng(5, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasConflict(existing, blocked, tt.proposed))
		})
	}
}

func TestHasConflictIsSymmetric(t *testing.T) {
	for a := 0; a < 8; a++ {
		for b := a + 1; b <= 8; b++ {
			for c := 0; c < 8; c++ {
				for d := c + 1; d <= 8; d++ {
					x, y := rng(a, b), rng(c, d)
					ab := HasConflict([]Occupancy{{Range: x}}, nil, y)
					ba := HasConflict([]Occupancy{{Range: y}}, nil, x)
					require.Equal(t, ab, ba, "x=%v y=%v", x, y)
				}
			}
		}
	}
}

func TestExcluding(t *testing.T) {
	existing := []Occupancy{{Reference: "b1", Range: rng(0, 4)}, {Reference: "b2", Range: rng(6, 8)}}
	assert.False(t, HasConflict(Excluding(existing, "b1"), nil, rng(1, 3)))
	assert.True(t, HasConflict(Excluding(existing, "b1"), nil, rng(7, 9)))
}

func TestCalendarReserveAndMove(t *testing.T) {
	now := day0(-30)
	cal := NewCalendar("l1")
	require.NoError(t, cal.Reserve(rng(0, 3), "b1", now))
	require.NoError(t, cal.Reserve(rng(3, 5), "b2", now))

	err := cal.Reserve(rng(2, 4), "b3", now)
	require.ErrorIs(t, err, rules.ErrDateConflict)

	require.NoError(t, cal.Move("b1", rng(-2, 2), now), "own hold is ignored when moving")
	require.ErrorIs(t, cal.Move("b1", rng(1, 4), now), rules.ErrDateConflict)

	require.NoError(t, cal.BlockRange(rng(10, 12), "maintenance", now))
	require.ErrorIs(t, cal.Reserve(rng(11, 14), "b4", now), rules.ErrDateConflict)
	assert.Len(t, cal.Occupancies(), 2)
	assert.Len(t, cal.BlockedRanges(), 1)

	require.NoError(t, cal.Release("b2", now))
	assert.True(t, cal.CanReserve(rng(3, 5)))
	require.ErrorIs(t, cal.Release("b2", now), ErrRangeNotFound)
	assert.NotEmpty(t, cal.PendingEvents())
}

func TestCalendarRejectsDuplicateReference(t *testing.T) {
	cal := NewCalendar("l1")
	require.NoError(t, cal.Reserve(rng(0, 3), "b1", day0(-1)))
	require.ErrorIs(t, cal.Reserve(rng(5, 6), "b1", day0(-1)), ErrDuplicateReference)
}
