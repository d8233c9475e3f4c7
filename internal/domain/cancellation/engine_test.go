package cancellation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/shared/rules"
)

var start = time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

func vehicleSubject(base int64) Subject {
	return Subject{
		ServiceType: listings.ServiceVehicle,
		Range:       daterange.Must(start, start.Add(4*day)),
		Base:        base,
		Currency:    "XOF",
	}
}

func propertySubject(policy listings.CancellationPolicy, base int64) Subject {
	return Subject{
		ServiceType: listings.ServiceProperty,
		Policy:      policy,
		Range:       daterange.Must(start, start.Add(5*day)),
		Base:        base,
		Currency:    "XOF",
	}
}

func TestVehicleRenterBoundaries(t *testing.T) {
	engine := NewEngine()
	tests := []struct {
		name    string
		notice  time.Duration
		penalty int64
	}{
		{"exactly seven days", 7 * day, 0},
		{"six days twenty-three hours", 6*day + 23*time.Hour, 15},
		{"exactly seventy-two hours", 72 * time.Hour, 15},
		{"seventy-one hours", 71 * time.Hour, 30},
		{"exactly twenty-four hours", 24 * time.Hour, 30},
		{"twenty-three hours", 23 * time.Hour, 50},
		{"ten minutes", 10 * time.Minute, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Compute(vehicleSubject(100000), RoleRenter, start.Add(-tt.notice))
			require.NoError(t, err)
			assert.Equal(t, money.Percent(tt.penalty), res.PenaltyPercent)
			assert.Equal(t, tt.penalty*1000, res.Penalty)
			assert.Equal(t, 100000-tt.penalty*1000, res.RefundAmount)
		})
	}
}

func TestVehicleRenterThirtyHoursBeforeStart(t *testing.T) {
	res, err := NewEngine().Compute(vehicleSubject(85000), RoleRenter, start.Add(-30*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(25500), res.Penalty)
	assert.Equal(t, int64(59500), res.RefundAmount)
	assert.Equal(t, money.Percent(70), res.RefundPercent)
	assert.Equal(t, BearerGuest, res.Bearer)
	assert.Contains(t, res.Description, "30%")
}

func TestVehicleOwnerAlwaysRefundsInFull(t *testing.T) {
	engine := NewEngine()
	tests := []struct {
		notice  time.Duration
		penalty int64
	}{
		{28 * day, 0},
		{27 * day, 20},
		{7 * day, 20},
		{6 * day, 40},
		{48 * time.Hour, 40},
		{47 * time.Hour, 50},
	}
	for _, tt := range tests {
		res, err := engine.Compute(vehicleSubject(200000), RoleOwner, start.Add(-tt.notice))
		require.NoError(t, err)
		assert.Equal(t, tt.penalty*2000, res.Penalty, "notice %s", tt.notice)
		assert.Equal(t, int64(200000), res.RefundAmount)
		if tt.penalty > 0 {
			assert.Equal(t, BearerHost, res.Bearer)
		} else {
			assert.Equal(t, BearerNone, res.Bearer)
		}
	}
}

func TestVehicleInProgress(t *testing.T) {
	engine := NewEngine()
	now := start.Add(day + 2*time.Hour)

	renter, err := engine.Compute(vehicleSubject(80000), RoleRenter, now)
	require.NoError(t, err)
	assert.True(t, renter.InProgress)
	assert.Equal(t, int64(60000), renter.Basis, "three of four days left")
	assert.Equal(t, int64(30000), renter.Penalty)
	assert.Equal(t, int64(30000), renter.RefundAmount)

	owner, err := engine.Compute(vehicleSubject(80000), RoleOwner, now)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), owner.Penalty)
	assert.Equal(t, int64(60000), owner.RefundAmount)
	assert.Equal(t, BearerHost, owner.Bearer)
}

func TestPendingBookingCarriesNoPenalty(t *testing.T) {
	s := vehicleSubject(100000)
	s.Pending = true
	res, err := NewEngine().Compute(s, RoleRenter, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Penalty)
	assert.Zero(t, res.RefundAmount)
}

func TestTerminalBookingIsRejected(t *testing.T) {
	s := propertySubject(listings.PolicyFlexible, 100000)
	s.Terminal = true
	_, err := NewEngine().Compute(s, RoleGuest, start.Add(-10*day))
	require.ErrorIs(t, err, rules.ErrTerminalBookingState)
}

func TestEndedBookingIsRejected(t *testing.T) {
	_, err := NewEngine().Compute(vehicleSubject(1000), RoleRenter, start.Add(10*day))
	require.ErrorIs(t, err, rules.ErrInvalidBookingState)
}

func TestPropertyGuestPolicies(t *testing.T) {
	engine := NewEngine()
	tests := []struct {
		policy  listings.CancellationPolicy
		notice  time.Duration
		penalty int64
	}{
		{listings.PolicyFlexible, 24 * time.Hour, 0},
		{listings.PolicyFlexible, 23 * time.Hour, 50},
		{listings.PolicyModerate, 5 * day, 0},
		{listings.PolicyModerate, 4 * day, 50},
		{listings.PolicyStrict, 14 * day, 0},
		{listings.PolicyStrict, 10 * day, 50},
		{listings.PolicyStrict, 7 * day, 50},
		{listings.PolicyStrict, 6 * day, 100},
		{listings.PolicyNonRefundable, 90 * day, 100},
		{"", 4 * day, 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy)+"/"+tt.notice.String(), func(t *testing.T) {
			res, err := engine.Compute(propertySubject(tt.policy, 400000), RoleGuest, start.Add(-tt.notice))
			require.NoError(t, err)
			assert.Equal(t, tt.penalty*4000, res.Penalty)
			assert.Equal(t, 400000-tt.penalty*4000, res.RefundAmount)
		})
	}
}

func TestPropertyGuestInProgress(t *testing.T) {
	now := start.Add(2*day + time.Hour)
	res, err := NewEngine().Compute(propertySubject(listings.PolicyModerate, 500000), RoleGuest, now)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), res.Basis)
	assert.Equal(t, int64(150000), res.Penalty)
	assert.Equal(t, int64(150000), res.RefundAmount)
}

func TestPropertyHostRefundsGuestInFull(t *testing.T) {
	engine := NewEngine()
	tests := []struct {
		notice  time.Duration
		penalty int64
	}{
		{30 * day, 0},
		{29 * day, 25},
		{7 * day, 25},
		{2 * day, 50},
	}
	for _, tt := range tests {
		res, err := engine.Compute(propertySubject(listings.PolicyStrict, 400000), RoleHost, start.Add(-tt.notice))
		require.NoError(t, err)
		assert.Equal(t, tt.penalty*4000, res.Penalty)
		assert.Equal(t, int64(400000), res.RefundAmount)
	}
}

func TestSystemCancellationRefundsInFull(t *testing.T) {
	res, err := NewEngine().Compute(propertySubject(listings.PolicyNonRefundable, 1000), RoleSystem, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Penalty)
	assert.Equal(t, int64(1000), res.RefundAmount)
}

func TestUnknownRole(t *testing.T) {
	_, err := NewEngine().Compute(vehicleSubject(1000), Role("admin"), start.Add(-day))
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestRefundNeverExceedsAmountPaid(t *testing.T) {
	s := vehicleSubject(100000)
	s.Paid = 80000

	res, err := NewEngine().Compute(s, RoleOwner, start.Add(-30*day))
	require.NoError(t, err)
	assert.Equal(t, int64(80000), res.RefundAmount)

	res, err = NewEngine().Compute(s, RoleSystem, start.Add(-day))
	require.NoError(t, err)
	assert.Equal(t, int64(80000), res.RefundAmount)

	res, err = NewEngine().Compute(s, RoleRenter, start.Add(-30*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(30000), res.Penalty)
	assert.Equal(t, int64(70000), res.RefundAmount, "below the cap")
}
