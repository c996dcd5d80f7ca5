package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancellationPolicy(t *testing.T) {
	tests := []struct {
		status    RideStatus
		cancel    bool
		penalty   float64
		wantError bool
	}{
		{StatusRequested, true, 0.1, false},
		{StatusAccepted, true, 0.3, false},
		{StatusInProgress, true, 0.5, false},
		{StatusCompleted, false, 0, true},
		{StatusCancelled, false, 0, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.cancel, CanCancel(tt.status))
			p, err := CancellationPenalty(tt.status)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrRideNotCancellable)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.penalty, p, 1e-9)
		})
	}
}

func TestCanAccept(t *testing.T) {
	assert.True(t, CanAccept(Ride{Status: StatusRequested}))
	assert.False(t, CanAccept(Ride{Status: StatusRequested, DriverName: "bob"}))
	for _, s := range []RideStatus{StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled} {
		assert.False(t, CanAccept(Ride{Status: s}), s)
	}
}

func TestTerminalStatusesAbsorb(t *testing.T) {
	all := []RideStatus{StatusRequested, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled}
	for _, from := range []RideStatus{StatusCompleted, StatusCancelled} {
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, CanTransition(StatusRequested, StatusAccepted))
	assert.True(t, CanTransition(StatusAccepted, StatusInProgress))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))
	assert.True(t, CanTransition(StatusInProgress, StatusCancelled))
	assert.False(t, CanTransition(StatusRequested, StatusCompleted))
}

func TestEstimateFare(t *testing.T) {
	q, err := EstimateFare("downtown", "Airport")
	require.NoError(t, err)

	// rune sums 864 and 737
	assert.Equal(t, "Downtown", q.Pickup)
	assert.Equal(t, 12, q.DistanceKm)
	assert.InDelta(t, 194.0, q.Fare, 1e-9)
	assert.Equal(t, 29, q.EstimatedMinutes)

	again, err := EstimateFare("Airport", "Downtown")
	require.NoError(t, err)
	assert.Equal(t, q.DistanceKm, again.DistanceKm)
}

func TestEstimateFareRejectsBadRoutes(t *testing.T) {
	_, err := EstimateFare("Mall", "mall")
	assert.ErrorIs(t, err, ErrSameLocation)

	_, err = EstimateFare("Mars", "Mall")
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.Equal(t, KindValidation, Classify(err))
}

func TestFormatPenalty(t *testing.T) {
	a, b := 0.1, 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{0.1, "0.1"},
		{0.25, "0.25"},
		{0.5, "0.5"},
		{1, "1"},
		{a + b, "0.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPenalty(tt.in))
	}
}
