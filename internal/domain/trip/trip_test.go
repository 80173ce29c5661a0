package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-dispatch/internal/domain/geo"
)

var (
	testPickup = geo.Point{Latitude: 43.238949, Longitude: 76.889709, Address: "Abay Ave 1"}
	testDest   = geo.Point{Latitude: 43.255058, Longitude: 76.942551, Address: "Dostyk Ave 100"}
)

func newTestTrip(t *testing.T) *Trip {
	t.Helper()
	tr, err := NewTrip("trip-1", "customer-1", testPickup, testDest)
	require.NoError(t, err)
	return tr
}

func TestNewTrip(t *testing.T) {
	tr := newTestTrip(t)

	assert.Equal(t, StatusRequested, tr.Status)
	assert.Nil(t, tr.DriverID)
	assert.Greater(t, tr.DistanceKM, 0.0)
	assert.GreaterOrEqual(t, tr.DurationMinutes, 1)
	assert.Greater(t, tr.EstimatedFare, 0.0)
}

func TestNewTripValidation(t *testing.T) {
	_, err := NewTrip("", "customer-1", testPickup, testDest)
	assert.True(t, IsValidation(err))

	_, err = NewTrip("trip-1", "  ", testPickup, testDest)
	assert.True(t, IsValidation(err))

	bad := geo.Point{Latitude: 91, Longitude: 0}
	_, err = NewTrip("trip-1", "customer-1", bad, testDest)
	assert.True(t, IsValidation(err))

	bad = geo.Point{Latitude: 0, Longitude: -200}
	_, err = NewTrip("trip-1", "customer-1", testPickup, bad)
	assert.True(t, IsValidation(err))
}

func TestTripLifecycle(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()

	require.NoError(t, tr.Accept("driver-1", "vehicle-1", now))
	assert.Equal(t, StatusAccepted, tr.Status)
	require.NotNil(t, tr.DriverID)
	assert.Equal(t, "driver-1", *tr.DriverID)
	require.NotNil(t, tr.AcceptedAt)

	require.NoError(t, tr.MarkArrived(now))
	assert.Equal(t, StatusArrived, tr.Status)

	require.NoError(t, tr.Start(now))
	assert.Equal(t, StatusInProgress, tr.Status)
	require.NotNil(t, tr.StartTime)

	require.NoError(t, tr.Complete(1790, now))
	assert.Equal(t, StatusCompleted, tr.Status)
	require.NotNil(t, tr.FinalFare)
	assert.Equal(t, 1790.0, *tr.FinalFare)
	require.NotNil(t, tr.EndTime)
}

func TestAcceptTwice(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()

	require.NoError(t, tr.Accept("driver-1", "vehicle-1", now))
	err := tr.Accept("driver-2", "vehicle-2", now)
	assert.ErrorIs(t, err, ErrAlreadyAccepted)
	assert.Equal(t, "driver-1", *tr.DriverID)
}

func TestAcceptRequiresDriver(t *testing.T) {
	tr := newTestTrip(t)
	err := tr.Accept("  ", "vehicle-1", time.Now().UTC())
	assert.True(t, IsValidation(err))
}

func TestOutOfOrderTransitions(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()

	assert.ErrorIs(t, tr.MarkArrived(now), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Start(now), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Complete(100, now), ErrInvalidTransition)
}

func TestCompleteFallsBackToEstimate(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()

	require.NoError(t, tr.Accept("driver-1", "", now))
	require.NoError(t, tr.MarkArrived(now))
	require.NoError(t, tr.Start(now))
	require.NoError(t, tr.Complete(0, now))

	require.NotNil(t, tr.FinalFare)
	assert.Equal(t, tr.EstimatedFare, *tr.FinalFare)
}

func TestCancelBeforeStart(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()

	require.NoError(t, tr.Cancel(now))
	assert.Equal(t, StatusCancelled, tr.Status)
	require.NotNil(t, tr.CancelledAt)
	require.NotNil(t, tr.EndTime)
}

func TestCancelRejectedInProgress(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()

	require.NoError(t, tr.Accept("driver-1", "vehicle-1", now))
	require.NoError(t, tr.MarkArrived(now))
	require.NoError(t, tr.Start(now))

	assert.ErrorIs(t, tr.Cancel(now), ErrInvalidTransition)
	assert.Equal(t, StatusInProgress, tr.Status)
}

func TestCancelRejectedTerminal(t *testing.T) {
	tr := newTestTrip(t)
	now := time.Now().UTC()
	require.NoError(t, tr.Cancel(now))
	assert.ErrorIs(t, tr.Cancel(now), ErrInvalidTransition)
}
