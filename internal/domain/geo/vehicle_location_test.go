package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestNewVehicleLocation(t *testing.T) {
	now := time.Now().UTC()
	loc, err := NewVehicleLocation("vehicle-1", 43.2, 76.9, now)
	require.NoError(t, err)
	assert.Equal(t, "vehicle-1", loc.VehicleID)
	assert.Equal(t, now, loc.RecordedAt)

	// a zero timestamp defaults to now
	loc, err = NewVehicleLocation("vehicle-1", 43.2, 76.9, time.Time{})
	require.NoError(t, err)
	assert.False(t, loc.RecordedAt.IsZero())
}

func TestVehicleLocationValidate(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewVehicleLocation("  ", 43.2, 76.9, now)
	assert.ErrorIs(t, err, ErrMissingVehicleID)

	_, err = NewVehicleLocation("vehicle-1", 90.5, 76.9, now)
	assert.ErrorIs(t, err, ErrInvalidLatitude)

	_, err = NewVehicleLocation("vehicle-1", 43.2, -180.5, now)
	assert.ErrorIs(t, err, ErrInvalidLongitude)

	loc, err := NewVehicleLocation("vehicle-1", 43.2, 76.9, now)
	require.NoError(t, err)

	loc.SpeedKMH = f(-1)
	assert.ErrorIs(t, loc.Validate(), ErrNegativeSpeed)
	loc.SpeedKMH = nil

	loc.AccuracyMeters = f(-0.1)
	assert.ErrorIs(t, loc.Validate(), ErrNegativeAccuracy)
	loc.AccuracyMeters = nil

	loc.HeadingDegrees = f(361)
	assert.ErrorIs(t, loc.Validate(), ErrInvalidHeading)

	// some GPS SDKs report 360.0 instead of 0.0
	loc.HeadingDegrees = f(360)
	assert.NoError(t, loc.Validate())
}

func TestFresh(t *testing.T) {
	now := time.Now().UTC()
	loc, err := NewVehicleLocation("vehicle-1", 43.2, 76.9, now.Add(-30*time.Second))
	require.NoError(t, err)

	assert.True(t, loc.Fresh(now, 60*time.Second))
	assert.False(t, loc.Fresh(now, 10*time.Second))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Latitude: 0, Longitude: 0}.Valid())
	assert.True(t, Point{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Point{Latitude: 90.0001, Longitude: 0}.Valid())
	assert.False(t, Point{Latitude: 0, Longitude: -180.0001}.Valid())
}
