package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/domain/trip"
)

func newViewTrip(t *testing.T) *trip.Trip {
	t.Helper()
	tr, err := trip.NewTrip(
		"trip-1",
		"customer-1",
		geo.Point{Latitude: 43.238949, Longitude: 76.889709, Address: "Abay Ave 10"},
		geo.Point{Latitude: 43.35, Longitude: 77.04, Address: "Airport"},
	)
	require.NoError(t, err)
	return tr
}

func TestNewTripView(t *testing.T) {
	tr := newViewTrip(t)
	require.NoError(t, tr.Accept("driver-1", "vehicle-1", time.Now().UTC()))

	view := NewTripView(tr)
	assert.Equal(t, "trip-1", view.ID)
	assert.Equal(t, "customer-1", view.CustomerID)
	require.NotNil(t, view.DriverID)
	assert.Equal(t, "driver-1", *view.DriverID)
	assert.Equal(t, "ACCEPTED", view.Status)
	assert.Equal(t, 43.238949, view.Pickup.Lat)
	assert.Equal(t, "Airport", view.Destination.Address)
	assert.Equal(t, tr.EstimatedFare, view.EstimatedFare)
	assert.Nil(t, view.FinalFare)
	assert.Greater(t, view.DistanceKM, 0.0)
}

func TestTripViewJSONShape(t *testing.T) {
	payload, err := json.Marshal(NewTripView(newViewTrip(t)))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	assert.Equal(t, "REQUESTED", fields["status"])
	assert.Contains(t, fields, "estimated_fare")
	assert.Contains(t, fields, "pickup")
	// unset optionals serialize as explicit nulls, not omissions
	assert.Contains(t, fields, "driver_id")
	assert.Nil(t, fields["driver_id"])
}
