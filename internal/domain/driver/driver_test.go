package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriver(t *testing.T) {
	d, err := NewDriver("driver-1", "  Aidos  ", "vehicle-7")
	require.NoError(t, err)
	assert.Equal(t, "driver-1", d.ID)
	assert.Equal(t, "Aidos", d.Name)
	require.NotNil(t, d.VehicleID)
	assert.Equal(t, "vehicle-7", *d.VehicleID)
	assert.Equal(t, DriverStatusOffline, d.Status)

	d, err = NewDriver("driver-2", "Marat", "")
	require.NoError(t, err)
	assert.Nil(t, d.VehicleID)

	_, err = NewDriver("   ", "Marat", "")
	assert.ErrorIs(t, err, ErrUserIDRequired)
}

func TestDriverStatusTransitions(t *testing.T) {
	d, err := NewDriver("driver-1", "Aidos", "")
	require.NoError(t, err)

	// busy is only reachable from available
	assert.ErrorIs(t, d.MarkBusy(), ErrInvalidStatusSwitch)

	require.NoError(t, d.MarkAvailable())
	assert.Equal(t, DriverStatusAvailable, d.Status)
	assert.ErrorIs(t, d.MarkAvailable(), ErrInvalidStatusSwitch)

	require.NoError(t, d.MarkBusy())
	assert.Equal(t, DriverStatusBusy, d.Status)

	require.NoError(t, d.MarkAvailable())
	require.NoError(t, d.GoOffline())
	assert.Equal(t, DriverStatusOffline, d.Status)
	assert.ErrorIs(t, d.GoOffline(), ErrInvalidStatusSwitch)
}

func TestParseDriverStatus(t *testing.T) {
	status, err := ParseDriverStatus(" busy ")
	require.NoError(t, err)
	assert.Equal(t, DriverStatusBusy, status)

	_, err = ParseDriverStatus("NAPPING")
	assert.ErrorIs(t, err, ErrInvalidDriverStatus)
}

func TestDispatchable(t *testing.T) {
	assert.True(t, DriverStatusAvailable.Dispatchable())
	assert.False(t, DriverStatusBusy.Dispatchable())
	assert.False(t, DriverStatusOffline.Dispatchable())
}
