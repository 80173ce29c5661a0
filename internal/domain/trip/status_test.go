package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("  in_progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)

	st, err = ParseStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, st)

	_, err = ParseStatus("TELEPORTING")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusRequested, StatusAccepted, true},
		{StatusRequested, StatusCancelled, true},
		{StatusRequested, StatusArrived, false},
		{StatusRequested, StatusCompleted, false},

		{StatusAccepted, StatusArrived, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusInProgress, false},

		{StatusArrived, StatusInProgress, true},
		{StatusArrived, StatusCancelled, true},
		{StatusArrived, StatusCompleted, false},

		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, false}, // no cancel once riding

		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusRequested, false},
		{StatusCancelled, StatusAccepted, false},
	}

	for _, c := range cases {
		assert.Equalf(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusRequested.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.False(t, StatusArrived.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}

func TestEventTypeForStatus(t *testing.T) {
	assert.Equal(t, EventTripAccepted, EventTypeForStatus(StatusAccepted))
	assert.Equal(t, EventDriverArrived, EventTypeForStatus(StatusArrived))
	assert.Equal(t, EventTripStarted, EventTypeForStatus(StatusInProgress))
	assert.Equal(t, EventTripCompleted, EventTypeForStatus(StatusCompleted))
	assert.Equal(t, EventTripCancelled, EventTypeForStatus(StatusCancelled))
}
