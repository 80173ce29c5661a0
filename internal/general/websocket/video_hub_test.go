package websocket

import (
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-dispatch/internal/general/contracts"
)

func testFrame(deviceID string, ts time.Time) contracts.WSFrame {
	return contracts.WSFrame{
		Type:      "frame",
		DeviceID:  deviceID,
		Image:     "aGVsbG8=",
		Timestamp: ts,
		Size:      5,
	}
}

func TestVideoHubPublishFanout(t *testing.T) {
	hub := NewVideoHub(time.Minute)

	connA, clientA := newTestConn(t)
	connB, clientB := newTestConn(t)
	connOther, _ := newTestConn(t)

	hub.Subscribe("cam-1", connA)
	hub.Subscribe("cam-1", connB)
	hub.Subscribe("cam-2", connOther)
	assert.Equal(t, 3, hub.Subscribers())

	sent := hub.Publish(testFrame("cam-1", time.Now()))
	assert.Equal(t, 2, sent)

	var got contracts.WSFrame
	readJSON(t, clientA, &got)
	assert.Equal(t, "cam-1", got.DeviceID)
	readJSON(t, clientB, &got)
	assert.Equal(t, "cam-1", got.DeviceID)
}

func TestVideoHubLatest(t *testing.T) {
	hub := NewVideoHub(time.Minute)

	_, ok := hub.Latest("cam-1")
	assert.False(t, ok)

	// frames are retained even with zero viewers
	sent := hub.Publish(testFrame("cam-1", time.Now()))
	assert.Equal(t, 0, sent)

	frame, ok := hub.Latest("cam-1")
	require.True(t, ok)
	assert.Equal(t, "cam-1", frame.DeviceID)

	// a stale frame is cached but not served
	hub.Publish(testFrame("cam-2", time.Now().Add(-time.Hour)))
	_, ok = hub.Latest("cam-2")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"cam-1", "cam-2"}, hub.Devices())
}

func TestVideoHubReplayOnSubscribe(t *testing.T) {
	hub := NewVideoHub(time.Minute)
	hub.Publish(testFrame("cam-1", time.Now()))

	conn, client := newTestConn(t)
	hub.Subscribe("cam-1", conn)

	var got contracts.WSFrame
	readJSON(t, client, &got)
	assert.Equal(t, "cam-1", got.DeviceID)
	assert.Equal(t, "frame", got.Type)
}

func TestVideoHubReplayOrderedAgainstPublish(t *testing.T) {
	hub := NewVideoHub(time.Minute)

	// publish continuously with a growing size so delivery order is visible
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			frame := testFrame("cam-1", time.Now())
			frame.Size = i
			hub.Publish(frame)
		}
	}()

	conn, client := newTestConn(t)
	hub.Subscribe("cam-1", conn)

	// the replayed frame must never arrive after a newer published one
	sizes := make([]int, 0, 10)
	for len(sizes) < cap(sizes) {
		var got contracts.WSFrame
		readJSON(t, client, &got)
		sizes = append(sizes, got.Size)
	}
	close(stop)
	<-done

	for i := 1; i < len(sizes); i++ {
		assert.GreaterOrEqual(t, sizes[i], sizes[i-1])
	}
}

func TestVideoHubNoReplayWhenStale(t *testing.T) {
	hub := NewVideoHub(100 * time.Millisecond)
	hub.Publish(testFrame("cam-1", time.Now().Add(-time.Second)))

	conn, client := newTestConn(t)
	hub.Subscribe("cam-1", conn)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)

	// the next upload still reaches the viewer
	sent := hub.Publish(testFrame("cam-1", time.Now()))
	assert.Equal(t, 1, sent)
}

func TestVideoHubUnsubscribe(t *testing.T) {
	hub := NewVideoHub(time.Minute)
	conn, _ := newTestConn(t)

	hub.Subscribe("cam-1", conn)
	hub.Unsubscribe("cam-1", conn)
	assert.Equal(t, 0, hub.Subscribers())
	assert.Equal(t, 0, hub.Publish(testFrame("cam-1", time.Now())))
}

func TestVideoHubDropsDeadViewer(t *testing.T) {
	hub := NewVideoHub(time.Minute)
	conn, _ := newTestConn(t)

	hub.Subscribe("cam-1", conn)
	conn.Close(gorilla.CloseNormalClosure, "bye")

	assert.Equal(t, 0, hub.Publish(testFrame("cam-1", time.Now())))
	assert.Equal(t, 0, hub.Subscribers())
}
