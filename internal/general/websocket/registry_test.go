package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConn upgrades a real websocket pair over an httptest server and
// returns the server-side Conn plus the raw client socket for reading.
func newTestConn(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- newConn(ws)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case conn := <-connCh:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side of websocket never arrived")
		return nil, nil
	}
}

func readJSON(t *testing.T, client *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, v))
}

func TestRegistrySend(t *testing.T) {
	reg := NewRegistry("drivers")
	conn, client := newTestConn(t)

	reg.Register("driver-1", conn)
	require.NoError(t, reg.Send("driver-1", map[string]string{"type": "new_trip"}))

	var got map[string]string
	readJSON(t, client, &got)
	assert.Equal(t, "new_trip", got["type"])

	assert.ErrorIs(t, reg.Send("driver-2", map[string]string{}), ErrChannelUnavailable)
}

func TestRegistrySupersession(t *testing.T) {
	reg := NewRegistry("drivers")
	first, firstClient := newTestConn(t)
	second, secondClient := newTestConn(t)

	assert.Nil(t, reg.Register("driver-1", first))
	assert.Same(t, first, reg.Register("driver-1", second))
	assert.Equal(t, 1, reg.Count())

	// the superseded client sees a policy violation close
	require.NoError(t, firstClient.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := firstClient.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)

	// sends land on the replacement
	require.NoError(t, reg.Send("driver-1", map[string]string{"type": "trip_taken"}))
	var got map[string]string
	readJSON(t, secondClient, &got)
	assert.Equal(t, "trip_taken", got["type"])
}

func TestRegistryUnregisterOnlyIfCurrent(t *testing.T) {
	reg := NewRegistry("customers")
	first, _ := newTestConn(t)
	second, secondClient := newTestConn(t)

	reg.Register("customer-1", first)
	reg.Register("customer-1", second)

	// the stale connection's teardown must not evict its replacement
	reg.Unregister("customer-1", first)
	require.NoError(t, reg.Send("customer-1", map[string]string{"type": "trip_update"}))
	var got map[string]string
	readJSON(t, secondClient, &got)
	assert.Equal(t, "trip_update", got["type"])

	reg.Unregister("customer-1", second)
	assert.ErrorIs(t, reg.Send("customer-1", map[string]string{}), ErrChannelUnavailable)
	assert.Equal(t, 0, reg.Count())
}

func TestRegistryBroadcastExcept(t *testing.T) {
	reg := NewRegistry("drivers")
	clients := map[string]*websocket.Conn{}
	for _, id := range []string{"driver-1", "driver-2", "driver-3"} {
		conn, client := newTestConn(t)
		reg.Register(id, conn)
		clients[id] = client
	}

	sent := reg.Broadcast(map[string]string{"type": "trip_taken"}, "driver-2")
	assert.Equal(t, 2, sent)

	for _, id := range []string{"driver-1", "driver-3"} {
		var got map[string]string
		readJSON(t, clients[id], &got)
		assert.Equal(t, "trip_taken", got["type"])
	}

	// the excluded driver gets nothing
	require.NoError(t, clients["driver-2"].SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := clients["driver-2"].ReadMessage()
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{"driver-1", "driver-2", "driver-3"}, reg.Keys())
}

func TestRegistryEvictsDeadConnection(t *testing.T) {
	reg := NewRegistry("drivers")
	conn, _ := newTestConn(t)

	reg.Register("driver-1", conn)
	conn.Close(websocket.CloseNormalClosure, "bye")

	assert.Error(t, reg.Send("driver-1", map[string]string{"type": "new_trip"}))
	assert.Equal(t, 0, reg.Count())
	assert.ErrorIs(t, reg.Send("driver-1", map[string]string{}), ErrChannelUnavailable)
}
