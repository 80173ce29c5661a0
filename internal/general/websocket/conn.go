package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsAuthTimeout    = 5 * time.Second
	wsPingInterval   = 30 * time.Second
	wsCloseAckWindow = 2 * time.Second
	wsMaxFrameBytes  = 1 << 20 // 1 MiB
)

// Conn wraps a gorilla connection with a per-connection write mutex so pings,
// broadcasts, and targeted sends never interleave on the wire.
type Conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// WriteJSON marshals v and writes a single text frame under a write deadline.
func (c *Conn) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, payload)
}

// WriteMessage writes one frame under the shared write deadline.
func (c *Conn) WriteMessage(mt int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(mt, payload)
}

// Ping sends a ping control frame.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// Close sends a close frame (best effort) and closes the socket. Safe to call
// more than once.
func (c *Conn) Close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	c.mu.Unlock()
	_ = c.ws.Close()
}

// ReadMessage delegates to the underlying socket, refreshing the read deadline.
func (c *Conn) ReadMessage() (int, []byte, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	return c.ws.ReadMessage()
}
