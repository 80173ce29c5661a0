package websocket

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrChannelUnavailable is returned when a targeted send has no live
// connection for the key. Callers treat it as a skipped notification,
// never as a failure of the underlying mutation.
var ErrChannelUnavailable = errors.New("no active channel for id")

// Registry keeps at most one live connection per key. Registering a new
// connection for a key already present closes and replaces the old one,
// so a reconnecting client always wins. Each registry has its own lock;
// no lock is ever shared between registries.
type Registry struct {
	name string

	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry creates an empty registry. The name only shows up in stats.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:  name,
		conns: make(map[string]*Conn),
	}
}

// Register installs conn as the active channel for key and returns the
// superseded connection, if any. The old connection is closed outside the
// lock.
func (r *Registry) Register(key string, conn *Conn) *Conn {
	r.mu.Lock()
	old := r.conns[key]
	r.conns[key] = conn
	r.mu.Unlock()

	if old != nil {
		old.Close(websocket.ClosePolicyViolation, "superseded by a newer connection")
	}
	return old
}

// Unregister removes conn for key, but only if it is still the active one.
// A connection superseded by a newer registration must not evict its
// replacement during its own teardown.
func (r *Registry) Unregister(key string, conn *Conn) {
	r.mu.Lock()
	if r.conns[key] == conn {
		delete(r.conns, key)
	}
	r.mu.Unlock()
}

// Send delivers one message to the key's active channel. Delivery is
// at-most-once: a write failure evicts the dead connection and the message
// is dropped.
func (r *Registry) Send(key string, msg any) error {
	r.mu.RLock()
	conn := r.conns[key]
	r.mu.RUnlock()

	if conn == nil {
		return ErrChannelUnavailable
	}
	return r.sendTo(key, conn, msg)
}

// Broadcast delivers one message to every active channel except the listed
// keys. Dead connections are evicted as they fail; failures do not stop the
// fan-out. Returns the number of successful deliveries.
func (r *Registry) Broadcast(msg any, except ...string) int {
	skip := make(map[string]bool, len(except))
	for _, k := range except {
		skip[k] = true
	}

	r.mu.RLock()
	targets := make(map[string]*Conn, len(r.conns))
	for key, conn := range r.conns {
		if !skip[key] {
			targets[key] = conn
		}
	}
	r.mu.RUnlock()

	sent := 0
	for key, conn := range targets {
		if err := r.sendTo(key, conn, msg); err == nil {
			sent++
		}
	}
	return sent
}

// Count returns the number of active channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Keys returns the ids with an active channel.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for key := range r.conns {
		out = append(out, key)
	}
	return out
}

// Name returns the registry name used in stats.
func (r *Registry) Name() string { return r.name }

// sendTo writes msg and evicts the connection on failure.
func (r *Registry) sendTo(key string, conn *Conn, msg any) error {
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close(websocket.CloseInternalServerErr, "write failed")
		r.Unregister(key, conn)
		return err
	}
	return nil
}
