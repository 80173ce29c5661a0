package websocket

import (
	"sync"
	"time"

	"taxi-dispatch/internal/general/contracts"
)

// VideoHub fans frames out to per-device subscriber sets and keeps the last
// frame per device so a new viewer sees a picture immediately. The cache is
// independent of subscribers: a device with zero viewers still has its
// latest frame retained and replaced on every upload.
type VideoHub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Conn]struct{} // device id -> subscribers
	latest map[string]contracts.WSFrame  // device id -> last frame
	ttl    time.Duration
}

// NewVideoHub creates a hub. Cached frames older than ttl are not replayed.
func NewVideoHub(ttl time.Duration) *VideoHub {
	return &VideoHub{
		subs:   make(map[string]map[*Conn]struct{}),
		latest: make(map[string]contracts.WSFrame),
		ttl:    ttl,
	}
}

// Subscribe adds conn as a viewer of deviceID and replays the cached frame,
// if it is still fresh, so the viewer does not wait for the next upload.
func (h *VideoHub) Subscribe(deviceID string, conn *Conn) {
	h.mu.Lock()
	set := h.subs[deviceID]
	if set == nil {
		set = make(map[*Conn]struct{})
		h.subs[deviceID] = set
	}
	set[conn] = struct{}{}
	// Replay while still holding the lock: a concurrent Publish must not
	// deliver a newer frame before the cached one.
	if frame, ok := h.latest[deviceID]; ok && time.Since(frame.Timestamp) <= h.ttl {
		_ = conn.WriteJSON(frame)
	}
	h.mu.Unlock()
}

// Unsubscribe removes conn from deviceID's viewers.
func (h *VideoHub) Unsubscribe(deviceID string, conn *Conn) {
	h.mu.Lock()
	if set := h.subs[deviceID]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.subs, deviceID)
		}
	}
	h.mu.Unlock()
}

// Publish replaces the device's cached frame and pushes it to current
// viewers. Dead viewers are dropped as their writes fail.
func (h *VideoHub) Publish(frame contracts.WSFrame) int {
	h.mu.Lock()
	h.latest[frame.DeviceID] = frame
	set := h.subs[frame.DeviceID]
	targets := make([]*Conn, 0, len(set))
	for conn := range set {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	sent := 0
	for _, conn := range targets {
		if err := conn.WriteJSON(frame); err != nil {
			h.Unsubscribe(frame.DeviceID, conn)
			continue
		}
		sent++
	}
	return sent
}

// Latest returns the cached frame for a device if it is still fresh.
func (h *VideoHub) Latest(deviceID string) (contracts.WSFrame, bool) {
	h.mu.RLock()
	frame, ok := h.latest[deviceID]
	h.mu.RUnlock()

	if !ok || time.Since(frame.Timestamp) > h.ttl {
		return contracts.WSFrame{}, false
	}
	return frame, true
}

// Devices returns the ids of devices with a cached frame, fresh or not.
func (h *VideoHub) Devices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.latest))
	for id := range h.latest {
		out = append(out, id)
	}
	return out
}

// Subscribers returns the number of viewers across all devices.
func (h *VideoHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}
