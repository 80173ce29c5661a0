package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

const (
	vehicleKeyPrefix = "tracking:vehicle:"
	deviceKeyPrefix  = "device:seen:"
)

// LiveCache keeps the latest GPS sample per vehicle and a device presence
// marker, both expiring after the freshness window. It backs GET
// /tracking/live and the device "online" flag.
type LiveCache struct {
	client *goredis.Client
	window time.Duration
}

// NewLiveCache wraps an established Redis client.
func NewLiveCache(client *goredis.Client, freshnessWindow time.Duration) ports.LiveCache {
	return &LiveCache{client: client, window: freshnessWindow}
}

// SetVehicleLocation stores the latest sample for a vehicle. The TTL equals
// the freshness window, so stale vehicles disappear on their own.
func (c *LiveCache) SetVehicleLocation(ctx context.Context, msg contracts.LocationUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, vehicleKeyPrefix+msg.VehicleID, body, c.window).Err()
}

// LiveVehicleLocations returns the latest sample per vehicle that is still
// within the freshness window.
func (c *LiveCache) LiveVehicleLocations(ctx context.Context) ([]contracts.LocationUpdateMessage, error) {
	var (
		out    []contracts.LocationUpdateMessage
		cursor uint64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, vehicleKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			body, err := c.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, goredis.Nil) {
					continue // expired between SCAN and GET
				}
				return nil, err
			}
			var msg contracts.LocationUpdateMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				continue // skip poison entries
			}
			out = append(out, msg)
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// TouchDevice marks a device as recently seen (ping or frame upload).
func (c *LiveCache) TouchDevice(ctx context.Context, deviceID string, at time.Time) error {
	return c.client.Set(ctx, deviceKeyPrefix+deviceID, at.UTC().Format(time.RFC3339Nano), c.window).Err()
}

// DeviceOnline reports whether the device was seen within the window.
func (c *LiveCache) DeviceOnline(ctx context.Context, deviceID string) (bool, error) {
	n, err := c.client.Exists(ctx, deviceKeyPrefix+deviceID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
