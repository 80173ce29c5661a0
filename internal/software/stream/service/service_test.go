package service

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-dispatch/internal/domain/device"
	"taxi-dispatch/internal/domain/geo"
	"taxi-dispatch/internal/domain/video"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/general/logger"
	"taxi-dispatch/internal/general/rabbitmq"
	"taxi-dispatch/internal/general/websocket"
	"taxi-dispatch/internal/ports"
)

// ----- in-memory fakes -----

type memUOW struct{}

func (memUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memLiveCache mirrors the redis cache contract: latest sample per vehicle,
// filtered by a freshness window on read.
type memLiveCache struct {
	mu      sync.Mutex
	window  time.Duration
	latest  map[string]contracts.LocationUpdateMessage
	devices map[string]time.Time
}

func newMemLiveCache(window time.Duration) *memLiveCache {
	return &memLiveCache{
		window:  window,
		latest:  make(map[string]contracts.LocationUpdateMessage),
		devices: make(map[string]time.Time),
	}
}

func (c *memLiveCache) SetVehicleLocation(_ context.Context, msg contracts.LocationUpdateMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest[msg.VehicleID] = msg
	return nil
}

func (c *memLiveCache) LiveVehicleLocations(_ context.Context) ([]contracts.LocationUpdateMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contracts.LocationUpdateMessage, 0, len(c.latest))
	for _, msg := range c.latest {
		if time.Since(msg.Timestamp) <= c.window {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (c *memLiveCache) TouchDevice(_ context.Context, deviceID string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices[deviceID] = at
	return nil
}

func (c *memLiveCache) DeviceOnline(_ context.Context, deviceID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.devices[deviceID]
	return ok && time.Since(at) <= c.window, nil
}

type memDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*device.Device
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{devices: make(map[string]*device.Device)}
}

func (r *memDeviceRepo) Upsert(_ context.Context, d *device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.devices[d.ID] = &cp
	return nil
}

func (r *memDeviceRepo) GetByID(_ context.Context, id string) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDeviceRepo) List(_ context.Context) ([]*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memDeviceRepo) Ping(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return device.ErrNotFound
	}
	d.Ping(at)
	return nil
}

// MarkStale mirrors the store's sweep: only ONLINE devices with a missing or
// outdated last ping flip to OFFLINE.
func (r *memDeviceRepo) MarkStale(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	marked := 0
	for _, d := range r.devices {
		if d.Status != device.StatusOnline {
			continue
		}
		if d.LastPing == nil || d.LastPing.Before(cutoff) {
			d.Status = device.StatusOffline
			marked++
		}
	}
	return marked, nil
}

func (r *memDeviceRepo) backdatePing(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[id]; ok {
		d.LastPing = &at
	}
}

type memHistoryRepo struct {
	mu       sync.Mutex
	archived []*geo.VehicleLocation
}

func (r *memHistoryRepo) Archive(_ context.Context, loc *geo.VehicleLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived = append(r.archived, loc)
	return nil
}

// ----- harness -----

type testEnv struct {
	svc     ports.StreamService
	cache   *memLiveCache
	devices *memDeviceRepo
	hub     *websocket.VideoHub
}

// newTestEnv wires the service against in-memory fakes. The broker client is
// a disconnected zero value, so fan-out publishes fail; everything that must
// survive a broker outage is asserted through the cache and the hub.
func newTestEnv(t *testing.T, maxFrameBytes int) *testEnv {
	t.Helper()

	cache := newMemLiveCache(time.Minute)
	devices := newMemDeviceRepo()
	hub := websocket.NewVideoHub(time.Minute)
	rmq := &rabbitmq.Client{}

	svc := NewStreamService(
		logger.New("stream-service-test"),
		memUOW{},
		devices,
		&memHistoryRepo{},
		cache,
		rabbitmq.NewMQPublisher(rmq),
		rmq,
		websocket.NewRegistry("tracking"),
		hub,
		time.Minute,
		maxFrameBytes,
	)
	return &testEnv{svc: svc, cache: cache, devices: devices, hub: hub}
}

const testImage = "aGVsbG8gd29ybGQ=" // "hello world"

// ----- tests -----

func TestPublishLocationCachesLatestBeforeFanOut(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	in := ports.PublishLocationInput{
		VehicleID:  "vehicle-1",
		Latitude:   43.238949,
		Longitude:  76.889709,
		DeviceID:   "cam-1",
		RecordedAt: time.Now().UTC(),
	}

	// the broker is down, so the fan-out publish fails; the latest-position
	// cache must hold the sample anyway
	err := env.svc.PublishLocation(ctx, in)
	assert.Error(t, err)

	in.Latitude = 43.25
	_ = env.svc.PublishLocation(ctx, in)

	live, err := env.svc.LiveLocations(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "vehicle-1", live[0].VehicleID)
	assert.Equal(t, 43.25, live[0].Latitude)

	online, err := env.cache.DeviceOnline(ctx, "cam-1")
	require.NoError(t, err)
	assert.True(t, online)
}

func TestPublishLocationRejectsBadSample(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	err := env.svc.PublishLocation(ctx, ports.PublishLocationInput{
		VehicleID: "vehicle-1",
		Latitude:  95,
		Longitude: 76.889709,
	})
	assert.Error(t, err)

	live, err := env.svc.LiveLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestUploadFrameCachesLatest(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	// devices may stream before being enrolled
	viewers, err := env.svc.UploadFrame(ctx, ports.UploadFrameInput{
		DeviceID: "cam-1",
		Image:    testImage,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, viewers)

	frame, err := env.svc.LatestFrame(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, "cam-1", frame.DeviceID)
	assert.Equal(t, len("hello world"), frame.Size)

	streaming, err := env.svc.StreamingDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cam-1"}, streaming)
}

func TestUploadFrameRejects(t *testing.T) {
	env := newTestEnv(t, 8)
	ctx := context.Background()

	_, err := env.svc.UploadFrame(ctx, ports.UploadFrameInput{DeviceID: "  ", Image: testImage})
	assert.ErrorIs(t, err, video.ErrDeviceIDRequired)

	_, err = env.svc.UploadFrame(ctx, ports.UploadFrameInput{DeviceID: "cam-1", Image: "%%%"})
	assert.ErrorIs(t, err, video.ErrNotBase64)

	big := base64.StdEncoding.EncodeToString(make([]byte, 64))
	_, err = env.svc.UploadFrame(ctx, ports.UploadFrameInput{DeviceID: "cam-1", Image: big})
	assert.ErrorIs(t, err, video.ErrFrameTooLarge)

	_, err = env.svc.LatestFrame(ctx, "cam-1")
	assert.ErrorIs(t, err, video.ErrNoFrame)
}

func TestDeviceLifecycle(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	view, err := env.svc.RegisterDevice(ctx, ports.RegisterDeviceInput{
		ID:        "cam-1",
		Name:      "dashcam front",
		VehicleID: "vehicle-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cam-1", view.ID)
	assert.False(t, view.Online)

	view, err = env.svc.PingDevice(ctx, "cam-1")
	require.NoError(t, err)
	assert.True(t, view.Online)
	require.NotNil(t, view.LastPing)

	views, err := env.svc.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	_, err = env.svc.GetDevice(ctx, "cam-2")
	assert.ErrorIs(t, err, device.ErrNotFound)

	_, err = env.svc.PingDevice(ctx, "cam-2")
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestSweepMarksSilentDevicesOffline(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	for _, id := range []string{"cam-1", "cam-2"} {
		_, err := env.svc.RegisterDevice(ctx, ports.RegisterDeviceInput{
			ID: id, Name: "dashcam " + id, VehicleID: "vehicle-1",
		})
		require.NoError(t, err)
		_, err = env.svc.PingDevice(ctx, id)
		require.NoError(t, err)
	}

	// cam-2 went silent two freshness windows ago
	env.devices.backdatePing("cam-2", time.Now().UTC().Add(-2*time.Minute))

	svc, ok := env.svc.(*streamService)
	require.True(t, ok)
	svc.sweepStaleDevices(ctx)

	fresh, err := env.devices.GetByID(ctx, "cam-1")
	require.NoError(t, err)
	assert.Equal(t, device.StatusOnline, fresh.Status)

	stale, err := env.devices.GetByID(ctx, "cam-2")
	require.NoError(t, err)
	assert.Equal(t, device.StatusOffline, stale.Status)
}
