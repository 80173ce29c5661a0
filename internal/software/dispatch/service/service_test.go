package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-dispatch/internal/domain/driver"
	"taxi-dispatch/internal/domain/trip"
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

// memTripRepo keeps trips in a map and settles Accept under one mutex, the
// same winner-takes-all contract the conditional UPDATE gives the real repo.
type memTripRepo struct {
	mu    sync.Mutex
	trips map[string]*trip.Trip
}

func newMemTripRepo() *memTripRepo {
	return &memTripRepo{trips: make(map[string]*trip.Trip)}
}

func (r *memTripRepo) Create(_ context.Context, t *trip.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.trips[t.ID] = &cp
	return nil
}

func (r *memTripRepo) GetByID(_ context.Context, id string) (*trip.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, trip.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTripRepo) List(_ context.Context, filter ports.TripFilter) ([]*trip.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*trip.Trip, 0, len(r.trips))
	for _, t := range r.trips {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTripRepo) Accept(_ context.Context, tripID, driverID, vehicleID string, acceptedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok {
		return trip.ErrNotFound
	}
	return t.Accept(driverID, vehicleID, acceptedAt)
}

func (r *memTripRepo) UpdateStatus(_ context.Context, id string, status trip.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return trip.ErrNotFound
	}
	switch status {
	case trip.StatusArrived:
		return t.MarkArrived(at)
	case trip.StatusInProgress:
		return t.Start(at)
	default:
		return trip.ErrInvalidTransition
	}
}

// Complete mirrors the repo's conditional UPDATE: the fare is stored exactly
// as given, so callers own any fallback pricing.
func (r *memTripRepo) Complete(_ context.Context, tripID string, finalFare float64, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok {
		return trip.ErrNotFound
	}
	if t.Status == trip.StatusCompleted {
		return nil
	}
	if !t.Status.CanTransitionTo(trip.StatusCompleted) {
		return trip.ErrInvalidTransition
	}
	at := completedAt.UTC()
	t.EndTime = &at
	t.FinalFare = &finalFare
	t.Status = trip.StatusCompleted
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memTripRepo) Cancel(_ context.Context, tripID string, cancelledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok {
		return trip.ErrNotFound
	}
	return t.Cancel(cancelledAt)
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*trip.Event
}

func (r *memEventRepo) Append(_ context.Context, e *trip.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type memDriverRepo struct {
	mu       sync.Mutex
	statuses map[string]driver.DriverStatus
}

func newMemDriverRepo() *memDriverRepo {
	return &memDriverRepo{statuses: make(map[string]driver.DriverStatus)}
}

func (r *memDriverRepo) GetByID(_ context.Context, driverID string) (*driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &driver.Driver{ID: driverID, Status: r.statuses[driverID]}, nil
}

func (r *memDriverRepo) UpdateStatus(_ context.Context, driverID string, status driver.DriverStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[driverID] = status
	return nil
}

func (r *memDriverRepo) ListAvailable(_ context.Context, _ int) ([]driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []driver.Driver
	for id, status := range r.statuses {
		if status == driver.DriverStatusAvailable {
			out = append(out, driver.Driver{ID: id, Status: status})
		}
	}
	return out, nil
}

func (r *memDriverRepo) status(driverID string) driver.DriverStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[driverID]
}

// ----- harness -----

type testEnv struct {
	svc     ports.DispatchService
	trips   *memTripRepo
	events  *memEventRepo
	drivers *memDriverRepo
}

// newTestEnv wires the service against in-memory repos. The broker client is
// a disconnected zero value, so publishes fail fast and get logged; the
// mutations under test must succeed regardless.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	trips := newMemTripRepo()
	events := &memEventRepo{}
	drivers := newMemDriverRepo()
	rmq := &rabbitmq.Client{}

	svc := NewDispatchService(
		logger.New("dispatch-service-test"),
		memUOW{},
		trips,
		events,
		drivers,
		rabbitmq.NewMQPublisher(rmq),
		rmq,
		websocket.NewRegistry("drivers"),
		websocket.NewRegistry("customers"),
	)
	return &testEnv{svc: svc, trips: trips, events: events, drivers: drivers}
}

func requestTrip(t *testing.T, env *testEnv) string {
	t.Helper()
	res, err := env.svc.RequestTrip(context.Background(), ports.RequestTripInput{
		CustomerID:           "customer-1",
		PickupLatitude:       43.238949,
		PickupLongitude:      76.889709,
		PickupAddress:        "Abay Ave 10",
		DestinationLatitude:  43.35,
		DestinationLongitude: 77.04,
		DestinationAddress:   "Airport",
	})
	require.NoError(t, err)
	require.Equal(t, "REQUESTED", res.Status)
	require.Greater(t, res.EstimatedFare, 0.0)
	return res.TripID
}

// ----- tests -----

func TestAcceptRaceExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t)
	tripID := requestTrip(t, env)

	const racers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losses  int
	)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(n int) {
			defer wg.Done()
			driverID := "driver-" + string(rune('a'+n))
			_, err := env.svc.AcceptTrip(context.Background(), ports.AcceptTripInput{
				TripID:    tripID,
				DriverID:  driverID,
				VehicleID: "vehicle-" + string(rune('a'+n)),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, driverID)
			case assert.ErrorIs(t, err, trip.ErrAlreadyAccepted):
				losses++
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, racers-1, losses)

	stored, err := env.trips.GetByID(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusAccepted, stored.Status)
	require.NotNil(t, stored.DriverID)
	assert.Equal(t, winners[0], *stored.DriverID)
	assert.Equal(t, driver.DriverStatusBusy, env.drivers.status(winners[0]))
}

func TestTripLifecycleFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tripID := requestTrip(t, env)

	_, err := env.svc.AcceptTrip(ctx, ports.AcceptTripInput{
		TripID: tripID, DriverID: "driver-1", VehicleID: "vehicle-1",
	})
	require.NoError(t, err)
	assert.Equal(t, driver.DriverStatusBusy, env.drivers.status("driver-1"))

	_, err = env.svc.MarkArrived(ctx, tripID)
	require.NoError(t, err)

	res, err := env.svc.StartTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", res.Trip.Status)

	res, err = env.svc.CompleteTrip(ctx, ports.CompleteTripInput{TripID: tripID, FinalFare: 2500})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Trip.Status)
	require.NotNil(t, res.Trip.FinalFare)
	assert.Equal(t, 2500.0, *res.Trip.FinalFare)

	// completing frees the driver for new offers
	assert.Equal(t, driver.DriverStatusAvailable, env.drivers.status("driver-1"))

	// request, accept, arrive, start, complete
	assert.Equal(t, 5, env.events.count())
}

func TestCompleteWithoutMeteredFareSettlesAtEstimate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tripID := requestTrip(t, env)

	_, err := env.svc.AcceptTrip(ctx, ports.AcceptTripInput{
		TripID: tripID, DriverID: "driver-1", VehicleID: "vehicle-1",
	})
	require.NoError(t, err)
	_, err = env.svc.MarkArrived(ctx, tripID)
	require.NoError(t, err)
	_, err = env.svc.StartTrip(ctx, tripID)
	require.NoError(t, err)

	stored, err := env.trips.GetByID(ctx, tripID)
	require.NoError(t, err)
	require.Greater(t, stored.EstimatedFare, 0.0)

	// no metered fare on the request body decodes to zero
	res, err := env.svc.CompleteTrip(ctx, ports.CompleteTripInput{TripID: tripID, FinalFare: 0})
	require.NoError(t, err)
	require.NotNil(t, res.Trip.FinalFare)
	assert.Equal(t, stored.EstimatedFare, *res.Trip.FinalFare)
}

func TestOffersSkipBusyAndUnknownDrivers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.drivers.UpdateStatus(ctx, "driver-1", driver.DriverStatusAvailable))
	require.NoError(t, env.drivers.UpdateStatus(ctx, "driver-2", driver.DriverStatusBusy))
	// driver-3 is connected but has no row in the store

	svc, ok := env.svc.(*dispatchService)
	require.True(t, ok)

	except := svc.ineligibleDrivers(ctx, []string{"driver-1", "driver-2", "driver-3"})
	assert.NotContains(t, except, "driver-1")
	assert.Contains(t, except, "driver-2")
	assert.Contains(t, except, "driver-3")

	// nobody connected, nobody to exclude
	assert.Nil(t, svc.ineligibleDrivers(ctx, nil))
}

func TestTransitionsRejectIllegalJumps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tripID := requestTrip(t, env)

	// cannot start or arrive before anyone accepted
	_, err := env.svc.StartTrip(ctx, tripID)
	assert.ErrorIs(t, err, trip.ErrInvalidTransition)
	_, err = env.svc.MarkArrived(ctx, tripID)
	assert.ErrorIs(t, err, trip.ErrInvalidTransition)

	_, err = env.svc.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"})
	require.NoError(t, err)
	_, err = env.svc.MarkArrived(ctx, tripID)
	require.NoError(t, err)
	_, err = env.svc.StartTrip(ctx, tripID)
	require.NoError(t, err)

	// no cancel once the customer is riding
	_, err = env.svc.CancelTrip(ctx, tripID)
	assert.ErrorIs(t, err, trip.ErrInvalidTransition)
}

func TestCancelBeforePickupFreesDriver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tripID := requestTrip(t, env)

	_, err := env.svc.AcceptTrip(ctx, ports.AcceptTripInput{TripID: tripID, DriverID: "driver-1"})
	require.NoError(t, err)

	res, err := env.svc.CancelTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", res.Trip.Status)
	assert.Equal(t, driver.DriverStatusAvailable, env.drivers.status("driver-1"))
}

func TestGetAndListTrips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tripID := requestTrip(t, env)

	view, err := env.svc.GetTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, tripID, view.ID)

	_, err = env.svc.GetTrip(ctx, "no-such-trip")
	assert.ErrorIs(t, err, trip.ErrNotFound)

	views, err := env.svc.ListTrips(ctx, ports.ListTripsInput{Status: "requested"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, tripID, views[0].ID)
}
