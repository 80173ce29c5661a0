package ports

import (
	"context"
	"time"

	"taxi-dispatch/internal/general/contracts"
)

// ----- DTOs for Dispatch Service -----

// RequestTripInput is the validated input required to request a trip.
type RequestTripInput struct {
	CustomerID           string
	PickupLatitude       float64
	PickupLongitude      float64
	PickupAddress        string
	DestinationLatitude  float64
	DestinationLongitude float64
	DestinationAddress   string
}

// RequestTripResult is returned by DispatchService.RequestTrip().
type RequestTripResult struct {
	TripID                   string  `json:"trip_id"`
	Status                   string  `json:"status"`
	EstimatedFare            float64 `json:"estimated_fare"`
	EstimatedDurationMinutes int     `json:"estimated_duration_minutes"`
	EstimatedDistanceKM      float64 `json:"estimated_distance_km"`
}

// AcceptTripInput identifies the driver racing for a trip.
type AcceptTripInput struct {
	TripID    string
	DriverID  string
	VehicleID string
}

// CompleteTripInput optionally carries the metered final fare; zero means
// "settle at the estimate".
type CompleteTripInput struct {
	TripID    string
	FinalFare float64
}

// TransitionResult is the API response for accept/arrive/start/complete/cancel.
type TransitionResult struct {
	Trip      contracts.TripView `json:"trip"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
}

// ListTripsInput mirrors the GET /trips query parameters.
type ListTripsInput struct {
	Status     string
	DriverID   string
	VehicleID  string
	CustomerID string
	Limit      int
}

// ChannelStats summarizes live WebSocket connections for GET /trips/ws-stats.
type ChannelStats struct {
	Drivers     int      `json:"drivers"`
	Customers   int      `json:"customers"`
	DriverIDs   []string `json:"driver_ids"`
	CustomerIDs []string `json:"customer_ids"`
}

// ----- Dispatch Service Interface -----

// DispatchService exposes the boundary of the trip lifecycle and matching.
type DispatchService interface {
	RequestTrip(ctx context.Context, in RequestTripInput) (RequestTripResult, error)
	AcceptTrip(ctx context.Context, in AcceptTripInput) (TransitionResult, error)
	MarkArrived(ctx context.Context, tripID string) (TransitionResult, error)
	StartTrip(ctx context.Context, tripID string) (TransitionResult, error)
	CompleteTrip(ctx context.Context, in CompleteTripInput) (TransitionResult, error)
	CancelTrip(ctx context.Context, tripID string) (TransitionResult, error)
	GetTrip(ctx context.Context, tripID string) (contracts.TripView, error)
	ListTrips(ctx context.Context, in ListTripsInput) ([]contracts.TripView, error)
	RunBackgroundConsumers(ctx context.Context)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Stream Service -----

// PublishLocationInput is the validated input for POST /tracking/location.
type PublishLocationInput struct {
	VehicleID      string
	Latitude       float64
	Longitude      float64
	SpeedKMH       *float64
	HeadingDegrees *float64
	AccuracyMeters *float64
	AltitudeMeters *float64
	DeviceID       string
	TripID         string
	RecordedAt     time.Time
}

// UploadFrameInput is the validated input for POST /video/frames/upload.
type UploadFrameInput struct {
	DeviceID string
	Image    string // base64-encoded JPEG
	TripID   string
	At       time.Time
}

// DeviceView is the JSON shape of a device in REST responses.
type DeviceView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	VehicleID *string    `json:"vehicle_id"`
	Status    string     `json:"status"`
	Online    bool       `json:"online"`
	LastPing  *time.Time `json:"last_ping"`
	CreatedAt time.Time  `json:"created_at"`
}

// RegisterDeviceInput is the validated input for POST /devices.
type RegisterDeviceInput struct {
	ID        string
	Name      string
	VehicleID string
}

// ----- Stream Service Interface -----

// StreamService exposes the boundary for GPS tracking and device video.
type StreamService interface {
	PublishLocation(ctx context.Context, in PublishLocationInput) error
	LiveLocations(ctx context.Context) ([]contracts.LocationUpdateMessage, error)

	UploadFrame(ctx context.Context, in UploadFrameInput) (viewers int, err error)
	LatestFrame(ctx context.Context, deviceID string) (contracts.WSFrame, error)
	StreamingDevices(ctx context.Context) ([]string, error)

	RegisterDevice(ctx context.Context, in RegisterDeviceInput) (DeviceView, error)
	GetDevice(ctx context.Context, id string) (DeviceView, error)
	ListDevices(ctx context.Context) ([]DeviceView, error)
	PingDevice(ctx context.Context, id string) (DeviceView, error)

	RunBackgroundConsumers(ctx context.Context)
}
