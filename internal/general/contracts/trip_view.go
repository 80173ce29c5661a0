package contracts

import (
	"time"

	"taxi-dispatch/internal/domain/trip"
)

// TripView is the JSON shape of a trip shared by REST responses and the
// `trip` payload embedded in WebSocket messages.
type TripView struct {
	ID                string     `json:"id"`
	CustomerID        string     `json:"customer_id"`
	DriverID          *string    `json:"driver_id"`
	VehicleID         *string    `json:"vehicle_id"`
	Pickup            GeoPoint   `json:"pickup"`
	Destination       GeoPoint   `json:"destination"`
	Status            string     `json:"status"`
	EstimatedFare     float64    `json:"estimated_fare"`
	FinalFare         *float64   `json:"final_fare"`
	DistanceKM        float64    `json:"distance_km"`
	DurationMinutes   int        `json:"duration_minutes"`
	IdentityVerified  bool       `json:"identity_verified"`
	VerificationScore *float64   `json:"verification_score"`
	CreatedAt         time.Time  `json:"created_at"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
}

// NewTripView maps a domain trip into its wire shape.
func NewTripView(t *trip.Trip) TripView {
	return TripView{
		ID:         t.ID,
		CustomerID: t.CustomerID,
		DriverID:   t.DriverID,
		VehicleID:  t.VehicleID,
		Pickup: GeoPoint{
			Lat:     t.Pickup.Latitude,
			Lng:     t.Pickup.Longitude,
			Address: t.Pickup.Address,
		},
		Destination: GeoPoint{
			Lat:     t.Destination.Latitude,
			Lng:     t.Destination.Longitude,
			Address: t.Destination.Address,
		},
		Status:            t.Status.String(),
		EstimatedFare:     t.EstimatedFare,
		FinalFare:         t.FinalFare,
		DistanceKM:        t.DistanceKM,
		DurationMinutes:   t.DurationMinutes,
		IdentityVerified:  t.IdentityVerified,
		VerificationScore: t.VerificationScore,
		CreatedAt:         t.CreatedAt,
		StartTime:         t.StartTime,
		EndTime:           t.EndTime,
	}
}
