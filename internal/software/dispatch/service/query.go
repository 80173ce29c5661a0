package service

import (
	"context"
	"strings"

	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/general/contracts"
	"taxi-dispatch/internal/ports"
)

// GetTrip returns one trip by id.
func (service *dispatchService) GetTrip(ctx context.Context, tripID string) (contracts.TripView, error) {
	var view contracts.TripView

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := service.tripRepo.GetByID(txCtx, tripID)
		if err != nil {
			return err
		}
		view = contracts.NewTripView(t)
		return nil
	})
	if err != nil {
		return contracts.TripView{}, err
	}
	return view, nil
}

// ListTrips returns trips matching the query filters, newest first.
func (service *dispatchService) ListTrips(ctx context.Context, in ports.ListTripsInput) ([]contracts.TripView, error) {
	filter := ports.TripFilter{
		DriverID:   in.DriverID,
		VehicleID:  in.VehicleID,
		CustomerID: in.CustomerID,
		Limit:      in.Limit,
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		status, err := trip.ParseStatus(s)
		if err != nil {
			return nil, trip.Invalid("status", "unknown status "+s)
		}
		filter.Status = status
	}

	var views []contracts.TripView
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		trips, err := service.tripRepo.List(txCtx, filter)
		if err != nil {
			return err
		}
		views = make([]contracts.TripView, 0, len(trips))
		for _, t := range trips {
			views = append(views, contracts.NewTripView(t))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
