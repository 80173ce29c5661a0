package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taxi-dispatch/internal/general/jwt"
	"taxi-dispatch/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type requestTripRequest struct {
	CustomerID           string  `json:"customer_id"`
	PickupLatitude       float64 `json:"pickup_latitude"`
	PickupLongitude      float64 `json:"pickup_longitude"`
	PickupAddress        string  `json:"pickup_address"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	DestinationAddress   string  `json:"destination_address"`
}

type acceptTripRequest struct {
	DriverID  string `json:"driver_id"`
	VehicleID string `json:"vehicle_id"`
}

type completeTripRequest struct {
	FinalFare float64 `json:"final_fare"`
}

// ----- Handler: POST /trips/request -----

func (handler *DispatchHTTPHandler) handleRequestTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	var req requestTripRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// fill or verify customer_id against the token subject
	sub := strings.TrimSpace(claims.Subject)
	if strings.TrimSpace(req.CustomerID) == "" {
		req.CustomerID = sub
	} else if req.CustomerID != sub {
		handler.httpError(ctx, w, http.StatusForbidden, "customer_id does not match token subject", errors.New("customer/token mismatch"))
		return
	}

	in := ports.RequestTripInput{
		CustomerID:           strings.TrimSpace(req.CustomerID),
		PickupLatitude:       req.PickupLatitude,
		PickupLongitude:      req.PickupLongitude,
		PickupAddress:        strings.TrimSpace(req.PickupAddress),
		DestinationLatitude:  req.DestinationLatitude,
		DestinationLongitude: req.DestinationLongitude,
		DestinationAddress:   strings.TrimSpace(req.DestinationAddress),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.RequestTrip(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: POST /trips/{trip_id}/accept -----

func (handler *DispatchHTTPHandler) handleAcceptTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	r.Body = http.MaxBytesReader(w, r.Body, 256<<10)
	defer r.Body.Close()

	var req acceptTripRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	sub := strings.TrimSpace(claims.Subject)
	if strings.TrimSpace(req.DriverID) == "" {
		req.DriverID = sub
	} else if req.DriverID != sub {
		handler.httpError(ctx, w, http.StatusForbidden, "driver_id does not match token subject", errors.New("driver/token mismatch"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.AcceptTrip(ctxWithTimeout, ports.AcceptTripInput{
		TripID:    tripID,
		DriverID:  strings.TrimSpace(req.DriverID),
		VehicleID: strings.TrimSpace(req.VehicleID),
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handlers: POST /trips/{trip_id}/arrive | start | cancel -----

func (handler *DispatchHTTPHandler) handleMarkArrived(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, handler.svc.MarkArrived)
}

func (handler *DispatchHTTPHandler) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, handler.svc.StartTrip)
}

func (handler *DispatchHTTPHandler) handleCancelTrip(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, handler.svc.CancelTrip)
}

// handleTransition is shared by the bodyless lifecycle endpoints.
func (handler *DispatchHTTPHandler) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, tripID string) (ports.TransitionResult, error),
) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := apply(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /trips/{trip_id}/complete -----

func (handler *DispatchHTTPHandler) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	r.Body = http.MaxBytesReader(w, r.Body, 256<<10)
	defer r.Body.Close()

	// body is optional; an absent fare settles at the estimate
	var req completeTripRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CompleteTrip(ctxWithTimeout, ports.CompleteTripInput{
		TripID:    tripID,
		FinalFare: req.FinalFare,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /trips/{trip_id} -----

func (handler *DispatchHTTPHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.GetTrip(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: GET /trips -----

func (handler *DispatchHTTPHandler) handleListTrips(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	q := r.URL.Query()
	in := ports.ListTripsInput{
		Status:     strings.TrimSpace(q.Get("status")),
		DriverID:   strings.TrimSpace(q.Get("driver_id")),
		VehicleID:  strings.TrimSpace(q.Get("vehicle_id")),
		CustomerID: strings.TrimSpace(q.Get("customer_id")),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			handler.httpError(ctx, w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		in.Limit = limit
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	views, err := handler.svc.ListTrips(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{
		"trips": views,
		"count": len(views),
	})
}
