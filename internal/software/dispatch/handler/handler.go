package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"taxi-dispatch/internal/domain/trip"
	"taxi-dispatch/internal/domain/user"
	"taxi-dispatch/internal/general/jwt"
	"taxi-dispatch/internal/general/logger"
	"taxi-dispatch/internal/general/websocket"
	"taxi-dispatch/internal/ports"
)

// DispatchHTTPHandler adapts HTTP and WebSocket requests to the DispatchService.
type DispatchHTTPHandler struct {
	svc       ports.DispatchService
	logger    *logger.Logger
	auth      *jwt.Manager
	gateway   *websocket.Gateway
	drivers   *websocket.Registry
	customers *websocket.Registry
}

// NewDispatchHTTPHandler wires an HTTP handler around the DispatchService.
func NewDispatchHTTPHandler(
	svc ports.DispatchService,
	logger *logger.Logger,
	auth *jwt.Manager,
	gateway *websocket.Gateway,
	drivers *websocket.Registry,
	customers *websocket.Registry,
) *DispatchHTTPHandler {
	return &DispatchHTTPHandler{
		svc:       svc,
		logger:    logger,
		auth:      auth,
		gateway:   gateway,
		drivers:   drivers,
		customers: customers,
	}
}

// RegisterRoutes mounts trip endpoints on the provided mux.
func (handler *DispatchHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /trips/request",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleRequestTrip),
	)
	mux.HandleFunc("POST /trips/{trip_id}/accept",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleAcceptTrip),
	)
	mux.HandleFunc("POST /trips/{trip_id}/arrive",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleMarkArrived),
	)
	mux.HandleFunc("POST /trips/{trip_id}/start",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleStartTrip),
	)
	mux.HandleFunc("POST /trips/{trip_id}/complete",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleCompleteTrip),
	)
	mux.HandleFunc("POST /trips/{trip_id}/cancel",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleAdmin)(handler.handleCancelTrip),
	)
	mux.HandleFunc("GET /trips/{trip_id}",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)(handler.handleGetTrip),
	)
	mux.HandleFunc("GET /trips",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver, user.RoleAdmin)(handler.handleListTrips),
	)
	mux.HandleFunc("GET /trips/ws-stats", handler.handleWSStats)

	// WebSocket channels authenticate via the first frame, not middleware
	mux.HandleFunc("GET /ws/trips/driver/{driver_id}", handler.handleDriverChannel)
	mux.HandleFunc("GET /ws/trips/customer/{customer_id}", handler.handleCustomerChannel)

	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

// ----- general helpers -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *DispatchHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	response := TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, response)
}

func (handler *DispatchHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "dispatch-service",
	})
}

func (handler *DispatchHTTPHandler) handleWSStats(w http.ResponseWriter, r *http.Request) {
	stats := ports.ChannelStats{
		Drivers:     handler.drivers.Count(),
		Customers:   handler.customers.Count(),
		DriverIDs:   handler.drivers.Keys(),
		CustomerIDs: handler.customers.Keys(),
	}
	handler.jsonResponse(r.Context(), w, http.StatusOK, stats)
}

// jsonResponse encodes to a buffer first so the status stays controllable on failure.
func (handler *DispatchHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *DispatchHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps lifecycle errors onto HTTP statuses.
func (handler *DispatchHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *trip.ValidationError
	switch {
	case errors.As(err, &vErr):
		handler.httpError(ctx, w, http.StatusBadRequest, vErr.Error(), err)
	case errors.Is(err, trip.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "trip not found", err)
	case errors.Is(err, trip.ErrAlreadyAccepted):
		handler.httpError(ctx, w, http.StatusConflict, "trip already accepted by another driver", err)
	case errors.Is(err, trip.ErrInvalidTransition):
		handler.httpError(ctx, w, http.StatusConflict, "transition not allowed from current trip status", err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *DispatchHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
