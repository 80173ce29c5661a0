package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-dispatch/internal/general/jwt"
	"taxi-dispatch/internal/general/logger"
	"taxi-dispatch/internal/general/websocket"
)

func newTestHandler(t *testing.T) *DispatchHTTPHandler {
	t.Helper()
	log := logger.New("dispatch-handler-test")
	auth := jwt.NewManager("test-secret", time.Hour)
	return NewDispatchHTTPHandler(
		nil,
		log,
		auth,
		websocket.NewGateway(log, auth),
		websocket.NewRegistry("drivers"),
		websocket.NewRegistry("customers"),
	)
}

func TestHealthEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(t).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"dispatch-service"}`, rec.Body.String())
}

func TestTripRoutesRequireAuth(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(t).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
