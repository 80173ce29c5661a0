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

func newTestHandler(t *testing.T) *StreamHTTPHandler {
	t.Helper()
	log := logger.New("stream-handler-test")
	auth := jwt.NewManager("test-secret", time.Hour)
	return NewStreamHTTPHandler(
		nil,
		log,
		auth,
		websocket.NewGateway(log, auth),
		websocket.NewRegistry("tracking"),
		websocket.NewVideoHub(time.Minute),
	)
}

func TestHealthEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(t).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"stream-service"}`, rec.Body.String())
}

func TestDeviceRoutesRequireAuth(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(t).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
