package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/ingest"
	"github.com/machine-analytics/backend/internal/logger"
	"github.com/machine-analytics/backend/internal/storage"
	"github.com/machine-analytics/backend/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg, reg)
	require.NoError(t, err)

	store := testutil.NewSeededMockStorage()
	deps := &Dependencies{
		Store:   store,
		Engine:  newTestEngine(t),
		Imports: ingest.NewManager(store, logger.Discard(), nil),
		Logger:  logger.Discard(),
		Version: "test",
		Demo:    DemoSettings{MaxFrequency: 100, Step: 1},
		Metrics: metrics,
	}

	e := echo.New()
	SetupMiddleware(e, MiddlewareOptions{
		Logger:         logger.Discard(),
		RequestLogging: true,
		AllowOrigins:   []string{"http://localhost:3000"},
		BodyLimit:      "1M",
		Metrics:        metrics,
	})
	RegisterRoutes(e, NewHandlers(deps))
	return e, metrics
}

func serve(e *echo.Echo, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Registered(t *testing.T) {
	e, _ := newTestServer(t)

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/machines", http.StatusOK},
		{http.MethodGet, "/api/machines/kpi", http.StatusOK},
		{http.MethodGet, "/api/machines/distribution", http.StatusOK},
		{http.MethodGet, "/api/dashboard?status=Critical", http.StatusOK},
		{http.MethodGet, "/api/machine/m1", http.StatusOK},
		{http.MethodGet, "/api/machine/zzz", http.StatusNotFound},
		{http.MethodGet, "/api/bearing/b1/data", http.StatusOK},
		{http.MethodGet, "/api/bearing/b1/spectrum", http.StatusOK},
		{http.MethodGet, "/api/bearing/b1/spectrum/msgpack", http.StatusOK},
		{http.MethodGet, "/api/bearing/b1/summary", http.StatusOK},
		{http.MethodGet, "/api/fft/demo?seed=1", http.StatusOK},
		{http.MethodGet, "/api/config/statuses", http.StatusOK},
		{http.MethodGet, "/api/import/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/nothing-here", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutes_ErrorBody(t *testing.T) {
	e, _ := newTestServer(t)

	rec := serve(e, http.MethodPost, "/api/analyze", []byte(`{"readings":[{"rpm":1,"rawData":[1]}]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.Contains(t, body.Message, "no timestamp")

	rec = serve(e, http.MethodGet, "/api/does-not-exist", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "HTTP_ERROR", body.Code)
}

func TestRoutes_CORS(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRoutes_Metrics(t *testing.T) {
	e, metrics := newTestServer(t)

	serve(e, http.MethodGet, "/api/health", nil)
	serve(e, http.MethodGet, "/api/health", nil)
	serve(e, http.MethodGet, "/api/dashboard?status=Nope", nil)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/api/health", "200")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/api/dashboard", "400")))

	rec := serve(e, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), "machine_analytics_api_http_requests_total")
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", NewNotFoundError("machine", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped api error", fmt.Errorf("outer: %w", NewValidationError("q")), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"invalid input", fmt.Errorf("%w: bad step", analytics.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"not found", fmt.Errorf("machine m1: %w", storage.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			assert.True(t, strings.Contains(rec.Body.String(), `"code":"`+tt.code+`"`), rec.Body.String())
			assert.Equal(t, tt.status, statusOf(tt.err))
		})
	}
}
