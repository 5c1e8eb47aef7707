// routes.go - Route registration helpers
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store   storage.Reader
	Engine  *analytics.Engine
	Imports ImportManager
	Logger  *slog.Logger
	Version string
	Demo    DemoSettings
	Stream  StreamSettings
	// Metrics is optional; when nil no /metrics route is registered
	Metrics *Metrics
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Fleet     FleetHandler
	Sensor    SensorHandler
	Analysis  AnalysisHandler
	Import    ImportHandler
	Dashboard DashboardStreamHandler
	Metrics   *Metrics
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Fleet:     NewFleetHandler(deps.Store, deps.Engine, deps.Logger),
		Sensor:    NewSensorHandler(deps.Store, deps.Engine),
		Analysis:  NewAnalysisHandler(deps.Engine, deps.Demo),
		Import:    NewImportHandler(deps.Imports),
		Dashboard: NewWebSocketHandler(deps.Store, deps.Engine, deps.Logger, deps.Stream),
		Metrics:   deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Fleet
	apiGroup.GET("/machines", handlers.Fleet.HandleListMachines)
	apiGroup.GET("/machines/kpi", handlers.Fleet.HandleKPI)
	apiGroup.GET("/machines/distribution", handlers.Fleet.HandleDistribution)
	apiGroup.GET("/dashboard", handlers.Fleet.HandleDashboard)
	apiGroup.GET("/machine/:id", handlers.Fleet.HandleMachineDetails)

	// Sensors
	apiGroup.GET("/bearing/:id/data", handlers.Sensor.HandleBearingData)
	apiGroup.GET("/bearing/:id/spectrum", handlers.Sensor.HandleSpectrum)
	apiGroup.GET("/bearing/:id/spectrum/msgpack", handlers.Sensor.HandleSpectrumMsgpack)
	apiGroup.GET("/bearing/:id/summary", handlers.Sensor.HandleSummary)

	// Analysis
	apiGroup.POST("/analyze", handlers.Analysis.HandleAnalyze)
	apiGroup.GET("/fft/demo", handlers.Analysis.HandleDemoSpectrum)
	apiGroup.GET("/config/statuses", handlers.Analysis.HandleStatusConfig)

	// Import
	apiGroup.POST("/import", handlers.Import.HandleImport)
	apiGroup.GET("/import/:jobId", handlers.Import.HandleImportStatus)

	// WebSocket endpoint
	apiGroup.GET("/ws/dashboard", handlers.Dashboard.HandleDashboardStream)

	if handlers.Metrics != nil {
		e.GET("/metrics", handlers.Metrics.Handler())
	}
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	Logger           *slog.Logger
	RequestLogging   bool
	AllowOrigins     []string
	BodyLimit        string
	Timeout          time.Duration
	CompressionLevel int // 0 disables gzip
	Metrics          *Metrics
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = ErrorHandler

	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				opts.Logger.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			opts.Logger.Info("request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.Timeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.Timeout,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasPrefix(path, "/api/ws/") || path == "/api/import"
			},
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	if opts.CompressionLevel > 0 {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: opts.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if len(opts.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: opts.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
		}))
	}
}
