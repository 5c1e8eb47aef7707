// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/ingest"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// FleetHandler serves the machine list, dashboard and machine details
type FleetHandler interface {
	HandleListMachines(c echo.Context) error
	HandleDashboard(c echo.Context) error
	HandleKPI(c echo.Context) error
	HandleDistribution(c echo.Context) error
	HandleMachineDetails(c echo.Context) error
}

// SensorHandler serves per-bearing readings and their analysis
type SensorHandler interface {
	HandleBearingData(c echo.Context) error
	HandleSpectrum(c echo.Context) error
	HandleSpectrumMsgpack(c echo.Context) error
	HandleSummary(c echo.Context) error
}

// AnalysisHandler runs the engine on caller-supplied data
type AnalysisHandler interface {
	HandleAnalyze(c echo.Context) error
	HandleDemoSpectrum(c echo.Context) error
	HandleStatusConfig(c echo.Context) error
}

// ImportHandler handles dataset imports
type ImportHandler interface {
	HandleImport(c echo.Context) error
	HandleImportStatus(c echo.Context) error
}

// DashboardStreamHandler serves the live dashboard over WebSocket
type DashboardStreamHandler interface {
	HandleDashboardStream(c echo.Context) error
}

// ImportManager defines the interface for import job management
// This allows mocking in tests
type ImportManager interface {
	StartJob(source string, data []byte) ingest.Job
	GetJob(id string) (ingest.Job, bool)
}
