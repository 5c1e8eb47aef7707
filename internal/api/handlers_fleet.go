// handlers_fleet.go - Machine list, dashboard and machine detail handlers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/models"
	"github.com/machine-analytics/backend/internal/storage"
)

// FleetHandlerImpl implements the FleetHandler interface
type FleetHandlerImpl struct {
	store  storage.Reader
	engine *analytics.Engine
	log    *slog.Logger
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(store storage.Reader, engine *analytics.Engine, log *slog.Logger) FleetHandler {
	return &FleetHandlerImpl{
		store:  store,
		engine: engine,
		log:    log,
	}
}

// HandleListMachines returns every machine ordered by name
func (h *FleetHandlerImpl) HandleListMachines(c echo.Context) error {
	machines, err := h.store.ListMachines(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to fetch machines", err)
	}
	return c.JSON(http.StatusOK, machines)
}

// HandleDashboard returns the filtered machine list with fleet KPIs.
// Query params: status (All, Normal, Alert, Critical, Unknown), q (name substring)
func (h *FleetHandlerImpl) HandleDashboard(c echo.Context) error {
	status, err := analytics.ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return NewInvalidInputError(err)
	}

	machines, err := h.store.ListMachines(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to fetch machines", err)
	}

	return c.JSON(http.StatusOK, h.engine.Dashboard(machines, status, c.QueryParam("q")))
}

// HandleKPI returns the per-category machine counts
func (h *FleetHandlerImpl) HandleKPI(c echo.Context) error {
	machines, err := h.store.ListMachines(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to fetch machines", err)
	}
	return c.JSON(http.StatusOK, h.engine.Classifier().Aggregate(machines))
}

// HandleDistribution returns chart-ready status counts
func (h *FleetHandlerImpl) HandleDistribution(c echo.Context) error {
	machines, err := h.store.ListMachines(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to fetch machines", err)
	}
	return c.JSON(http.StatusOK, h.engine.Classifier().Distribution(machines))
}

// HandleMachineDetails returns one machine with its bearings
func (h *FleetHandlerImpl) HandleMachineDetails(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return NewBadRequestError("Invalid machine ID", nil)
	}

	ctx := c.Request().Context()
	machine, err := h.store.GetMachine(ctx, id)
	if err != nil {
		return fromError(err, "machine", id, "failed to fetch machine")
	}

	bearings, err := h.store.ListBearings(ctx, id)
	if err != nil {
		return NewInternalError("failed to fetch bearings", err)
	}

	details := models.MachineDetails{
		Machine:  machine,
		Bearings: make([]models.Bearing, len(bearings)),
	}
	for i, b := range bearings {
		details.Bearings[i] = b.WithDisplayDefaults()
	}

	h.log.Debug("machine details", "machine", id, "bearings", len(bearings))
	return c.JSON(http.StatusOK, details)
}
