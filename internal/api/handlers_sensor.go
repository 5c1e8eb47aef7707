// handlers_sensor.go - Bearing readings and spectrum handlers
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/models"
	"github.com/machine-analytics/backend/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of msgpack responses
const MIMEApplicationMsgpack = "application/msgpack"

// SensorHandlerImpl implements the SensorHandler interface
type SensorHandlerImpl struct {
	store  storage.Reader
	engine *analytics.Engine
}

// NewSensorHandler creates a new sensor handler
func NewSensorHandler(store storage.Reader, engine *analytics.Engine) SensorHandler {
	return &SensorHandlerImpl{
		store:  store,
		engine: engine,
	}
}

// readings loads a bearing's readings, rejecting blank IDs.
func (h *SensorHandlerImpl) readings(c echo.Context) ([]models.Reading, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return nil, NewBadRequestError("Invalid bearing ID", nil)
	}

	readings, err := h.store.ListReadings(c.Request().Context(), id)
	if err != nil {
		return nil, NewInternalError("Failed to fetch bearing data", err)
	}
	return readings, nil
}

// analyze projects a bearing's readings at the configured step or ?step=.
func (h *SensorHandlerImpl) analyze(c echo.Context) (models.SensorAnalysis, error) {
	step := h.engine.FrequencyStep()
	if raw := c.QueryParam("step"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.SensorAnalysis{}, NewBadRequestError("invalid step parameter", err)
		}
		step = parsed
	}

	readings, err := h.readings(c)
	if err != nil {
		return models.SensorAnalysis{}, err
	}

	analysis, err := h.engine.SensorDetailAt(readings, step)
	if err != nil {
		return models.SensorAnalysis{}, fromError(err, "bearing", c.Param("id"), "failed to analyze readings")
	}
	return analysis, nil
}

// HandleBearingData returns a bearing's readings ordered by timestamp
func (h *SensorHandlerImpl) HandleBearingData(c echo.Context) error {
	readings, err := h.readings(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, readings)
}

// HandleSpectrum returns the frequency projection and summary of a bearing
func (h *SensorHandlerImpl) HandleSpectrum(c echo.Context) error {
	analysis, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis)
}

// HandleSpectrumMsgpack is HandleSpectrum with a MessagePack body
func (h *SensorHandlerImpl) HandleSpectrumMsgpack(c echo.Context) error {
	analysis, err := h.analyze(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(analysis)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
}

// HandleSummary returns count, time range and mean speed of a bearing's readings
func (h *SensorHandlerImpl) HandleSummary(c echo.Context) error {
	readings, err := h.readings(c)
	if err != nil {
		return err
	}

	summary, err := analytics.Summarize(readings)
	if err != nil {
		return fromError(err, "bearing", c.Param("id"), "failed to summarize readings")
	}
	return c.JSON(http.StatusOK, summary)
}
