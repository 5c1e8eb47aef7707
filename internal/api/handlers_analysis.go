// handlers_analysis.go - Ad-hoc analysis, demo spectrum and status config handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/machine-analytics/backend/internal/analytics"
	"github.com/machine-analytics/backend/internal/models"
)

// DemoSettings are the defaults of the demo spectrum endpoint.
type DemoSettings struct {
	MaxFrequency float64
	Step         float64
}

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	engine *analytics.Engine
	demo   DemoSettings
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(engine *analytics.Engine, demo DemoSettings) AnalysisHandler {
	return &AnalysisHandlerImpl{
		engine: engine,
		demo:   demo,
	}
}

type analyzeRequest struct {
	Readings []models.Reading `json:"readings"`
	Step     *float64         `json:"step,omitempty"`
}

func (r *analyzeRequest) validate() error {
	if r.Readings == nil {
		return NewValidationError("readings")
	}
	return nil
}

// HandleAnalyze projects and summarizes readings supplied in the request body
func (h *AnalysisHandlerImpl) HandleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	step := h.engine.FrequencyStep()
	if req.Step != nil {
		step = *req.Step
	}

	analysis, err := h.engine.SensorDetailAt(req.Readings, step)
	if err != nil {
		return fromError(err, "", "", "failed to analyze readings")
	}
	return c.JSON(http.StatusOK, analysis)
}

type demoSpectrumResponse struct {
	MaxFrequency  float64                 `json:"maxFrequency"`
	FrequencyStep float64                 `json:"frequencyStep"`
	Seed          *int64                  `json:"seed,omitempty"`
	Spectrum      []models.FrequencyPoint `json:"spectrum"`
}

// HandleDemoSpectrum returns a synthetic spectrum for pages without captured data.
// Query params: max (Hz), step (Hz), seed (optional, makes output reproducible)
func (h *AnalysisHandlerImpl) HandleDemoSpectrum(c echo.Context) error {
	maxFreq, err := floatParam(c, "max", h.demo.MaxFrequency)
	if err != nil {
		return err
	}
	step, err := floatParam(c, "step", h.demo.Step)
	if err != nil {
		return err
	}

	var seed *int64
	if raw := c.QueryParam("seed"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return NewBadRequestError("invalid seed parameter", err)
		}
		seed = &parsed
	}

	spectrum, err := analytics.SyntheticSpectrum(maxFreq, step, seed)
	if err != nil {
		return fromError(err, "", "", "failed to generate spectrum")
	}

	return c.JSON(http.StatusOK, demoSpectrumResponse{
		MaxFrequency:  maxFreq,
		FrequencyStep: step,
		Seed:          seed,
		Spectrum:      spectrum,
	})
}

type categoryColor struct {
	Name  models.StatusCategory `json:"name"`
	Color string                `json:"color"`
}

type statusConfigResponse struct {
	analytics.Taxonomy
	Categories    []categoryColor `json:"categories"`
	FrequencyStep float64         `json:"frequencyStep"`
}

// HandleStatusConfig returns the active status taxonomy and category colors
func (h *AnalysisHandlerImpl) HandleStatusConfig(c echo.Context) error {
	classifier := h.engine.Classifier()

	resp := statusConfigResponse{
		Taxonomy:      classifier.Taxonomy(),
		Categories:    make([]categoryColor, 0, len(models.StatusCategories)),
		FrequencyStep: h.engine.FrequencyStep(),
	}
	for _, cat := range models.StatusCategories {
		resp.Categories = append(resp.Categories, categoryColor{Name: cat, Color: classifier.ColorFor(cat)})
	}
	return c.JSON(http.StatusOK, resp)
}

// floatParam parses an optional float query parameter.
func floatParam(c echo.Context, name string, fallback float64) (float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewBadRequestError(fmt.Sprintf("invalid %s parameter", name), err)
	}
	return v, nil
}
