package analytics

import (
	"fmt"

	"github.com/machine-analytics/backend/internal/models"
)

// Options configures an Engine.
type Options struct {
	Taxonomy      Taxonomy
	FrequencyStep float64
}

// Engine bundles the classifier and projection settings a deployment runs with.
type Engine struct {
	classifier *Classifier
	step       float64
}

// NewEngine validates opts and builds an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Taxonomy.Validate(); err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}
	if err := validateStep(opts.FrequencyStep); err != nil {
		return nil, err
	}
	return &Engine{
		classifier: NewClassifier(opts.Taxonomy),
		step:       opts.FrequencyStep,
	}, nil
}

// Classifier returns the engine's status classifier.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// FrequencyStep returns the configured Hz per sample index.
func (e *Engine) FrequencyStep() float64 {
	return e.step
}

// Dashboard filters machines and computes KPI and distribution over the full list.
func (e *Engine) Dashboard(machines []models.Machine, status StatusFilter, query string) models.Dashboard {
	return models.Dashboard{
		Machines:     e.classifier.Filter(machines, status, query),
		KPI:          e.classifier.Aggregate(machines),
		Distribution: e.classifier.Distribution(machines),
	}
}

// SensorDetail projects and summarizes readings at the configured step.
func (e *Engine) SensorDetail(readings []models.Reading) (models.SensorAnalysis, error) {
	return e.SensorDetailAt(readings, e.step)
}

// SensorDetailAt is SensorDetail with an explicit frequency step.
func (e *Engine) SensorDetailAt(readings []models.Reading, step float64) (models.SensorAnalysis, error) {
	spectrum, err := ProjectReadings(readings, step)
	if err != nil {
		return models.SensorAnalysis{}, err
	}
	summary, err := Summarize(readings)
	if err != nil {
		return models.SensorAnalysis{}, err
	}
	return models.SensorAnalysis{
		FrequencyStep: step,
		Spectrum:      spectrum,
		Summary:       summary,
	}, nil
}
