package analytics

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/machine-analytics/backend/internal/models"
)

// MaxSyntheticAmplitude bounds every point SyntheticSpectrum produces.
const MaxSyntheticAmplitude = 1.5

// MaxSyntheticPoints bounds the length of a SyntheticSpectrum result.
const MaxSyntheticPoints = 100000

// spikeProbability is the chance a synthetic point carries an extra spike.
const spikeProbability = 0.05

func validateStep(step float64) error {
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return fmt.Errorf("%w: frequency step must be a positive number, got %v", ErrInvalidInput, step)
	}
	return nil
}

// Project maps sample i to the point (i*step, |samples[i]|).
// NaN samples project to zero amplitude.
func Project(samples []float64, step float64) ([]models.FrequencyPoint, error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}
	return appendProjection(make([]models.FrequencyPoint, 0, len(samples)), samples, step), nil
}

// ProjectReadings projects every reading's samples in reading order. Each
// reading gets its own frequency axis starting at 0, so captures overlay
// rather than join into one longer spectrum.
func ProjectReadings(readings []models.Reading, step float64) ([]models.FrequencyPoint, error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}
	n := 0
	for _, r := range readings {
		n += len(r.RawData)
	}
	out := make([]models.FrequencyPoint, 0, n)
	for _, r := range readings {
		out = appendProjection(out, r.RawData, step)
	}
	return out, nil
}

func appendProjection(dst []models.FrequencyPoint, samples []float64, step float64) []models.FrequencyPoint {
	for i, s := range samples {
		amp := math.Abs(s)
		if math.IsNaN(amp) {
			amp = 0
		}
		dst = append(dst, models.FrequencyPoint{
			Frequency: float64(i) * step,
			Amplitude: amp,
		})
	}
	return dst
}

// SyntheticSpectrum generates a demonstration spectrum from 0 to maxFrequency
// inclusive. It is a fixture for pages with no captured data and must not be
// used in place of Project. The output is deterministic when seed is non-nil.
func SyntheticSpectrum(maxFrequency, step float64, seed *int64) ([]models.FrequencyPoint, error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}
	if math.IsNaN(maxFrequency) || math.IsInf(maxFrequency, 0) || maxFrequency < 0 {
		return nil, fmt.Errorf("%w: max frequency must be a non-negative number, got %v", ErrInvalidInput, maxFrequency)
	}
	// The quotient can overflow to +Inf for finite inputs.
	n := math.Floor(maxFrequency / step)
	if math.IsInf(n, 0) || n+1 > MaxSyntheticPoints {
		return nil, fmt.Errorf("%w: spectrum would exceed %d points", ErrInvalidInput, MaxSyntheticPoints)
	}

	src := time.Now().UnixNano()
	if seed != nil {
		src = *seed
	}
	rng := rand.New(rand.NewSource(src))

	count := int(n) + 1
	points := make([]models.FrequencyPoint, 0, count)
	for i := 0; i < count; i++ {
		f := float64(i) * step
		amp := math.Abs(bandEnvelope(f, rng))
		if rng.Float64() < spikeProbability {
			amp += rng.Float64() * 0.5
		}
		points = append(points, models.FrequencyPoint{
			Frequency: f,
			Amplitude: math.Min(amp, MaxSyntheticAmplitude),
		})
	}
	return points, nil
}

// bandEnvelope shapes the synthetic amplitude by frequency band.
func bandEnvelope(f float64, rng *rand.Rand) float64 {
	switch {
	case f < 100:
		return rng.Float64()*0.3 + 0.1
	case f < 300:
		return math.Sin(f*0.1)*0.8 + math.Sin(f*0.05)*0.6 + rng.Float64()*0.2
	case f < 600:
		return math.Sin(f*0.08)*0.4 + math.Sin(f*0.12)*0.3 + rng.Float64()*0.15
	default:
		return math.Sin(f*0.15)*0.2 + rng.Float64()*0.1
	}
}
