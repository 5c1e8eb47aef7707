package analytics

import (
	"fmt"
	"math"

	"github.com/machine-analytics/backend/internal/models"
)

// Summarize computes sample count, time span and mean rotational speed.
// Readings must already be in chronological order; they are not re-sorted.
// A reading without a timestamp is rejected with ErrInvalidInput.
func Summarize(readings []models.Reading) (models.ReadingSummary, error) {
	s := models.ReadingSummary{ReadingCount: len(readings)}
	if len(readings) == 0 {
		return s, nil
	}

	var speedSum float64
	for i, r := range readings {
		if r.Timestamp == nil {
			return models.ReadingSummary{}, fmt.Errorf("%w: reading %d has no timestamp", ErrInvalidInput, i)
		}
		s.SampleCount += len(r.RawData)
		speedSum += r.RPM
	}

	start := *readings[0].Timestamp
	end := *readings[len(readings)-1].Timestamp
	mean := speedSum / float64(len(readings))
	rounded := int64(math.Round(mean))

	s.TimeRangeStart = &start
	s.TimeRangeEnd = &end
	s.MeanSpeed = &mean
	s.MeanSpeedRounded = &rounded
	return s, nil
}
