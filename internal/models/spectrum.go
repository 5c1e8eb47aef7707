package models

// FrequencyPoint is one point of a spectrum. Both fields are non-negative.
type FrequencyPoint struct {
	Frequency float64 `json:"frequency" msgpack:"frequency"`
	Amplitude float64 `json:"amplitude" msgpack:"amplitude"`
}

// ReadingSummary holds derived statistics over a bearing's readings.
// Nil pointers mean "not available" and serialize as null.
type ReadingSummary struct {
	ReadingCount     int      `json:"readingCount" msgpack:"readingCount"`
	SampleCount      int      `json:"sampleCount" msgpack:"sampleCount"`
	TimeRangeStart   *int64   `json:"timeRangeStart" msgpack:"timeRangeStart"`
	TimeRangeEnd     *int64   `json:"timeRangeEnd" msgpack:"timeRangeEnd"`
	MeanSpeed        *float64 `json:"meanSpeed" msgpack:"meanSpeed"`
	MeanSpeedRounded *int64   `json:"meanSpeedRounded" msgpack:"meanSpeedRounded"`
}

// SensorAnalysis is the derived state for the sensor detail page.
type SensorAnalysis struct {
	FrequencyStep float64          `json:"frequencyStep" msgpack:"frequencyStep"`
	Spectrum      []FrequencyPoint `json:"spectrum" msgpack:"spectrum"`
	Summary       ReadingSummary   `json:"summary" msgpack:"summary"`
}
