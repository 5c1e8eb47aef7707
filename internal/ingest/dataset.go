// Package ingest imports machine, bearing and reading datasets into storage.
package ingest

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/machine-analytics/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Dataset is the document accepted by an import: three collections keyed
// like the source database tables.
type Dataset struct {
	Machines []models.Machine `json:"machines" yaml:"machines"`
	Bearings []models.Bearing `json:"bearings" yaml:"bearings"`
	Readings []RawReading     `json:"readings" yaml:"readings"`
}

// RawReading is a reading as it arrives from the source, before cleaning.
// Values are untyped because upstream collectors are not trusted to send numbers.
type RawReading struct {
	ID        string `json:"id" yaml:"id"`
	BearingID string `json:"bearing_id" yaml:"bearing_id"`
	TS        any    `json:"ts" yaml:"ts"`
	RPM       any    `json:"rpm" yaml:"rpm"`
	RawData   any    `json:"rawData" yaml:"rawData"`
}

// yamlMachine and yamlBearing mirror the model json tags for YAML documents.
type yamlMachine struct {
	ID          string `yaml:"_id"`
	Name        string `yaml:"name"`
	StatusName  string `yaml:"statusName"`
	MachineType string `yaml:"machineType"`
}

type yamlBearing struct {
	ID                  string `yaml:"_id"`
	MachineID           string `yaml:"machineid"`
	BearingLocationType string `yaml:"bearingLocationType"`
	StatusName          string `yaml:"statusname"`
	Name                string `yaml:"name"`
	Location            string `yaml:"location"`
}

type yamlDataset struct {
	Machines []yamlMachine `yaml:"machines"`
	Bearings []yamlBearing `yaml:"bearings"`
	Readings []RawReading  `yaml:"readings"`
}

// isGzip reports whether data starts with the gzip magic bytes.
func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// ErrPayloadTooLarge is returned when a compressed payload inflates past the
// configured limit.
var ErrPayloadTooLarge = errors.New("decompressed payload exceeds limit")

// decompress inflates a gzip payload of at most limit bytes.
func decompress(data []byte, limit int64) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out, err := io.ReadAll(io.LimitReader(bufio.NewReader(reader), limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", ErrPayloadTooLarge, limit)
	}
	return out, nil
}

// DecodeDataset parses a JSON or YAML dataset. JSON is detected by a leading
// '{' after whitespace; anything else is parsed as YAML.
func DecodeDataset(data []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	if trimmed[0] == '{' {
		var ds Dataset
		if err := json.Unmarshal(trimmed, &ds); err != nil {
			return nil, fmt.Errorf("invalid JSON dataset: %w", err)
		}
		return &ds, nil
	}

	var doc yamlDataset
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML dataset: %w", err)
	}
	ds := &Dataset{Readings: doc.Readings}
	for _, m := range doc.Machines {
		ds.Machines = append(ds.Machines, models.Machine{
			ID:          m.ID,
			Name:        m.Name,
			StatusName:  m.StatusName,
			MachineType: m.MachineType,
		})
	}
	for _, b := range doc.Bearings {
		ds.Bearings = append(ds.Bearings, models.Bearing(b))
	}
	return ds, nil
}

// CleanReadings converts raw readings into models. Readings without a usable
// timestamp are dropped and counted; non-numeric samples and speeds become 0.
func CleanReadings(raw []RawReading) ([]models.Reading, int) {
	cleaned := make([]models.Reading, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		ts, ok := toInt64(r.TS)
		if !ok {
			dropped++
			continue
		}
		rpm, _ := toFloat(r.RPM)

		samples := []float64{}
		if list, ok := r.RawData.([]any); ok {
			samples = make([]float64, len(list))
			for i, v := range list {
				samples[i], _ = toFloat(v)
			}
		}

		cleaned = append(cleaned, models.Reading{
			ID:        r.ID,
			BearingID: r.BearingID,
			Timestamp: models.Int64Ptr(ts),
			RPM:       rpm,
			RawData:   samples,
		})
	}
	return cleaned, dropped
}

// toFloat accepts JSON and YAML numeric types. Strings are not numbers here.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt64 accepts integral timestamps, including numeric strings. Floats
// outside the int64 range are rejected.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	f, ok := toFloat(v)
	if !ok || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
