package models

// Reading is one timestamped capture of rotational speed and raw vibration
// samples for a single bearing. Timestamp is seconds since epoch; nil means the
// source did not provide one.
type Reading struct {
	ID        string    `json:"id,omitempty" msgpack:"id,omitempty"`
	BearingID string    `json:"bearing_id,omitempty" msgpack:"bearing_id,omitempty"`
	Timestamp *int64    `json:"ts" msgpack:"ts"`
	RPM       float64   `json:"rpm" msgpack:"rpm"`
	RawData   []float64 `json:"rawData" msgpack:"rawData"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
