// Package models contains domain types for the Machine Analytics backend.
package models

import "time"

// Machine is a monitored physical asset with an overall health status.
type Machine struct {
	ID              string     `json:"_id" msgpack:"_id"`
	Name            string     `json:"name" msgpack:"name"`
	StatusName      string     `json:"statusName" msgpack:"statusName"`
	MachineType     string     `json:"machineType" msgpack:"machineType"`
	DataUpdatedTime *time.Time `json:"dataUpdatedTime,omitempty" msgpack:"dataUpdatedTime,omitempty"`
}

// Bearing is a monitoring point attached to a machine.
// MachineID is a back-reference only.
type Bearing struct {
	ID                  string `json:"_id" msgpack:"_id"`
	MachineID           string `json:"machineid" msgpack:"machineid"`
	BearingLocationType string `json:"bearingLocationType" msgpack:"bearingLocationType"`
	StatusName          string `json:"statusname" msgpack:"statusname"`
	Name                string `json:"name,omitempty" msgpack:"name,omitempty"`
	Location            string `json:"location,omitempty" msgpack:"location,omitempty"`
}

// WithDisplayDefaults returns a copy with a human-readable name and location
// filled in from the location type when the source left them blank.
func (b Bearing) WithDisplayDefaults() Bearing {
	if b.Name == "" {
		locType := b.BearingLocationType
		if locType == "" {
			locType = "Unknown"
		}
		b.Name = "Sensor " + locType
	}
	if b.Location == "" {
		b.Location = b.BearingLocationType
		if b.Location == "" {
			b.Location = "Location Unknown"
		}
	}
	return b
}

// MachineDetails is a machine together with its bearings.
type MachineDetails struct {
	Machine
	Bearings []Bearing `json:"bearings"`
}
