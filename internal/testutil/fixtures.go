package testutil

import (
	"time"

	"github.com/machine-analytics/backend/internal/models"
)

// FleetData is a small, fixed fleet used across package tests.
type FleetData struct {
	Machines []models.Machine
	Bearings []models.Bearing
	Readings []models.Reading
}

// FleetUpdated is the DataUpdatedTime of every fixture machine.
var FleetUpdated = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

// Fleet returns five machines (2 Normal, 1 Alert, 1 Critical, 1 unrecognized
// status), bearings for the first machine and three readings on bearing b1.
//
//	m1 Compressor North  Normal    bearings b1 (DE), b2 (no location type)
//	m2 Cooling Pump      Alert
//	m3 Conveyor Drive    Critical
//	m4 Feed Pump         Normal
//	m5 Mixer             Offline   (Unknown)
func Fleet() FleetData {
	updated := FleetUpdated
	return FleetData{
		Machines: []models.Machine{
			{ID: "m1", Name: "Compressor North", StatusName: "Normal", MachineType: "compressor", DataUpdatedTime: &updated},
			{ID: "m2", Name: "Cooling Pump", StatusName: "Alert", MachineType: "pump", DataUpdatedTime: &updated},
			{ID: "m3", Name: "Conveyor Drive", StatusName: "Critical", MachineType: "conveyor", DataUpdatedTime: &updated},
			{ID: "m4", Name: "Feed Pump", StatusName: "Normal", MachineType: "pump", DataUpdatedTime: &updated},
			{ID: "m5", Name: "Mixer", StatusName: "Offline", MachineType: "mixer", DataUpdatedTime: &updated},
		},
		Bearings: []models.Bearing{
			{ID: "b1", MachineID: "m1", BearingLocationType: "DE", StatusName: "Normal"},
			{ID: "b2", MachineID: "m1", StatusName: "Alert"},
		},
		Readings: []models.Reading{
			{ID: "r2", BearingID: "b1", Timestamp: models.Int64Ptr(1714550460), RPM: 1500, RawData: []float64{0.4, -0.5}},
			{ID: "r1", BearingID: "b1", Timestamp: models.Int64Ptr(1714550400), RPM: 1480, RawData: []float64{0.1, -0.2, 0.3}},
			{ID: "r3", BearingID: "b1", Timestamp: models.Int64Ptr(1714550520), RPM: 1491, RawData: []float64{}},
		},
	}
}
