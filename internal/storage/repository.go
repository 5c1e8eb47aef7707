// Package storage provides the data-access layer for machines, bearings and readings.
package storage

import (
	"context"
	"errors"

	"github.com/machine-analytics/backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrMissingTimestamp is returned when a reading without a timestamp is stored.
var ErrMissingTimestamp = errors.New("reading has no timestamp")

// Reader is the read side used by the API.
type Reader interface {
	// ListMachines returns all machines ordered by name.
	ListMachines(ctx context.Context) ([]models.Machine, error)
	GetMachine(ctx context.Context, id string) (models.Machine, error)
	ListBearings(ctx context.Context, machineID string) ([]models.Bearing, error)
	// ListReadings returns a bearing's readings ordered by timestamp.
	ListReadings(ctx context.Context, bearingID string) ([]models.Reading, error)
}

// Writer is the write side used by ingest.
type Writer interface {
	SaveMachines(ctx context.Context, machines []models.Machine) error
	SaveBearings(ctx context.Context, bearings []models.Bearing) error
	// AppendReadings stores readings and returns how many were written.
	// A reading whose ID is already stored is skipped, so re-imports are idempotent.
	AppendReadings(ctx context.Context, readings []models.Reading) (int, error)
}

// Repository combines both sides.
type Repository interface {
	Reader
	Writer
	Close() error
}
