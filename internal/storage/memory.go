package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/machine-analytics/backend/internal/models"
)

// MemoryStore implements Repository in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	machines map[string]models.Machine
	bearings map[string]models.Bearing
	readings map[string][]models.Reading // bearingID -> readings
	ids      map[string]struct{}         // reading IDs already stored
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		machines: make(map[string]models.Machine),
		bearings: make(map[string]models.Bearing),
		readings: make(map[string][]models.Reading),
		ids:      make(map[string]struct{}),
	}
}

// ListMachines returns all machines ordered by name.
func (s *MemoryStore) ListMachines(ctx context.Context) ([]models.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name == list[j].Name {
			return list[i].ID < list[j].ID
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

// GetMachine retrieves a machine by ID.
func (s *MemoryStore) GetMachine(ctx context.Context, id string) (models.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.machines[id]
	if !ok {
		return models.Machine{}, fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}
	return m, nil
}

// ListBearings returns the bearings of a machine ordered by ID.
func (s *MemoryStore) ListBearings(ctx context.Context, machineID string) ([]models.Bearing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Bearing, 0)
	for _, b := range s.bearings {
		if b.MachineID == machineID {
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ListReadings returns copies of a bearing's readings ordered by timestamp.
func (s *MemoryStore) ListReadings(ctx context.Context, bearingID string) ([]models.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.readings[bearingID]
	list := make([]models.Reading, len(src))
	for i, r := range src {
		r.RawData = append([]float64(nil), r.RawData...)
		list[i] = r
	}
	return list, nil
}

// SaveMachines inserts or replaces machines.
func (s *MemoryStore) SaveMachines(ctx context.Context, machines []models.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range machines {
		s.machines[m.ID] = m
	}
	return nil
}

// SaveBearings inserts or replaces bearings.
func (s *MemoryStore) SaveBearings(ctx context.Context, bearings []models.Bearing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bearings {
		s.bearings[b.ID] = b
	}
	return nil
}

// AppendReadings stores readings, keeping each bearing's list sorted by timestamp.
// Readings whose ID is already stored are skipped; the count covers new rows only.
func (s *MemoryStore) AppendReadings(ctx context.Context, readings []models.Reading) (int, error) {
	for i, r := range readings {
		if r.Timestamp == nil {
			return 0, fmt.Errorf("reading %d: %w", i, ErrMissingTimestamp)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	stored := 0
	for _, r := range readings {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if _, dup := s.ids[r.ID]; dup {
			continue
		}
		s.ids[r.ID] = struct{}{}
		stored++
		r.RawData = append([]float64(nil), r.RawData...)
		s.readings[r.BearingID] = append(s.readings[r.BearingID], r)
		touched[r.BearingID] = struct{}{}
	}
	for id := range touched {
		list := s.readings[id]
		sort.SliceStable(list, func(i, j int) bool { return *list[i].Timestamp < *list[j].Timestamp })
	}
	return stored, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Repository = (*MemoryStore)(nil)
