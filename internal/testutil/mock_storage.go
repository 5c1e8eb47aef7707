// mock_storage.go - Mock repository implementation for testing
package testutil

import (
	"context"
	"sync"

	"github.com/machine-analytics/backend/internal/models"
	"github.com/machine-analytics/backend/internal/storage"
)

// MockStorage implements storage.Repository for testing. It delegates to an
// in-memory store and can be told to fail any operation.
type MockStorage struct {
	*storage.MemoryStore

	mu    sync.RWMutex
	errs  map[string]error
	calls map[string]int
}

// Operation names accepted by FailOn and CallCount
const (
	OpListMachines   = "ListMachines"
	OpGetMachine     = "GetMachine"
	OpListBearings   = "ListBearings"
	OpListReadings   = "ListReadings"
	OpSaveMachines   = "SaveMachines"
	OpSaveBearings   = "SaveBearings"
	OpAppendReadings = "AppendReadings"
)

// NewMockStorage creates an empty mock repository
func NewMockStorage() *MockStorage {
	return &MockStorage{
		MemoryStore: storage.NewMemoryStore(),
		errs:        make(map[string]error),
		calls:       make(map[string]int),
	}
}

// NewSeededMockStorage creates a mock repository preloaded with Fleet()
func NewSeededMockStorage() *MockStorage {
	m := NewMockStorage()
	ds := Fleet()
	ctx := context.Background()
	m.MemoryStore.SaveMachines(ctx, ds.Machines)
	m.MemoryStore.SaveBearings(ctx, ds.Bearings)
	m.MemoryStore.AppendReadings(ctx, ds.Readings)
	return m
}

// FailOn makes op return err until cleared with a nil err
func (m *MockStorage) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// CallCount returns how many times op was invoked
func (m *MockStorage) CallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

func (m *MockStorage) enter(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.errs[op]
}

func (m *MockStorage) ListMachines(ctx context.Context) ([]models.Machine, error) {
	if err := m.enter(OpListMachines); err != nil {
		return nil, err
	}
	return m.MemoryStore.ListMachines(ctx)
}

func (m *MockStorage) GetMachine(ctx context.Context, id string) (models.Machine, error) {
	if err := m.enter(OpGetMachine); err != nil {
		return models.Machine{}, err
	}
	return m.MemoryStore.GetMachine(ctx, id)
}

func (m *MockStorage) ListBearings(ctx context.Context, machineID string) ([]models.Bearing, error) {
	if err := m.enter(OpListBearings); err != nil {
		return nil, err
	}
	return m.MemoryStore.ListBearings(ctx, machineID)
}

func (m *MockStorage) ListReadings(ctx context.Context, bearingID string) ([]models.Reading, error) {
	if err := m.enter(OpListReadings); err != nil {
		return nil, err
	}
	return m.MemoryStore.ListReadings(ctx, bearingID)
}

func (m *MockStorage) SaveMachines(ctx context.Context, machines []models.Machine) error {
	if err := m.enter(OpSaveMachines); err != nil {
		return err
	}
	return m.MemoryStore.SaveMachines(ctx, machines)
}

func (m *MockStorage) SaveBearings(ctx context.Context, bearings []models.Bearing) error {
	if err := m.enter(OpSaveBearings); err != nil {
		return err
	}
	return m.MemoryStore.SaveBearings(ctx, bearings)
}

func (m *MockStorage) AppendReadings(ctx context.Context, readings []models.Reading) (int, error) {
	if err := m.enter(OpAppendReadings); err != nil {
		return 0, err
	}
	return m.MemoryStore.AppendReadings(ctx, readings)
}

var _ storage.Repository = (*MockStorage)(nil)
