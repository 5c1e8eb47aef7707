package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/machine-analytics/backend/internal/storage"
)

// Status represents the import job status.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusDecompressing Status = "decompressing"
	StatusDecoding      Status = "decoding"
	StatusStoring       Status = "storing"
	StatusComplete      Status = "complete"
	StatusError         Status = "error"
)

// Job represents an async dataset import.
type Job struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Size            int        `json:"size"`
	Status          Status     `json:"status"`
	Progress        float64    `json:"progress"`
	Stage           string     `json:"stage"`
	Machines        int        `json:"machines"`
	Bearings        int        `json:"bearings"`
	ReadingsStored  int        `json:"readingsStored"`
	ReadingsDropped int        `json:"readingsDropped"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusError
}

// Manager runs import jobs against a storage writer.
type Manager struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	store   storage.Writer
	log     *slog.Logger
	metrics *Metrics
	timeout time.Duration
	// maxInflated caps the decompressed size of gzip payloads
	maxInflated int64
	wg          sync.WaitGroup
}

// DefaultMaxInflatedBytes is the decompressed payload limit used until
// SetMaxInflatedBytes is called.
const DefaultMaxInflatedBytes int64 = 1 << 30

// NewManager creates an import manager. metrics may be nil.
func NewManager(store storage.Writer, log *slog.Logger, metrics *Metrics) *Manager {
	return &Manager{
		jobs:    make(map[string]*Job),
		store:   store,
		log:     log.With("component", "ingest"),
		metrics: metrics,
		timeout: 5 * time.Minute,

		maxInflated: DefaultMaxInflatedBytes,
	}
}

// SetMaxInflatedBytes sets the decompressed payload limit. Non-positive values
// are ignored. Call before starting jobs.
func (m *Manager) SetMaxInflatedBytes(n int64) {
	if n > 0 {
		m.maxInflated = n
	}
}

// StartJob begins async processing of a dataset payload and returns a snapshot
// of the new job.
func (m *Manager) StartJob(source string, data []byte) Job {
	job := &Job{
		ID:        uuid.New().String(),
		Source:    source,
		Size:      len(data),
		Status:    StatusProcessing,
		Stage:     "queued",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.processJob(job, data)
	}()

	return snapshot
}

// Import runs a job synchronously. Used for the startup seed file.
func (m *Manager) Import(source string, data []byte) Job {
	job := &Job{
		ID:        uuid.New().String(),
		Source:    source,
		Size:      len(data),
		Status:    StatusProcessing,
		Stage:     "queued",
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.processJob(job, data)
	j, _ := m.GetJob(job.ID)
	return j
}

// GetJob returns a snapshot of a job by ID.
func (m *Manager) GetJob(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Wait blocks until all started jobs have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) processJob(job *Job, data []byte) {
	log := m.log.With("job", job.ID[:8], "source", job.Source)
	log.Info("import started", "bytes", len(data))

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	// Stage 1: decompress if needed
	if isGzip(data) {
		m.updateJobStatus(job, StatusDecompressing, "decompressing payload")
		inflated, err := decompress(data, m.maxInflated)
		if err != nil {
			m.markJobError(job, fmt.Sprintf("failed to decompress payload: %v", err))
			return
		}
		log.Debug("payload decompressed", "compressed", len(data), "bytes", len(inflated))
		data = inflated
	}

	// Stage 2: decode and clean
	m.updateJobStatus(job, StatusDecoding, "decoding dataset")
	ds, err := DecodeDataset(data)
	if err != nil {
		m.markJobError(job, err.Error())
		return
	}
	readings, dropped := CleanReadings(ds.Readings)
	if dropped > 0 {
		log.Warn("readings without timestamp dropped", "count", dropped)
	}

	// Stage 3: write
	m.updateJobStatus(job, StatusStoring, "storing machines")
	if err := m.store.SaveMachines(ctx, ds.Machines); err != nil {
		m.markJobError(job, fmt.Sprintf("failed to store machines: %v", err))
		return
	}
	m.updateJobStatus(job, StatusStoring, "storing bearings")
	if err := m.store.SaveBearings(ctx, ds.Bearings); err != nil {
		m.markJobError(job, fmt.Sprintf("failed to store bearings: %v", err))
		return
	}
	m.updateJobStatus(job, StatusStoring, "storing readings")
	stored, err := m.store.AppendReadings(ctx, readings)
	if err != nil {
		m.markJobError(job, fmt.Sprintf("failed to store readings: %v", err))
		return
	}

	m.mu.Lock()
	job.Machines = len(ds.Machines)
	job.Bearings = len(ds.Bearings)
	job.ReadingsStored = stored
	job.ReadingsDropped = dropped
	m.mu.Unlock()

	m.metrics.recordReadings(stored, dropped)
	m.markJobComplete(job)
	log.Info("import complete", "machines", len(ds.Machines), "bearings", len(ds.Bearings), "readings", stored)
}

// updateJobStatus updates job progress (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage

	// Decompressing: 10%, Decoding: 30%, Storing: 60-90%
	switch status {
	case StatusDecompressing:
		job.Progress = 10
	case StatusDecoding:
		job.Progress = 30
	case StatusStoring:
		if job.Progress < 60 {
			job.Progress = 60
		} else {
			job.Progress += 10
		}
	}
}

// markJobComplete marks job as complete (thread-safe).
func (m *Manager) markJobComplete(job *Job) {
	m.mu.Lock()
	job.Status = StatusComplete
	job.Stage = "done"
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
	m.mu.Unlock()

	m.metrics.recordJob(StatusComplete)
}

// markJobError marks job as failed (thread-safe).
func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	job.Status = StatusError
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	m.mu.Unlock()

	m.metrics.recordJob(StatusError)
	m.log.Error("import failed", "job", job.ID[:8], "error", errMsg)
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how many were removed.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Done() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
