package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the ingest counters. A nil *Metrics records nothing.
type Metrics struct {
	jobs            *prometheus.CounterVec
	readingsStored  prometheus.Counter
	readingsDropped prometheus.Counter
}

// NewMetrics creates ingest counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "machine_analytics",
			Subsystem: "ingest",
			Name:      "jobs_total",
			Help:      "Number of finished import jobs by outcome",
		}, []string{"outcome"}),
		readingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "machine_analytics",
			Subsystem: "ingest",
			Name:      "readings_stored_total",
			Help:      "Readings written to storage by import jobs",
		}),
		readingsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "machine_analytics",
			Subsystem: "ingest",
			Name:      "readings_dropped_total",
			Help:      "Readings discarded during cleaning because they had no timestamp",
		}),
	}
	for _, c := range []prometheus.Collector{m.jobs, m.readingsStored, m.readingsDropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordJob(outcome Status) {
	if m == nil {
		return
	}
	m.jobs.With(prometheus.Labels{"outcome": string(outcome)}).Inc()
}

func (m *Metrics) recordReadings(stored, dropped int) {
	if m == nil {
		return
	}
	m.readingsStored.Add(float64(stored))
	m.readingsDropped.Add(float64(dropped))
}
