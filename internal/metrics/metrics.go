// Package metrics counts probes and sweeps in a private Prometheus registry
// and exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

const namespace = "subnetsweep"

// Sweep collects sweep statistics. A nil *Sweep discards everything.
type Sweep struct {
	registry *prometheus.Registry
	probes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

// New creates a Sweep with its own registry.
func New() *Sweep {
	m := &Sweep{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probes run, by technique and outcome.",
		}, []string{"technique", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one technique sweeping one subnet.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"technique"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_batches_total",
			Help:      "Subnets not swept because the batch exceeded the job limit.",
		}, []string{"technique"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.probes, m.duration, m.skipped, m.lastRun)
	return m
}

// Registry exposes the underlying registry.
func (m *Sweep) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveProbes counts results by outcome.
func (m *Sweep) ObserveProbes(technique models.DiscoveryTechnique, results []models.ProbeResult) {
	if m == nil {
		return
	}
	var ok, failed int
	for i := range results {
		if results[i].Success {
			ok++
		} else {
			failed++
		}
	}
	m.probes.WithLabelValues(string(technique), "success").Add(float64(ok))
	m.probes.WithLabelValues(string(technique), "failure").Add(float64(failed))
}

// ObserveSweep records how long one technique took on one subnet.
func (m *Sweep) ObserveSweep(technique models.DiscoveryTechnique, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(string(technique)).Observe(d.Seconds())
}

// ObserveSkipped counts a batch dropped for size.
func (m *Sweep) ObserveSkipped(technique models.DiscoveryTechnique) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(string(technique)).Inc()
}

// WriteTextfile stamps the run completion time and writes every metric to
// path atomically.
func (m *Sweep) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
