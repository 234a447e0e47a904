// Package metrics keeps the prometheus registry of link checks and cleanups.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records link check outcomes. It satisfies culler.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	linksChecked   *prometheus.CounterVec
	checkDuration  *prometheus.HistogramVec
	cleanupRemoved *prometheus.CounterVec
	cleanupFailed  *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	linksChecked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bmlens",
			Subsystem: "check",
			Name:      "links_total",
			Help:      "Total probed bookmarks by outcome.",
		},
		[]string{"outcome"},
	)
	checkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bmlens",
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Time spent validating and probing one bookmark.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)
	cleanupRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bmlens",
			Subsystem: "cleanup",
			Name:      "removed_total",
			Help:      "Total items removed by cleanup kind.",
		},
		[]string{"kind"},
	)
	cleanupFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bmlens",
			Subsystem: "cleanup",
			Name:      "failed_total",
			Help:      "Total cleanup deletions that failed, by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(linksChecked, checkDuration, cleanupRemoved, cleanupFailed)

	return &Metrics{
		registry:       registry,
		linksChecked:   linksChecked,
		checkDuration:  checkDuration,
		cleanupRemoved: cleanupRemoved,
		cleanupFailed:  cleanupFailed,
	}
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LinkChecked counts one probe.
func (m *Metrics) LinkChecked(outcome string, elapsed time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.linksChecked.WithLabelValues(outcome).Inc()
	m.checkDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// CleanupDone counts the result of one cleanup run.
func (m *Metrics) CleanupDone(kind string, removed, failed int) {
	if removed > 0 {
		m.cleanupRemoved.WithLabelValues(kind).Add(float64(removed))
	}
	if failed > 0 {
		m.cleanupFailed.WithLabelValues(kind).Add(float64(failed))
	}
}

// WriteToTextfile dumps the registry for the node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
