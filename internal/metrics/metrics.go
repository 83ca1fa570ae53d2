// Package metrics exposes run counters in the Prometheus text format for
// the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sendersweep"

// Recorder collects counters for one process run. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	scanned  prometheus.Counter
	skipped  prometheus.Counter
	trashed  prometheus.Counter
	batches  prometheus.Counter
	senders  prometheus.Gauge
	lastRun  prometheus.Gauge
}

// New returns a Recorder backed by its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_scanned_total",
			Help:      "Messages whose metadata was fetched and scored.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_skipped_total",
			Help:      "Messages left out of a scan because their metadata could not be read.",
		}),
		trashed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_trashed_total",
			Help:      "Messages moved to the trash.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trash_batches_total",
			Help:      "Trash batches acknowledged by the mail provider.",
		}),
		senders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "senders",
			Help:      "Distinct senders in the most recent scan.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last command finished.",
		}),
	}
	r.registry.MustRegister(r.scanned, r.skipped, r.trashed, r.batches, r.senders, r.lastRun)
	return r
}

func (r *Recorder) Scanned(n int) {
	if r != nil {
		r.scanned.Add(float64(n))
	}
}

func (r *Recorder) Skipped(n int) {
	if r != nil {
		r.skipped.Add(float64(n))
	}
}

// TrashBatch records one acknowledged batch of n messages.
func (r *Recorder) TrashBatch(n int) {
	if r != nil {
		r.batches.Inc()
		r.trashed.Add(float64(n))
	}
}

func (r *Recorder) Senders(n int) {
	if r != nil {
		r.senders.Set(float64(n))
	}
}

// WriteTextfile stamps the run time and atomically writes every metric to
// path.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	if r == nil || path == "" {
		return nil
	}
	r.lastRun.Set(float64(now.Unix()))
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
