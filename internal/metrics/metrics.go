// Package metrics records operational metrics from the SAF-T pipeline through
// a pluggable global Backend.
//
// The default backend is a no-op, so instrumented code never has to check
// whether metrics are configured. Concrete systems live in subpackages
// (prompush, datadog) and are installed with SetBackend at startup.
package metrics

import "time"

// Metric names emitted by the pipeline.
const (
	StepTotal    = "saft_step_total"
	StepDuration = "saft_step_duration_seconds"
	RowsTotal    = "saft_rows_total"
	ChecksTotal  = "saft_quality_checks_total"
	BatchesTotal = "saft_load_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a pipeline step and observes its
// duration, labelled by outcome.
func RecordStep(dataset, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"dataset": dataset,
		"step":    step,
		"status":  status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments the row counter for dataset and kind.
//
// Kinds used by the pipeline:
//   - "loaded"
//   - "filtered"
//   - "duplicates"
//   - "nulled" (values that failed coercion)
//   - "exported"
//   - "inserted"
func RecordRows(dataset, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"dataset": dataset,
		"kind":    kind,
	})
}

// RecordCheck counts one quality check result.
func RecordCheck(dataset, check, status string) {
	backend.IncCounter(ChecksTotal, 1, Labels{
		"dataset": dataset,
		"check":   check,
		"status":  status,
	})
}

// RecordBatches increments the database load batch counter for dataset.
func RecordBatches(dataset string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"dataset": dataset,
	})
}
