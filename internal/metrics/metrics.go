// Package metrics exposes the pipeline's Prometheus counters. A nil
// *Metrics is valid and records nothing, so wiring is optional for callers
// like tests and dry runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	rowsRead        *prometheus.CounterVec
	rowsDropped     *prometheus.CounterVec
	deltaRecords    *prometheus.CounterVec
	profiles        *prometheus.CounterVec
	dispatchSuccess *prometheus.CounterVec
	dispatchFailed  *prometheus.CounterVec
	dispatchRetries *prometheus.CounterVec
}

// New builds a Metrics with a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	byJob := []string{"job"}

	m.rowsRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "rows_read_total",
		Help: "Raw rows fetched from object storage.",
	}, byJob)
	m.rowsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "rows_dropped_total",
		Help: "Rows dropped during normalization.",
	}, byJob)
	m.deltaRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "delta_records_total",
		Help: "Records in computed delta sets.",
	}, byJob)
	m.profiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "profiles_total",
		Help: "Consolidated profiles built for dispatch.",
	}, byJob)
	m.dispatchSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "dispatch_success_total",
		Help: "Profiles acknowledged by the ingestion API.",
	}, byJob)
	m.dispatchFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "dispatch_failed_total",
		Help: "Profiles that exhausted batch retries.",
	}, byJob)
	m.dispatchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartsync", Name: "dispatch_retries_total",
		Help: "Failed batch send attempts.",
	}, byJob)

	m.registry.MustRegister(
		m.rowsRead, m.rowsDropped, m.deltaRecords, m.profiles,
		m.dispatchSuccess, m.dispatchFailed, m.dispatchRetries,
	)
	return m
}

// Registry returns the backing registry, for exposition or test scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// All increment helpers are nil-safe.

func (m *Metrics) RowsRead(job string, n int) {
	if m != nil {
		m.rowsRead.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) RowsDropped(job string, n int) {
	if m != nil {
		m.rowsDropped.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) DeltaRecords(job string, n int) {
	if m != nil {
		m.deltaRecords.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) Profiles(job string, n int) {
	if m != nil {
		m.profiles.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) DispatchSuccess(job string, n int) {
	if m != nil {
		m.dispatchSuccess.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) DispatchFailed(job string, n int) {
	if m != nil {
		m.dispatchFailed.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) DispatchRetries(job string, n int) {
	if m != nil {
		m.dispatchRetries.WithLabelValues(job).Add(float64(n))
	}
}
