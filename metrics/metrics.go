// Package metrics exposes Prometheus instruments for the workflow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics records engine activity. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	bulkRecords *prometheus.HistogramVec
	partitions  *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
}

// Config holds metric naming and the registry to register with.
type Config struct {
	Namespace string
	Registry  prometheus.Registerer
}

// New registers the engine instruments with config.Registry, or with the
// default registerer when none is given.
func New(config *Config) *Metrics {
	if config == nil {
		config = &Config{}
	}
	if config.Namespace == "" {
		config.Namespace = "procureflow"
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "transitions_total",
			Help:      "Record transitions by action and outcome code.",
		}, []string{"action", "outcome"}),
		bulkRecords: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "bulk_records",
			Help:      "Number of records per bulk call.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"action"}),
		partitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "fanout_partitions_total",
			Help:      "Fan-out partitions by outcome.",
		}, []string{"outcome"}),
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "logistics_dispatches_total",
			Help:      "Shipment dispatch attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// Transition counts one transition attempt; outcome is "success" or an
// error code.
func (m *Metrics) Transition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
}

// Bulk observes the size of a bulk call.
func (m *Metrics) Bulk(action string, size int) {
	if m == nil {
		return
	}
	m.bulkRecords.WithLabelValues(action).Observe(float64(size))
}

// Partition counts one fan-out partition.
func (m *Metrics) Partition(outcome string) {
	if m == nil {
		return
	}
	m.partitions.WithLabelValues(outcome).Inc()
}

// Dispatch counts one shipment dispatch attempt.
func (m *Metrics) Dispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}
