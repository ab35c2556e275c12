package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(&Config{Registry: registry})

	m.Transition("approve", OutcomeSuccess)
	m.Transition("approve", OutcomeSuccess)
	m.Transition("approve", "RoleNotAllowedAtStage")
	m.Partition(OutcomeFailure)
	m.Dispatch(OutcomeSuccess)
	m.Bulk("approve", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("approve", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("approve", "RoleNotAllowedAtStage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.partitions.WithLabelValues(OutcomeFailure)))

	expected := `
# HELP procureflow_logistics_dispatches_total Shipment dispatch attempts by outcome.
# TYPE procureflow_logistics_dispatches_total counter
procureflow_logistics_dispatches_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "procureflow_logistics_dispatches_total"))
	count, err := testutil.GatherAndCount(registry, "procureflow_bulk_records")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Transition("approve", OutcomeSuccess)
	m.Bulk("approve", 1)
	m.Partition(OutcomeSuccess)
	m.Dispatch(OutcomeFailure)
}
