package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.ReportsServed.WithLabelValues("cache").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.ReportsServed.WithLabelValues("cache")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.ReportsServed.WithLabelValues("cache")), 0)
}

func TestMetrics_CollectorsRegisterCleanly(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsForTesting()

	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}
	assert.Len(t, m.collectors(), 16)
}
