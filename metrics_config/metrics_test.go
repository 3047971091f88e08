package metrics_config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRuntimeMetrics(t *testing.T) {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "runtime_test"}, []string{"stat"})
	stats := readRuntimeStats()
	require.NotZero(t, stats.Goroutines)
	require.NotZero(t, stats.MemTotal)

	collectRuntimeMetrics(gauge, stats)
	require.Equal(t, float64(stats.Goroutines), testutil.ToFloat64(gauge.WithLabelValues("goroutines")))
	require.Equal(t, 9, testutil.CollectAndCount(gauge))
}

func TestGaugeVec(t *testing.T) {
	gauge := NewGaugeVec("metrics_config_test_gauges", "Test gauges")
	gauge.WithLabelValues("a").Add(2)
	gauge.WithLabelValues("a").Sub(1)
	require.Equal(t, float64(1), testutil.ToFloat64(gauge.WithLabelValues("a")))
}

func TestMetricConstructors(t *testing.T) {
	gauge := NewGauge("metrics_config_test_gauge", "Test gauge")
	gauge.Set(3)
	gauge.Dec()
	require.Equal(t, float64(2), testutil.ToFloat64(gauge))

	counter := NewCounter("metrics_config_test_counter", "Test counter")
	counter.Add(4)
	counter.Inc()
	require.Equal(t, float64(5), testutil.ToFloat64(counter))

	histogram := NewHistogram("metrics_config_test_histogram", "Test histogram")
	histogram.Observe(0.2)
	histogram.Observe(3)
	m := &dto.Metric{}
	require.NoError(t, histogram.Write(m))
	require.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	require.InDelta(t, 3.2, m.GetHistogram().GetSampleSum(), 1e-9)

	// Registration is global, a second constructor with the same name panics
	require.Panics(t, func() { NewCounter("metrics_config_test_counter", "Test counter") })
}

func TestDisabledByDefault(t *testing.T) {
	require.False(t, MetricsEnabled())
	StartProcessMetrics("0")
	EnableMetrics()
	require.True(t, MetricsEnabled())
	enabled = false
}
