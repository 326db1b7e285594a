package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlserve/internal/pipeline"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsRegistry_RecordPrediction_IncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsRegistry(reg)

	m.RecordPrediction("fraud_detector", "3", pipeline.StatusSuccess, 10*time.Millisecond)
	m.RecordPrediction("fraud_detector", "3", pipeline.StatusCacheHit, time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m.PredictionCacheHits))
	assert.Equal(t, 1.0, counterValue(t, m.PredictionCacheMisses))
}

func TestMetricsRegistry_RecordLoad_TracksSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsRegistry(reg)

	m.RecordLoad("fraud_detector", "4", true, 50*time.Millisecond)
	m.RecordLoad("fraud_detector", "5", false, 10*time.Millisecond)

	successCounter, err := m.ModelLoadsTotal.GetMetricWithLabelValues("fraud_detector", "4", "success")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, successCounter))

	failureCounter, err := m.ModelLoadsTotal.GetMetricWithLabelValues("fraud_detector", "5", "failure")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, failureCounter))
}

func TestMetricsRegistry_SetCurrentVersion_ParsesNumericVersion(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsRegistry(reg)

	m.SetCurrentVersion("fraud_detector", "7")

	gauge, err := m.CurrentModelVersion.GetMetricWithLabelValues("fraud_detector")
	require.NoError(t, err)
	var dtoM dto.Metric
	require.NoError(t, gauge.Write(&dtoM))
	assert.Equal(t, 7.0, dtoM.GetGauge().GetValue())
}
