// Package telemetry exposes the fixed instrument set spec §4.I requires,
// grounded on the teacher's internal/interfaces/http/metrics.go
// MetricsRegistry (struct-of-instruments, one NewXxxVec constructor per
// metric, prometheus.MustRegister on construction).
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sawpanic/mlserve/internal/pipeline"
)

// predictionDurationBuckets is the bucket set spec §4.I fixes exactly.
var predictionDurationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.075, 0.100, 0.250, 0.500, 0.750, 1, 2.5, 5, 7.5, 10,
}

// MetricsRegistry holds every Prometheus instrument the core emits.
type MetricsRegistry struct {
	PredictionsTotal        *prometheus.CounterVec
	PredictionDuration      *prometheus.HistogramVec
	ModelLoadsTotal         *prometheus.CounterVec
	ModelLoadDuration       *prometheus.HistogramVec
	CurrentModelVersion     *prometheus.GaugeVec
	FeatureCacheHitsTotal   prometheus.Counter
	FeatureCacheMissesTotal prometheus.Counter
	PredictionCacheHits     prometheus.Counter
	PredictionCacheMisses   prometheus.Counter
}

// NewMetricsRegistry builds and registers every instrument against reg.
// Pass prometheus.NewRegistry() in tests to avoid colliding with the
// global default registry across parallel test runs.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	m := &MetricsRegistry{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total predictions served, by model, version, and outcome status.",
		}, []string{"model_name", "model_version", "status"}),

		PredictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ml_prediction_duration_seconds",
			Help:    "Prediction request latency in seconds.",
			Buckets: predictionDurationBuckets,
		}, []string{"model_name", "model_version"}),

		ModelLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_model_loads_total",
			Help: "Total model load attempts, by model, version, and outcome status.",
		}, []string{"model_name", "model_version", "status"}),

		ModelLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "ml_model_load_duration_seconds",
			Help: "Model load duration in seconds.",
		}, []string{"model_name", "model_version"}),

		CurrentModelVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ml_current_model_version",
			Help: "Numeric id of the currently published version, by model name.",
		}, []string{"model_name"}),

		FeatureCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ml_feature_cache_hits_total",
			Help: "Total Feature Store Tier 1 cache hits.",
		}),
		FeatureCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ml_feature_cache_misses_total",
			Help: "Total Feature Store Tier 1 cache misses.",
		}),
		PredictionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ml_prediction_cache_hits_total",
			Help: "Total Prediction Cache hits.",
		}),
		PredictionCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ml_prediction_cache_misses_total",
			Help: "Total Prediction Cache misses.",
		}),
	}

	reg.MustRegister(
		m.PredictionsTotal,
		m.PredictionDuration,
		m.ModelLoadsTotal,
		m.ModelLoadDuration,
		m.CurrentModelVersion,
		m.FeatureCacheHitsTotal,
		m.FeatureCacheMissesTotal,
		m.PredictionCacheHits,
		m.PredictionCacheMisses,
	)
	return m
}

// RecordPrediction implements pipeline.Recorder.
func (m *MetricsRegistry) RecordPrediction(modelName, modelVersion string, status pipeline.Status, duration time.Duration) {
	m.PredictionsTotal.WithLabelValues(modelName, modelVersion, string(status)).Inc()
	m.PredictionDuration.WithLabelValues(modelName, modelVersion).Observe(duration.Seconds())
	if status == pipeline.StatusCacheHit {
		m.PredictionCacheHits.Inc()
	} else {
		m.PredictionCacheMisses.Inc()
	}
}

// RecordLoad implements modelmanager.Recorder.
func (m *MetricsRegistry) RecordLoad(modelName, version string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.ModelLoadsTotal.WithLabelValues(modelName, version, status).Inc()
	m.ModelLoadDuration.WithLabelValues(modelName, version).Observe(duration.Seconds())
}

// SetCurrentVersion implements modelmanager.Recorder.
func (m *MetricsRegistry) SetCurrentVersion(modelName, version string) {
	if id, err := strconv.ParseInt(version, 10, 64); err == nil {
		m.CurrentModelVersion.WithLabelValues(modelName).Set(float64(id))
	}
}

// RecordFeatureCacheHit/Miss implement featurestore.Recorder.
func (m *MetricsRegistry) RecordFeatureCacheHit()  { m.FeatureCacheHitsTotal.Inc() }
func (m *MetricsRegistry) RecordFeatureCacheMiss() { m.FeatureCacheMissesTotal.Inc() }

// Handler exposes the Prometheus text-format scrape endpoint (spec §4.H
// GET /metrics), grounded on the teacher's MetricsHandler using
// promhttp.Handler().
func Handler() http.Handler { return promhttp.Handler() }
