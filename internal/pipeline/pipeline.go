// Package pipeline implements the Prediction Pipeline (spec §4.G): the
// end-to-end request path composing schema validation, feature
// retrieval, transformation, cache lookup, predictor invocation, and
// telemetry emission.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/mlserve/internal/featurestore"
	"github.com/sawpanic/mlserve/internal/fingerprint"
	"github.com/sawpanic/mlserve/internal/mlerrors"
	"github.com/sawpanic/mlserve/internal/modelhandle"
	"github.com/sawpanic/mlserve/internal/predictioncache"
)

// Request is the PredictionRequest record (spec §3).
type Request struct {
	ModelName           string
	ModelVersion        string // "latest" or an exact version; empty == "latest"
	EntityID            string // optional; drives supplementary feature-store lookup
	FeatureGroup        string // required when EntityID is set
	Features            map[string]interface{}
	ReturnProbabilities bool
	RequestID           string
}

// Status is the telemetry status taxonomy (spec §4.G).
type Status string

const (
	StatusSuccess         Status = "success"
	StatusCacheHit        Status = "cache_hit"
	StatusValidationError Status = "validation_error"
	StatusModelNotReady   Status = "model_not_ready"
	StatusFeatureStoreErr Status = "feature_store_error"
	StatusPredictorError  Status = "predictor_error"
	StatusTimeout         Status = "timeout"
)

// ModelResolver is the subset of *modelmanager.Manager the pipeline
// depends on, kept narrow to avoid a direct package dependency.
type ModelResolver interface {
	Current(name string) *modelhandle.Handle
	Lookup(name, version string) *modelhandle.Handle
}

// Recorder receives per-request telemetry (spec §4.G step 8).
type Recorder interface {
	RecordPrediction(modelName, modelVersion string, status Status, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordPrediction(string, string, Status, time.Duration) {}

// Pipeline wires the Model Manager, Feature Store Client, and Prediction
// Cache into the request path described by spec §4.G.
type Pipeline struct {
	models       ModelResolver
	features     *featurestore.Client
	cache        *predictioncache.Cache
	recorder     Recorder
	batchWorkers int
}

// New builds a Pipeline. features may be nil when no supplementary
// feature-store lookups are configured.
func New(models ModelResolver, features *featurestore.Client, cache *predictioncache.Cache, recorder Recorder, batchWorkers int) *Pipeline {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if batchWorkers <= 0 {
		batchWorkers = 8
	}
	return &Pipeline{models: models, features: features, cache: cache, recorder: recorder, batchWorkers: batchWorkers}
}

// Predict executes spec §4.G steps 1-9 for a single request.
func (p *Pipeline) Predict(ctx context.Context, req Request) (predictioncache.PredictionResponse, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		p.recorder.RecordPrediction(req.ModelName, "", StatusValidationError, time.Since(start))
		return predictioncache.PredictionResponse{}, err
	}

	handle := p.resolveHandle(req)
	if handle == nil {
		p.recorder.RecordPrediction(req.ModelName, req.ModelVersion, StatusModelNotReady, time.Since(start))
		return predictioncache.PredictionResponse{}, mlerrors.NotReady("model %s version %s is not loaded", req.ModelName, req.ModelVersion)
	}

	effective, err := handle.InputSchema.Validate(req.Features)
	if err != nil {
		p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusValidationError, time.Since(start))
		return predictioncache.PredictionResponse{}, mlerrors.Validation("features", "%v", err)
	}

	key := fingerprint.Compute(handle.Name, handle.Version, effective)
	if cached, ok := p.cache.Get(key); ok {
		cached.CacheHit = true
		cached.LatencyMS = msSince(start)
		p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusCacheHit, time.Since(start))
		return cached, nil
	}

	if p.features != nil && req.EntityID != "" {
		row, err := p.features.Get(ctx, featurestore.Key{EntityID: req.EntityID, Group: req.FeatureGroup})
		if err == nil {
			effective = mergeFeatureMaps(row.Values, effective)
		} else if !isFeatureStoreNotFound(err) {
			p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusFeatureStoreErr, time.Since(start))
			return predictioncache.PredictionResponse{}, mlerrors.FeatureStore(err, "supplementary feature lookup for entity %s", req.EntityID)
		}
	}

	vector, err := featurestore.ApplyTransforms(handle.InputSchema, effective)
	if err != nil {
		p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusValidationError, time.Since(start))
		return predictioncache.PredictionResponse{}, mlerrors.Validation("features", "%v", err)
	}

	if ctx.Err() != nil {
		p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusTimeout, time.Since(start))
		return predictioncache.PredictionResponse{}, mlerrors.Timeout("deadline exceeded before predictor invocation")
	}

	prediction, err := handle.Predictor.Predict(vector)
	if err != nil {
		p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusPredictorError, time.Since(start))
		return predictioncache.PredictionResponse{}, mlerrors.Predictor(err, "predict failed for %s/%s", handle.Name, handle.Version)
	}

	var probabilities []float64
	if req.ReturnProbabilities && handle.Predictor.SupportsProba() {
		probabilities, err = handle.Predictor.PredictProba(vector)
		if err != nil {
			p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusPredictorError, time.Since(start))
			return predictioncache.PredictionResponse{}, mlerrors.Predictor(err, "predict_proba failed for %s/%s", handle.Name, handle.Version)
		}
	}

	response := predictioncache.PredictionResponse{
		Prediction:    prediction,
		Probabilities: probabilities,
		ModelName:     handle.Name,
		ModelVersion:  handle.Version,
		LatencyMS:     msSince(start),
		CacheHit:      false,
	}
	p.cache.Put(key, response)
	p.recorder.RecordPrediction(req.ModelName, handle.Version, StatusSuccess, time.Since(start))
	return response, nil
}

// BatchResult holds the response for the instance at the same slice index,
// or carries the per-item error without failing the rest of the batch
// (spec §4.H: "per-item errors do not fail the batch").
type BatchResult struct {
	Response predictioncache.PredictionResponse
	Err      error
}

// PredictBatch runs one request per instance concurrently, bounded by a
// worker pool, preserving request order in the result slice.
func (p *Pipeline) PredictBatch(ctx context.Context, modelName, modelVersion string, instances []map[string]interface{}, returnProbabilities bool) []BatchResult {
	results := make([]BatchResult, len(instances))
	sem := make(chan struct{}, p.batchWorkers)
	done := make(chan struct{}, len(instances))

	for i, features := range instances {
		i, features := i, features
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- struct{}{} }()
			resp, err := p.Predict(ctx, Request{
				ModelName:           modelName,
				ModelVersion:        modelVersion,
				Features:            features,
				ReturnProbabilities: returnProbabilities,
			})
			results[i] = BatchResult{Response: resp, Err: err}
		}()
	}
	for range instances {
		<-done
	}
	return results
}

func (p *Pipeline) resolveHandle(req Request) *modelhandle.Handle {
	if req.ModelVersion == "" || req.ModelVersion == "latest" {
		return p.models.Current(req.ModelName)
	}
	return p.models.Lookup(req.ModelName, req.ModelVersion)
}

func validateRequest(req Request) error {
	if req.ModelName == "" {
		return mlerrors.Validation("model_name", "must not be empty")
	}
	if req.Features == nil {
		return mlerrors.Validation("features", "must be present")
	}
	return nil
}

// mergeFeatureMaps merges store-supplied values under request values,
// per spec §4.G step 5: "request values take precedence over store
// values".
func mergeFeatureMaps(store, request map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(store)+len(request))
	for k, v := range store {
		merged[k] = v
	}
	for k, v := range request {
		merged[k] = v
	}
	return merged
}

func isFeatureStoreNotFound(err error) bool {
	var mlerr *mlerrors.Error
	return errors.As(err, &mlerr) && mlerr.Kind == mlerrors.KindNotFound
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
