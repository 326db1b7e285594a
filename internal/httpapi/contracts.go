// Package httpapi is the HTTP Front End (spec §4.H): a gorilla/mux router
// exposing the prediction, model-management, and operational endpoints
// over the Prediction Pipeline and Model Manager, grounded on the
// teacher's internal/interfaces/http/server.go and handlers package.
package httpapi

import "time"

// PredictRequest is the wire shape of POST /predict.
type PredictRequest struct {
	ModelName           string                 `json:"model_name"`
	ModelVersion        string                 `json:"model_version,omitempty"`
	EntityID            string                 `json:"entity_id,omitempty"`
	FeatureGroup        string                 `json:"feature_group,omitempty"`
	Features            map[string]interface{} `json:"features"`
	ReturnProbabilities bool                   `json:"return_probabilities,omitempty"`
}

// BatchPredictRequest is the wire shape of POST /predict/batch.
type BatchPredictRequest struct {
	ModelName           string                   `json:"model_name"`
	ModelVersion        string                   `json:"model_version,omitempty"`
	Instances           []map[string]interface{} `json:"instances"`
	ReturnProbabilities bool                     `json:"return_probabilities,omitempty"`
}

// BatchPredictResponseItem carries either a response or an error message
// for one instance, preserving request order (spec §4.H).
type BatchPredictResponseItem struct {
	Prediction    interface{} `json:"prediction,omitempty"`
	Probabilities []float64   `json:"probabilities,omitempty"`
	ModelName     string      `json:"model_name,omitempty"`
	ModelVersion  string      `json:"model_version,omitempty"`
	LatencyMS     float64     `json:"latency_ms,omitempty"`
	CacheHit      bool        `json:"cache_hit,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// BatchPredictResponse is the response body of POST /predict/batch.
type BatchPredictResponse struct {
	Results []BatchPredictResponseItem `json:"results"`
}

// ModelInfo describes one currently published handle (GET /models).
type ModelInfo struct {
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Stage    string    `json:"stage"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ReloadRequest is the body of POST /models/reload. Name empty means
// "reload every tracked model".
type ReloadRequest struct {
	Name string `json:"name,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the body of GET /ready, enriched with the registry
// client's circuit-breaker snapshot (SUPPLEMENTED FEATURES: "per-provider
// health snapshot on /ready", grounded on the teacher's
// DefaultProviderRegistry.Health()).
type ReadyResponse struct {
	Status        string                  `json:"status"`
	ModelsLoaded  int                     `json:"models_loaded"`
	RegistryState map[string]BreakerState `json:"registry_state,omitempty"`
}

// BreakerState is the per-call-kind circuit-breaker snapshot surfaced on
// /ready.
type BreakerState struct {
	State     string `json:"state"`
	Requests  uint32 `json:"requests"`
	Failures  uint32 `json:"failures"`
	Successes uint32 `json:"successes"`
}

// ErrorResponse is the standardized error body, grounded on the teacher's
// httpContracts.ErrorResponse.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
