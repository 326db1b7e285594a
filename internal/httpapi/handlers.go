package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sawpanic/mlserve/internal/modelhandle"
	"github.com/sawpanic/mlserve/internal/pipeline"
	"github.com/sawpanic/mlserve/internal/predictioncache"
	"github.com/sawpanic/mlserve/internal/registryclient"
)

// Predictor is the subset of *pipeline.Pipeline the HTTP layer depends on.
type Predictor interface {
	Predict(ctx context.Context, req pipeline.Request) (predictioncache.PredictionResponse, error)
	PredictBatch(ctx context.Context, modelName, modelVersion string, instances []map[string]interface{}, returnProbabilities bool) []pipeline.BatchResult
}

// ModelLister exposes the currently published handles (GET /models).
type ModelLister interface {
	Handles() []*modelhandle.Handle
}

// Reloader submits a load intent for a tracked model (POST /models/reload).
type Reloader interface {
	AdminReload(ctx context.Context, name string) error
}

// StatsProvider is implemented by *registryclient.HTTPClient; surfaced on
// GET /ready (SUPPLEMENTED FEATURES: circuit-breaker stats).
type StatsProvider interface {
	Stats() map[string]registryclient.BreakerStats
}

// Handlers wires the Prediction Pipeline, Model Manager, and Poller into
// HTTP endpoints (spec §4.H), grounded on the teacher's handlers.Handlers.
type Handlers struct {
	pipeline     Predictor
	models       ModelLister
	reloader     Reloader
	registry     registryclient.Client
	trackedNames []string
}

// NewHandlers builds the Handlers bundle. registry may implement
// StatsProvider for richer /ready diagnostics; trackedNames
// drives "reload everything" when ReloadRequest.Name is empty.
func NewHandlers(p Predictor, models ModelLister, reloader Reloader, registry registryclient.Client, trackedNames []string) *Handlers {
	return &Handlers{pipeline: p, models: models, reloader: reloader, registry: registry, trackedNames: trackedNames}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handlers) breakerSnapshot() map[string]BreakerState {
	sp, ok := h.registry.(StatsProvider)
	if !ok {
		return nil
	}
	raw := sp.Stats()
	out := make(map[string]BreakerState, len(raw))
	for k, v := range raw {
		out[k] = BreakerState{State: v.State, Requests: v.Requests, Failures: v.Failures, Successes: v.Successes}
	}
	return out
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}
