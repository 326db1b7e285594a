package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sawpanic/mlserve/internal/mlerrors"
	"github.com/sawpanic/mlserve/internal/pipeline"
)

// Predict handles POST /predict (spec §4.H, §4.G).
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed_json", "request body is not valid JSON")
		return
	}

	resp, err := h.pipeline.Predict(r.Context(), pipeline.Request{
		ModelName:           req.ModelName,
		ModelVersion:        req.ModelVersion,
		EntityID:            req.EntityID,
		FeatureGroup:        req.FeatureGroup,
		Features:            req.Features,
		ReturnProbabilities: req.ReturnProbabilities,
		RequestID:           requestIDFrom(r.Context()),
	})
	if err != nil {
		writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PredictBatch handles POST /predict/batch (spec §4.H).
func (h *Handlers) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed_json", "request body is not valid JSON")
		return
	}
	if req.ModelName == "" {
		writeError(w, r, http.StatusBadRequest, "validation_error", "model_name must not be empty")
		return
	}

	results := h.pipeline.PredictBatch(r.Context(), req.ModelName, req.ModelVersion, req.Instances, req.ReturnProbabilities)

	items := make([]BatchPredictResponseItem, len(results))
	for i, res := range results {
		if res.Err != nil {
			items[i] = BatchPredictResponseItem{Error: res.Err.Error()}
			continue
		}
		items[i] = BatchPredictResponseItem{
			Prediction:    res.Response.Prediction,
			Probabilities: res.Response.Probabilities,
			ModelName:     res.Response.ModelName,
			ModelVersion:  res.Response.ModelVersion,
			LatencyMS:     res.Response.LatencyMS,
			CacheHit:      res.Response.CacheHit,
		}
	}
	writeJSON(w, http.StatusOK, BatchPredictResponse{Results: items})
}

// writePredictError maps the typed mlerrors.Error taxonomy to HTTP status
// codes (spec §9 error surfacing, no string matching at the HTTP boundary).
func writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var mlErr *mlerrors.Error
	if !errors.As(err, &mlErr) {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	switch mlErr.Kind {
	case mlerrors.KindValidation:
		writeError(w, r, http.StatusBadRequest, string(mlErr.Kind), mlErr.Message)
	case mlerrors.KindNotReady:
		writeError(w, r, http.StatusServiceUnavailable, string(mlErr.Kind), mlErr.Message)
	case mlerrors.KindTimeout:
		writeError(w, r, http.StatusGatewayTimeout, string(mlErr.Kind), mlErr.Message)
	case mlerrors.KindFeatureStore, mlerrors.KindPredictor:
		writeError(w, r, http.StatusBadGateway, string(mlErr.Kind), mlErr.Message)
	case mlerrors.KindNotFound:
		writeError(w, r, http.StatusNotFound, string(mlErr.Kind), mlErr.Message)
	default:
		writeError(w, r, http.StatusInternalServerError, string(mlErr.Kind), mlErr.Message)
	}
}
