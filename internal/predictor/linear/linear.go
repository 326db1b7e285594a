// Package linear implements predictor.Predictor as a plain linear model:
// prediction = bias + dot(weights, vector), with an optional logistic
// squashing for probability output.
package linear

import (
	"encoding/json"
	"math"

	"github.com/sawpanic/mlserve/internal/predictor"
)

// Artifact is the on-disk/registry representation of a linear model.
type Artifact struct {
	Weights  []float64 `json:"weights"`
	Bias     float64   `json:"bias"`
	Logistic bool      `json:"logistic"` // if true, PredictProba applies a sigmoid
}

// Model is the immutable, loaded linear predictor.
type Model struct {
	weights  []float64
	bias     float64
	logistic bool
}

// Parse decodes raw artifact bytes into a Model.
func Parse(raw []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	w := make([]float64, len(a.Weights))
	copy(w, a.Weights)
	return &Model{weights: w, bias: a.Bias, logistic: a.Logistic}, nil
}

func (m *Model) Kind() predictor.Kind { return predictor.KindLinear }

func (m *Model) InputArity() int { return len(m.weights) }

func (m *Model) Validate(vector []float64) error {
	if len(vector) != len(m.weights) {
		return &predictor.ErrArityMismatch{Expected: len(m.weights), Got: len(vector)}
	}
	return nil
}

func (m *Model) Predict(vector []float64) (float64, error) {
	if err := m.Validate(vector); err != nil {
		return 0, err
	}
	sum := m.bias
	for i, w := range m.weights {
		sum += w * vector[i]
	}
	return sum, nil
}

func (m *Model) SupportsProba() bool { return m.logistic }

func (m *Model) PredictProba(vector []float64) ([]float64, error) {
	if !m.logistic {
		return nil, nil
	}
	score, err := m.Predict(vector)
	if err != nil {
		return nil, err
	}
	p := 1.0 / (1.0 + math.Exp(-score))
	return []float64{1 - p, p}, nil
}

var _ predictor.Predictor = (*Model)(nil)
