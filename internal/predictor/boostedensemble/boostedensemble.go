// Package boostedensemble implements predictor.Predictor as a gradient
// boosted sequence of linear residual-correctors: a base value plus a
// learning-rate-scaled sum of per-stage weight vectors, which is the
// minimal numeric shape that distinguishes a boosted model from a flat
// averaging treeensemble.Model while staying self-contained (no external
// ONNX/XGBoost runtime dependency exists anywhere in the example corpus).
package boostedensemble

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/sawpanic/mlserve/internal/predictor"
)

// Stage is one boosting round: a weight vector applied to the full input.
type Stage struct {
	Weights []float64 `json:"weights"`
}

// Artifact is the on-disk/registry representation of a boosted ensemble.
type Artifact struct {
	Arity        int     `json:"arity"`
	BaseValue    float64 `json:"base_value"`
	LearningRate float64 `json:"learning_rate"`
	Stages       []Stage `json:"stages"`
	Classify     bool    `json:"classify"`
}

// Model is the immutable, loaded boosted-ensemble predictor.
type Model struct {
	arity        int
	baseValue    float64
	learningRate float64
	stages       []Stage
	classify     bool
}

func Parse(raw []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	if a.Arity <= 0 {
		return nil, fmt.Errorf("boostedensemble: arity must be positive, got %d", a.Arity)
	}
	for i, s := range a.Stages {
		if len(s.Weights) != a.Arity {
			return nil, fmt.Errorf("boostedensemble: stage %d has %d weights, want %d", i, len(s.Weights), a.Arity)
		}
	}
	lr := a.LearningRate
	if lr == 0 {
		lr = 1.0
	}
	return &Model{arity: a.Arity, baseValue: a.BaseValue, learningRate: lr, stages: a.Stages, classify: a.Classify}, nil
}

func (m *Model) Kind() predictor.Kind { return predictor.KindBoostedEnsemble }

func (m *Model) InputArity() int { return m.arity }

func (m *Model) Validate(vector []float64) error {
	if len(vector) != m.arity {
		return &predictor.ErrArityMismatch{Expected: m.arity, Got: len(vector)}
	}
	return nil
}

func (m *Model) Predict(vector []float64) (float64, error) {
	if err := m.Validate(vector); err != nil {
		return 0, err
	}
	sum := m.baseValue
	for _, stage := range m.stages {
		var dot float64
		for i, w := range stage.Weights {
			dot += w * vector[i]
		}
		sum += m.learningRate * dot
	}
	return sum, nil
}

func (m *Model) SupportsProba() bool { return m.classify }

func (m *Model) PredictProba(vector []float64) ([]float64, error) {
	if !m.classify {
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
