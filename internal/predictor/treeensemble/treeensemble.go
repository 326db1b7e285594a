// Package treeensemble implements predictor.Predictor as an averaging
// ensemble of simple binary decision trees. Each tree is a flat array of
// nodes (index 0 = root); leaves carry a value, internal nodes carry a
// feature index, a threshold, and left/right child indices.
package treeensemble

import (
	"encoding/json"
	"fmt"

	"github.com/sawpanic/mlserve/internal/predictor"
)

// Node is one entry in a tree's flat node array.
type Node struct {
	FeatureIndex int     `json:"feature_index"` // ignored for leaves
	Threshold    float64 `json:"threshold"`     // go left if vector[FeatureIndex] <= Threshold
	Left         int     `json:"left"`          // -1 for leaves
	Right        int     `json:"right"`         // -1 for leaves
	Value        float64 `json:"value"`         // leaf output; 0 for internal nodes
	IsLeaf       bool    `json:"is_leaf"`
}

// Tree is one decision tree as a flat node array.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is the on-disk/registry representation of a tree ensemble.
type Artifact struct {
	Arity       int     `json:"arity"`
	Trees       []Tree  `json:"trees"`
	Classify    bool    `json:"classify"` // if true, PredictProba is supported
	LeafToClass float64 `json:"-"`
}

// Model is the immutable, loaded tree-ensemble predictor.
type Model struct {
	arity    int
	trees    []Tree
	classify bool
}

func Parse(raw []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	if a.Arity <= 0 {
		return nil, fmt.Errorf("treeensemble: arity must be positive, got %d", a.Arity)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("treeensemble: artifact declares no trees")
	}
	return &Model{arity: a.Arity, trees: a.Trees, classify: a.Classify}, nil
}

func (m *Model) Kind() predictor.Kind { return predictor.KindTreeEnsemble }

func (m *Model) InputArity() int { return m.arity }

func (m *Model) Validate(vector []float64) error {
	if len(vector) != m.arity {
		return &predictor.ErrArityMismatch{Expected: m.arity, Got: len(vector)}
	}
	return nil
}

func (m *Model) evalTree(t Tree, vector []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, fmt.Errorf("treeensemble: tree has no nodes")
	}
	idx := 0
	for steps := 0; steps < len(t.Nodes)+1; steps++ {
		n := t.Nodes[idx]
		if n.IsLeaf {
			return n.Value, nil
		}
		if n.FeatureIndex < 0 || n.FeatureIndex >= len(vector) {
			return 0, fmt.Errorf("treeensemble: node references out-of-range feature %d", n.FeatureIndex)
		}
		if vector[n.FeatureIndex] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("treeensemble: traversal left valid node range")
		}
	}
	return 0, fmt.Errorf("treeensemble: traversal exceeded node count, likely a cycle")
}

func (m *Model) Predict(vector []float64) (float64, error) {
	if err := m.Validate(vector); err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range m.trees {
		v, err := m.evalTree(t, vector)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(m.trees)), nil
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
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return []float64{1 - score, score}, nil
}

var _ predictor.Predictor = (*Model)(nil)
