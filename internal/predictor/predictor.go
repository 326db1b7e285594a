// Package predictor defines the closed set of inference engines the
// artifact loader may construct (spec §4.B). The set is closed by
// construction: Kind is an enum and modelloader dispatches over a fixed switch,
// so an unrecognized artifact kind is a LoadError rather than reflection
// discovering a new type at runtime.
package predictor

import "fmt"

// Kind enumerates the supported predictor variants.
type Kind string

const (
	KindTreeEnsemble    Kind = "tree_ensemble"
	KindLinear          Kind = "linear"
	KindBoostedEnsemble Kind = "boosted_ensemble"
)

// Predictor is the opaque inference object produced by the artifact loader.
// Implementations are immutable after construction (spec invariant 5).
type Predictor interface {
	// Predict returns a single scalar prediction for vector.
	Predict(vector []float64) (float64, error)
	// PredictProba returns class probabilities; only valid when
	// SupportsProba reports true.
	PredictProba(vector []float64) ([]float64, error)
	// SupportsProba is the capability flag distinguishing models that can
	// produce calibrated probabilities from those that cannot.
	SupportsProba() bool
	// InputArity returns the expected feature-vector length.
	InputArity() int
	// Validate checks vector against the model's expected shape without
	// running inference.
	Validate(vector []float64) error
	// Kind identifies which closed variant this predictor is.
	Kind() Kind
}

// ErrArityMismatch is returned by Validate/Predict when the vector length
// does not match InputArity.
type ErrArityMismatch struct {
	Expected, Got int
}

func (e *ErrArityMismatch) Error() string {
	return fmt.Sprintf("predictor: arity mismatch: expected %d inputs, got %d", e.Expected, e.Got)
}
