// Package modelloader materializes downloaded artifact bytes into a
// published-ready modelhandle.Handle (spec §4.B). Loading never partially
// publishes: any failure at any step aborts before a Handle is built.
package modelloader

import (
	"fmt"

	"github.com/sawpanic/mlserve/internal/mlerrors"
	"github.com/sawpanic/mlserve/internal/modelhandle"
	"github.com/sawpanic/mlserve/internal/predictor"
	"github.com/sawpanic/mlserve/internal/predictor/boostedensemble"
	"github.com/sawpanic/mlserve/internal/predictor/linear"
	"github.com/sawpanic/mlserve/internal/predictor/treeensemble"
	"github.com/sawpanic/mlserve/internal/schema"
)

// SchemaDescriptor is the registry-supplied schema adjacent to (or
// embedded with) the artifact bytes.
type SchemaDescriptor struct {
	Kind   predictor.Kind     `json:"kind"`
	Schema schema.InputSchema `json:"schema"`
}

// Load constructs a predictor of the kind named in descriptor from raw
// artifact bytes, validates it, and returns an unpublished Handle. The
// caller (Model Manager) is responsible for the atomic publish.
func Load(name, version string, stage modelhandle.Stage, artifact []byte, descriptor SchemaDescriptor) (*modelhandle.Handle, error) {
	p, err := parse(descriptor.Kind, artifact)
	if err != nil {
		return nil, mlerrors.Load(err, "parsing %s artifact for %s/%s", descriptor.Kind, name, version)
	}

	declaredArity := descriptor.Schema.Arity()
	if declaredArity != p.InputArity() {
		return nil, mlerrors.Load(nil, "schema declares arity %d but %s model expects %d for %s/%s",
			declaredArity, descriptor.Kind, p.InputArity(), name, version)
	}

	zeroVector := make([]float64, p.InputArity())
	if err := p.Validate(zeroVector); err != nil {
		return nil, mlerrors.Load(err, "canonical all-zeros validation failed for %s/%s", name, version)
	}

	handle := modelhandle.New(name, version, stage, p, descriptor.Schema)
	return handle, nil
}

func parse(kind predictor.Kind, artifact []byte) (predictor.Predictor, error) {
	switch kind {
	case predictor.KindTreeEnsemble:
		return treeensemble.Parse(artifact)
	case predictor.KindLinear:
		return linear.Parse(artifact)
	case predictor.KindBoostedEnsemble:
		return boostedensemble.Parse(artifact)
	default:
		return nil, fmt.Errorf("modelloader: unknown predictor kind %q", kind)
	}
}
