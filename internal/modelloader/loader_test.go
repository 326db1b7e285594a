package modelloader

import (
	"encoding/json"
	"testing"

	"github.com/sawpanic/mlserve/internal/modelhandle"
	"github.com/sawpanic/mlserve/internal/predictor"
	"github.com/sawpanic/mlserve/internal/predictor/linear"
	"github.com/sawpanic/mlserve/internal/schema"
)

func linearArtifact(t *testing.T, weights []float64, bias float64) []byte {
	t.Helper()
	raw, err := json.Marshal(linear.Artifact{Weights: weights, Bias: bias})
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return raw
}

func twoFieldSchema() schema.InputSchema {
	return schema.InputSchema{Fields: []schema.Field{
		{Name: "a", DType: schema.DTypeF64, Required: true},
		{Name: "b", DType: schema.DTypeF64, Required: true},
	}}
}

func TestLoad_Success(t *testing.T) {
	artifact := linearArtifact(t, []float64{1, 2}, 0.5)
	desc := SchemaDescriptor{Kind: predictor.KindLinear, Schema: twoFieldSchema()}

	h, err := Load("m", "1", modelhandle.StageProduction, artifact, desc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Name != "m" || h.Version != "1" {
		t.Fatalf("unexpected handle identity: %+v", h)
	}
	got, err := h.Predictor.Predict([]float64{1, 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
}

func TestLoad_ArityMismatchRejected(t *testing.T) {
	artifact := linearArtifact(t, []float64{1, 2, 3}, 0)
	desc := SchemaDescriptor{Kind: predictor.KindLinear, Schema: twoFieldSchema()}

	_, err := Load("m", "1", modelhandle.StageProduction, artifact, desc)
	if err == nil {
		t.Fatalf("expected arity-mismatch load error")
	}
}

func TestLoad_UnknownKindRejected(t *testing.T) {
	desc := SchemaDescriptor{Kind: "not_a_real_kind", Schema: twoFieldSchema()}
	_, err := Load("m", "1", modelhandle.StageProduction, []byte("{}"), desc)
	if err == nil {
		t.Fatalf("expected load error for unknown predictor kind")
	}
}
