package registryclient

import (
	"context"
	"testing"

	"github.com/sawpanic/mlserve/internal/modelloader"
	"github.com/sawpanic/mlserve/internal/predictor"
	"github.com/sawpanic/mlserve/internal/schema"
)

func TestResolveProduction_PrefersAlias(t *testing.T) {
	s := NewStatic()
	desc := modelloader.SchemaDescriptor{Kind: predictor.KindLinear, Schema: schema.InputSchema{}}
	s.SetProduction("fraud_detector", 1, []byte("{}"), desc)
	s.SetProduction("fraud_detector", 2, []byte("{}"), desc)
	s.Aliases["fraud_detector"]["production"] = Version{ID: 1, Stage: "production"}

	v, err := ResolveProduction(context.Background(), s, "fraud_detector")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID != 1 {
		t.Fatalf("expected alias-resolved version 1, got %d", v.ID)
	}
}

func TestResolveProduction_FallsBackToHighestVersion(t *testing.T) {
	s := NewStatic()
	s.Versions["m"] = []Version{
		{ID: 1, Stage: "production"},
		{ID: 3, Stage: "production"},
		{ID: 2, Stage: "staging"},
	}
	// no alias set

	v, err := ResolveProduction(context.Background(), s, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID != 3 {
		t.Fatalf("expected highest production version 3, got %d", v.ID)
	}
}

func TestResolveProduction_NotFoundWhenNoProductionVersion(t *testing.T) {
	s := NewStatic()
	s.Versions["m"] = []Version{{ID: 1, Stage: "staging"}}

	_, err := ResolveProduction(context.Background(), s, "m")
	if err == nil {
		t.Fatalf("expected not-found error")
	}
}
