package modelmanager

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlserve/internal/modelloader"
	"github.com/sawpanic/mlserve/internal/predictor"
	"github.com/sawpanic/mlserve/internal/predictor/linear"
	"github.com/sawpanic/mlserve/internal/registryclient"
	"github.com/sawpanic/mlserve/internal/schema"
)

func linearArtifactBytes(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(linear.Artifact{Weights: []float64{1, 2}, Bias: 0})
	require.NoError(t, err)
	return raw
}

func twoFieldSchema() schema.InputSchema {
	return schema.InputSchema{Fields: []schema.Field{
		{Name: "a", DType: schema.DTypeF64, Required: true},
		{Name: "b", DType: schema.DTypeF64, Required: true},
	}}
}

func TestManager_SubmitLoad_PublishesHandle(t *testing.T) {
	s := registryclient.NewStatic()
	desc := modelloader.SchemaDescriptor{Kind: predictor.KindLinear, Schema: twoFieldSchema()}
	s.SetProduction("m", 1, linearArtifactBytes(t), desc)

	mgr := New(s, 30*time.Second)
	defer mgr.Close()

	done := mgr.SubmitLoad("m", "1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("load did not complete")
	}

	h := mgr.Current("m")
	require.NotNil(t, h)
	assert.Equal(t, "1", h.Version)
}

func TestManager_SubmitLoad_NoopWhenAlreadyCurrent(t *testing.T) {
	s := registryclient.NewStatic()
	desc := modelloader.SchemaDescriptor{Kind: predictor.KindLinear, Schema: twoFieldSchema()}
	s.SetProduction("m", 1, linearArtifactBytes(t), desc)

	mgr := New(s, 30*time.Second)
	defer mgr.Close()

	<-mgr.SubmitLoad("m", "1")
	done := mgr.SubmitLoad("m", "1")

	select {
	case <-done:
	default:
		t.Fatal("expected an already-closed channel for a no-op submission")
	}
}

func TestManager_SwapRetiresOldHandleIntoDrainSet(t *testing.T) {
	s := registryclient.NewStatic()
	desc := modelloader.SchemaDescriptor{Kind: predictor.KindLinear, Schema: twoFieldSchema()}
	s.SetProduction("m", 1, linearArtifactBytes(t), desc)
	s.SetProduction("m", 2, linearArtifactBytes(t), desc)

	mgr := New(s, 30*time.Second)
	defer mgr.Close()

	<-mgr.SubmitLoad("m", "1")
	<-mgr.SubmitLoad("m", "2")

	current := mgr.Current("m")
	require.NotNil(t, current)
	assert.Equal(t, "2", current.Version)

	retired := mgr.Lookup("m", "1")
	require.NotNil(t, retired)
	assert.Equal(t, "1", retired.Version)
}

func TestManager_Preload_WaitsForCompletion(t *testing.T) {
	s := registryclient.NewStatic()
	desc := modelloader.SchemaDescriptor{Kind: predictor.KindLinear, Schema: twoFieldSchema()}
	s.SetProduction("m", 1, linearArtifactBytes(t), desc)

	mgr := New(s, 30*time.Second)
	defer mgr.Close()

	err := mgr.Preload(context.Background(), []string{"m:1"}, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, mgr.Current("m"))
}
