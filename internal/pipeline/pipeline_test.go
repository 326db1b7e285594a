package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlserve/internal/featurestore"
	"github.com/sawpanic/mlserve/internal/modelhandle"
	"github.com/sawpanic/mlserve/internal/predictioncache"
	"github.com/sawpanic/mlserve/internal/predictor/linear"
	"github.com/sawpanic/mlserve/internal/schema"
)

type fakeResolver struct {
	handles map[string]*modelhandle.Handle
}

func (f *fakeResolver) Current(name string) *modelhandle.Handle { return f.handles[name] }
func (f *fakeResolver) Lookup(name, version string) *modelhandle.Handle {
	h := f.handles[name]
	if h != nil && h.Version == version {
		return h
	}
	return nil
}

func twoFieldHandle(t *testing.T, name, version string) *modelhandle.Handle {
	t.Helper()
	model, err := linear.Parse(mustJSON(t, linear.Artifact{Weights: []float64{1, 1}, Bias: 0}))
	require.NoError(t, err)
	s := schema.InputSchema{Fields: []schema.Field{
		{Name: "a", DType: schema.DTypeF64, Required: true},
		{Name: "b", DType: schema.DTypeF64, Required: true},
	}}
	return modelhandle.New(name, version, modelhandle.StageProduction, model, s)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestPipeline_Predict_Success(t *testing.T) {
	handle := twoFieldHandle(t, "m", "1")
	resolver := &fakeResolver{handles: map[string]*modelhandle.Handle{"m": handle}}
	cache := predictioncache.New(10, time.Minute)
	p := New(resolver, nil, cache, nil, 4)

	resp, err := p.Predict(context.Background(), Request{
		ModelName: "m",
		Features:  map[string]interface{}{"a": 2.0, "b": 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, resp.Prediction)
	assert.False(t, resp.CacheHit)
}

func TestPipeline_Predict_CacheHitOnSecondCall(t *testing.T) {
	handle := twoFieldHandle(t, "m", "1")
	resolver := &fakeResolver{handles: map[string]*modelhandle.Handle{"m": handle}}
	cache := predictioncache.New(10, time.Minute)
	p := New(resolver, nil, cache, nil, 4)

	req := Request{ModelName: "m", Features: map[string]interface{}{"a": 2.0, "b": 3.0}}
	_, err := p.Predict(context.Background(), req)
	require.NoError(t, err)

	resp, err := p.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.CacheHit)
}

func TestPipeline_Predict_ModelNotReady(t *testing.T) {
	resolver := &fakeResolver{handles: map[string]*modelhandle.Handle{}}
	cache := predictioncache.New(10, time.Minute)
	p := New(resolver, nil, cache, nil, 4)

	_, err := p.Predict(context.Background(), Request{
		ModelName: "missing",
		Features:  map[string]interface{}{"a": 1.0},
	})
	assert.Error(t, err)
}

func TestPipeline_Predict_ValidationErrorOnUnknownField(t *testing.T) {
	handle := twoFieldHandle(t, "m", "1")
	resolver := &fakeResolver{handles: map[string]*modelhandle.Handle{"m": handle}}
	cache := predictioncache.New(10, time.Minute)
	p := New(resolver, nil, cache, nil, 4)

	_, err := p.Predict(context.Background(), Request{
		ModelName: "m",
		Features:  map[string]interface{}{"a": 1.0, "b": 2.0, "c": 3.0},
	})
	assert.Error(t, err)
}

func TestPipeline_Predict_MergesFeatureStoreSupplement(t *testing.T) {
	handle := twoFieldHandle(t, "m", "1")
	resolver := &fakeResolver{handles: map[string]*modelhandle.Handle{"m": handle}}
	tier1 := featurestore.NewMemoryTier1(10, time.Minute)
	fsClient := featurestore.New(tier1, nil)
	_, err := fsClient.Put(context.Background(), featurestore.Key{EntityID: "e1", Group: "g"}, map[string]interface{}{"b": 10.0})
	require.NoError(t, err)

	cache := predictioncache.New(10, time.Minute)
	p := New(resolver, fsClient, cache, nil, 4)

	resp, err := p.Predict(context.Background(), Request{
		ModelName:    "m",
		EntityID:     "e1",
		FeatureGroup: "g",
		Features:     map[string]interface{}{"a": 2.0}, // b supplied by feature store
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, resp.Prediction)
}

func TestPipeline_PredictBatch_PreservesOrderAndIsolatesErrors(t *testing.T) {
	handle := twoFieldHandle(t, "m", "1")
	resolver := &fakeResolver{handles: map[string]*modelhandle.Handle{"m": handle}}
	cache := predictioncache.New(10, time.Minute)
	p := New(resolver, nil, cache, nil, 4)

	instances := []map[string]interface{}{
		{"a": 1.0, "b": 1.0},
		{"a": 99.0}, // missing required field b -> per-item error
		{"a": 2.0, "b": 2.0},
	}
	results := p.PredictBatch(context.Background(), "m", "", instances, false)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2.0, results[0].Response.Prediction)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 4.0, results[2].Response.Prediction)
}
