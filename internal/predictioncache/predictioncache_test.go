package predictioncache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutThenGet(t *testing.T) {
	c := New(10, time.Minute)
	resp := PredictionResponse{Prediction: 0.8, ModelName: "fraud_detector", ModelVersion: "3"}
	c.Put("key1", resp)

	got, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, resp.Prediction, got.Prediction)
}

func TestCache_MissOnExpiry(t *testing.T) {
	c := New(10, time.Millisecond)
	c.Put("key1", PredictionResponse{ModelName: "m"})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestCache_InvalidateModel_RemovesOnlyMatchingEntries(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k1", PredictionResponse{ModelName: "fraud_detector"})
	c.Put("k2", PredictionResponse{ModelName: "fraud_detector"})
	c.Put("k3", PredictionResponse{ModelName: "churn_model"})

	removed := c.InvalidateModel("fraud_detector")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("k3")
	assert.True(t, ok)
	_, ok = c.Get("k1")
	assert.False(t, ok)
}
