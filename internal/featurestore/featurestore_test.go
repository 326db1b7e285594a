package featurestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlserve/internal/mlerrors"
)

// fakeTier2 is an in-memory Tier2 test double, analogous to the teacher's
// in-process provider fakes used in place of a live Postgres instance.
type fakeTier2 struct {
	rows        map[Key]Row
	putCalls    int
	getBatchErr error
}

func newFakeTier2() *fakeTier2 {
	return &fakeTier2{rows: make(map[Key]Row)}
}

func (f *fakeTier2) Get(_ context.Context, key Key) (Row, error) {
	row, ok := f.rows[key]
	if !ok {
		return Row{}, mlerrors.NotFound("no row for %s/%s", key.EntityID, key.Group)
	}
	return row, nil
}

func (f *fakeTier2) GetBatch(_ context.Context, keys []Key) (map[Key]Row, error) {
	if f.getBatchErr != nil {
		return nil, f.getBatchErr
	}
	out := make(map[Key]Row)
	for _, k := range keys {
		if row, ok := f.rows[k]; ok {
			out[k] = row
		}
	}
	return out, nil
}

func (f *fakeTier2) Put(_ context.Context, key Key, values map[string]interface{}) (Row, error) {
	f.putCalls++
	existing, ok := f.rows[key]
	version := uint64(1)
	if ok {
		version = existing.Version + 1
	}
	row := Row{Key: key, Values: values, Version: version, FetchedAt: time.Now()}
	f.rows[key] = row
	return row, nil
}

func TestClient_Get_Tier1Hit_KeptWhenTier2HasNoRow(t *testing.T) {
	tier1 := NewMemoryTier1(10, time.Minute)
	tier2 := newFakeTier2()
	key := Key{EntityID: "user-1", Group: "profile"}
	cached := Row{Key: key, Values: map[string]interface{}{"age": 30.0}, Version: 5}
	tier1.Set(context.Background(), cached)

	c := New(tier1, tier2)
	row, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), row.Version)
}

func TestClient_Get_Tier1Miss_FallsThroughAndBackfills(t *testing.T) {
	tier1 := NewMemoryTier1(10, time.Minute)
	tier2 := newFakeTier2()
	key := Key{EntityID: "user-2", Group: "profile"}
	tier2.rows[key] = Row{Key: key, Values: map[string]interface{}{"age": 40.0}, Version: 1}

	c := New(tier1, tier2)
	row, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 40.0, row.Values["age"])

	cached, ok := tier1.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, uint64(1), cached.Version)
}

func TestClient_Get_Tier2HigherVersionWinsAndUpdatesTier1(t *testing.T) {
	tier1 := NewMemoryTier1(10, time.Minute)
	tier2 := newFakeTier2()
	key := Key{EntityID: "user-3", Group: "profile"}
	tier1.Set(context.Background(), Row{Key: key, Values: map[string]interface{}{"age": 1.0}, Version: 1})
	tier2.rows[key] = Row{Key: key, Values: map[string]interface{}{"age": 2.0}, Version: 2}

	c := New(tier1, tier2)
	row, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), row.Version)

	cached, ok := tier1.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, uint64(2), cached.Version)
}

func TestClient_GetBatch_DeduplicatesAndPreservesHits(t *testing.T) {
	tier1 := NewMemoryTier1(10, time.Minute)
	tier2 := newFakeTier2()
	k1 := Key{EntityID: "a", Group: "g"}
	k2 := Key{EntityID: "b", Group: "g"}
	tier2.rows[k1] = Row{Key: k1, Values: map[string]interface{}{"x": 1.0}, Version: 1}
	tier2.rows[k2] = Row{Key: k2, Values: map[string]interface{}{"x": 2.0}, Version: 1}

	c := New(tier1, tier2)
	out, err := c.GetBatch(context.Background(), []Key{k1, k2, k1})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 1.0, out[k1].Values["x"])
	assert.Equal(t, 2.0, out[k2].Values["x"])
}

type fakeRecorder struct {
	hits   int
	misses int
}

func (f *fakeRecorder) RecordFeatureCacheHit()  { f.hits++ }
func (f *fakeRecorder) RecordFeatureCacheMiss() { f.misses++ }

func TestClient_Get_RecordsTier1HitsAndMisses(t *testing.T) {
	tier1 := NewMemoryTier1(10, time.Minute)
	tier2 := newFakeTier2()
	rec := &fakeRecorder{}
	hitKey := Key{EntityID: "user-5", Group: "profile"}
	missKey := Key{EntityID: "user-6", Group: "profile"}
	tier1.Set(context.Background(), Row{Key: hitKey, Values: map[string]interface{}{"age": 1.0}, Version: 1})
	tier2.rows[missKey] = Row{Key: missKey, Values: map[string]interface{}{"age": 2.0}, Version: 1}

	c := New(tier1, tier2, WithRecorder(rec))
	_, err := c.Get(context.Background(), hitKey)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), missKey)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestClient_Put_WritesThroughThenPopulatesTier1(t *testing.T) {
	tier1 := NewMemoryTier1(10, time.Minute)
	tier2 := newFakeTier2()
	key := Key{EntityID: "user-4", Group: "profile"}

	c := New(tier1, tier2)
	row, err := c.Put(context.Background(), key, map[string]interface{}{"age": 55.0})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), row.Version)
	assert.Equal(t, 1, tier2.putCalls)

	cached, ok := tier1.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, 55.0, cached.Values["age"])
}
