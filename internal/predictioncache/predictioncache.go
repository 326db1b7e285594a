// Package predictioncache implements the bounded TTL cache keyed by
// FingerprintKey (spec §4.D), built on the shared cachekit.LRU used by
// the Feature Store's Tier1.
package predictioncache

import (
	"time"

	"github.com/sawpanic/mlserve/internal/cachekit"
)

// PredictionResponse is the prediction result shape returned to callers
// and cached by fingerprint (spec §3).
type PredictionResponse struct {
	Prediction    interface{} `json:"prediction"`
	Probabilities []float64   `json:"probabilities,omitempty"`
	ModelName     string      `json:"model_name"`
	ModelVersion  string      `json:"model_version"`
	LatencyMS     float64     `json:"latency_ms"`
	CacheHit      bool        `json:"cache_hit"`
}

type entry struct {
	response  PredictionResponse
	modelName string
}

// Cache is the bounded TTL prediction cache. Get takes cachekit.LRU's
// exclusive lock, because a hit moves the entry to the front of the
// recency list, so concurrent readers are serialized with each other and
// with writers for the duration of each map/list operation.
type Cache struct {
	lru *cachekit.LRU[entry]
}

// New builds a Cache with the given capacity and TTL.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{lru: cachekit.New[entry](capacity, ttl)}
}

// Get returns the cached response for key, or false if absent or expired.
func (c *Cache) Get(key string) (PredictionResponse, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return PredictionResponse{}, false
	}
	return e.response, true
}

// Put inserts or refreshes the entry for key, tagging it with the owning
// model name so InvalidateModel can find it later.
func (c *Cache) Put(key string, response PredictionResponse) {
	c.lru.Set(key, entry{response: response, modelName: response.ModelName})
}

// InvalidateModel evicts every entry whose response was produced by
// modelName (spec §4.D: "any successful model swap for `name` invalidates
// all entries whose fingerprint references that name"). Returns the
// number of entries removed.
func (c *Cache) InvalidateModel(modelName string) int {
	return c.lru.DeleteMatching(func(_ string, e entry) bool {
		return e.modelName == modelName
	})
}

// Stats exposes hit/miss/eviction counters for telemetry.
func (c *Cache) Stats() cachekit.Stats { return c.lru.Stats() }
