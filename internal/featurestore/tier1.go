package featurestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/mlserve/internal/cachekit"
)

// Tier1 is the fast, volatile cache in front of Tier2 (spec §4.C). When
// configured with a Redis address it reads/writes through go-redis;
// otherwise it falls back to an in-process cachekit.LRU, mirroring the
// teacher's dual-mode data/cache/cache.go (REDIS_ADDR-gated Redis client
// vs. an in-memory map).
type Tier1 interface {
	Get(ctx context.Context, key Key) (Row, bool)
	Set(ctx context.Context, row Row)
}

type memoryTier1 struct {
	lru *cachekit.LRU[Row]
}

// NewMemoryTier1 builds the in-process fallback tier.
func NewMemoryTier1(capacity int, ttl time.Duration) Tier1 {
	return &memoryTier1{lru: cachekit.New[Row](capacity, ttl)}
}

func (m *memoryTier1) Get(_ context.Context, key Key) (Row, bool) {
	return m.lru.Get(key.cacheKey())
}

func (m *memoryTier1) Set(_ context.Context, row Row) {
	m.lru.Set(row.Key.cacheKey(), row)
}

type redisTier1 struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTier1 builds a Redis-backed tier. addr must be non-empty.
func NewRedisTier1(addr string, ttl time.Duration) Tier1 {
	return &redisTier1{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (r *redisTier1) Get(ctx context.Context, key Key) (Row, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := r.client.Get(ctx, key.cacheKey()).Bytes()
	if err != nil {
		return Row{}, false
	}
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return Row{}, false
	}
	return row, true
}

func (r *redisTier1) Set(ctx context.Context, row Row) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := json.Marshal(row)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, row.Key.cacheKey(), raw, r.ttl).Err()
}
