package featurestore

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/mlserve/internal/mlerrors"
)

// Recorder receives Tier1 hit/miss counts for telemetry (spec §4.I). A nil
// Recorder (the default) means the Client runs without emitting these.
type Recorder interface {
	RecordFeatureCacheHit()
	RecordFeatureCacheMiss()
}

// Client is the Feature Store Client facade (spec §4.C): Tier1-then-Tier2
// reads with Tier1 backfill on miss, de-duplicated batches returned as a
// map keyed by Key, and a write-through Put.
type Client struct {
	tier1    Tier1
	tier2    Tier2
	recorder Recorder
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithRecorder wires a telemetry sink for Tier1 hit/miss counts, mirroring
// modelmanager.WithRecorder's functional-option shape.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New builds a Client. tier2 may be nil, in which case Get/GetBatch/Put
// operate Tier1-only (useful for tests and for deployments that run
// without a durable tier configured).
func New(tier1 Tier1, tier2 Tier2, opts ...Option) *Client {
	c := &Client{tier1: tier1, tier2: tier2}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) recordHit() {
	if c.recorder != nil {
		c.recorder.RecordFeatureCacheHit()
	}
}

func (c *Client) recordMiss() {
	if c.recorder != nil {
		c.recorder.RecordFeatureCacheMiss()
	}
}

// Get resolves a single Row: Tier1, then Tier2 on miss, populating Tier1
// on the Tier2 hit. If Tier1 and Tier2 disagree on version, the higher
// version wins and Tier1 is updated (spec §4.C).
func (c *Client) Get(ctx context.Context, key Key) (Row, error) {
	if cached, ok := c.tier1.Get(ctx, key); ok {
		c.recordHit()
		if c.tier2 == nil {
			return cached, nil
		}
		durable, err := c.tier2.Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				return cached, nil
			}
			return cached, nil // Tier2 unavailable: serve stale Tier1 value
		}
		if durable.Version > cached.Version {
			c.tier1.Set(ctx, durable)
			return durable, nil
		}
		return cached, nil
	}
	c.recordMiss()

	if c.tier2 == nil {
		return Row{}, mlerrors.NotFound("feature row %s/%s not found in tier1", key.EntityID, key.Group)
	}
	row, err := c.tier2.Get(ctx, key)
	if err != nil {
		return Row{}, err
	}
	c.tier1.Set(ctx, row)
	return row, nil
}

// GetBatch resolves a de-duplicated set of keys, issuing one Tier2 query
// for the Tier1 miss set. The result is a map keyed by Key: it carries no
// ordering, and keys found in neither tier are absent from it. Callers
// that need input order index the map with their own key slice.
func (c *Client) GetBatch(ctx context.Context, keys []Key) (map[Key]Row, error) {
	order := make([]Key, 0, len(keys))
	seen := make(map[Key]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	out := make(map[Key]Row, len(order))
	var misses []Key
	for _, k := range order {
		if row, ok := c.tier1.Get(ctx, k); ok {
			c.recordHit()
			out[k] = row
			continue
		}
		c.recordMiss()
		misses = append(misses, k)
	}

	if len(misses) == 0 || c.tier2 == nil {
		return out, nil
	}

	durable, err := c.tier2.GetBatch(ctx, misses)
	if err != nil {
		return out, err
	}
	for k, row := range durable {
		c.tier1.Set(ctx, row)
		out[k] = row
	}
	return out, nil
}

// Put writes through to Tier2 first; Tier1 is populated only once the
// write durably succeeds (spec §4.C write-through rule).
func (c *Client) Put(ctx context.Context, key Key, values map[string]interface{}) (Row, error) {
	if c.tier2 == nil {
		row := Row{Key: key, Values: values, Version: 1, FetchedAt: time.Now()}
		c.tier1.Set(ctx, row)
		return row, nil
	}
	row, err := c.tier2.Put(ctx, key, values)
	if err != nil {
		return Row{}, err
	}
	c.tier1.Set(ctx, row)
	return row, nil
}

func isNotFound(err error) bool {
	var mlerr *mlerrors.Error
	return errors.As(err, &mlerr) && mlerr.Kind == mlerrors.KindNotFound
}
