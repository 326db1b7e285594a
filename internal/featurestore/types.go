// Package featurestore implements the two-tier read-through feature cache
// (spec §4.C): a fast volatile tier backed by Redis (or an in-process
// fallback) in front of a durable tabular tier backed by Postgres.
package featurestore

import "time"

// Key identifies a row in the feature store (spec §3 FeatureKey).
type Key struct {
	EntityID string
	Group    string
}

func (k Key) cacheKey() string { return k.Group + "\x00" + k.EntityID }

// Row is one feature-store record (spec §3 FeatureRow).
type Row struct {
	Key       Key
	Values    map[string]interface{}
	Version   uint64
	FetchedAt time.Time
}
