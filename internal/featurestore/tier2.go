package featurestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sawpanic/mlserve/internal/mlerrors"
)

// Tier2 is the durable tabular source of record (spec §4.C).
type Tier2 interface {
	Get(ctx context.Context, key Key) (Row, error) // mlerrors NotFound if absent
	GetBatch(ctx context.Context, keys []Key) (map[Key]Row, error)
	Put(ctx context.Context, key Key, values map[string]interface{}) (Row, error)
}

// PostgresTier2 implements Tier2 against a `feature_rows` table, grounded
// on the teacher's sqlx+lib/pq persistence layer
// (internal/infrastructure/db/connection.go, internal/persistence/postgres).
type PostgresTier2 struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresTier2 opens a pooled connection. dsn must be non-empty.
func NewPostgresTier2(dsn string, timeout time.Duration) (*PostgresTier2, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, mlerrors.Config(err, "opening postgres connection")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, mlerrors.Config(err, "pinging postgres")
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresTier2{db: db, timeout: timeout}, nil
}

type featureRowRecord struct {
	EntityID string `db:"entity_id"`
	Group    string `db:"feature_group"`
	Values   []byte `db:"values"`
	Version  int64  `db:"version"`
}

func (t *PostgresTier2) Get(ctx context.Context, key Key) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var rec featureRowRecord
	err := t.db.GetContext(ctx, &rec,
		`SELECT entity_id, feature_group, values, version FROM feature_rows WHERE entity_id = $1 AND feature_group = $2`,
		key.EntityID, key.Group)
	if err == sql.ErrNoRows {
		return Row{}, mlerrors.NotFound("feature row %s/%s not found", key.EntityID, key.Group)
	}
	if err != nil {
		return Row{}, mlerrors.FeatureStore(err, "querying feature row %s/%s", key.EntityID, key.Group)
	}
	return recordToRow(rec)
}

// GetBatch issues a single query for the full key set (spec §4.C: "a
// single Tier 2 query for the miss set"), then maps results back onto the
// input keys.
func (t *PostgresTier2) GetBatch(ctx context.Context, keys []Key) (map[Key]Row, error) {
	if len(keys) == 0 {
		return map[Key]Row{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	entityIDs := make([]string, 0, len(keys))
	groups := make(map[string]bool, len(keys))
	requested := make(map[Key]bool, len(keys))
	for _, k := range keys {
		entityIDs = append(entityIDs, k.EntityID)
		groups[k.Group] = true
		requested[k] = true
	}

	groupList := make([]string, 0, len(groups))
	for g := range groups {
		groupList = append(groupList, g)
	}

	query, args, err := sqlx.In(
		`SELECT entity_id, feature_group, values, version FROM feature_rows WHERE entity_id IN (?) AND feature_group IN (?)`,
		entityIDs, groupList)
	if err != nil {
		return nil, mlerrors.FeatureStore(err, "building batch query")
	}
	query = t.db.Rebind(query)

	var recs []featureRowRecord
	if err := t.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, mlerrors.FeatureStore(err, "executing batch query")
	}

	out := make(map[Key]Row, len(recs))
	for _, rec := range recs {
		row, err := recordToRow(rec)
		if err != nil {
			return nil, err
		}
		if requested[row.Key] {
			out[row.Key] = row
		}
	}
	return out, nil
}

// Put writes through to Tier2 and returns the row with its observed
// version (spec §4.C: write-through, Tier1 populated only on success).
func (t *PostgresTier2) Put(ctx context.Context, key Key, values map[string]interface{}) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return Row{}, mlerrors.FeatureStore(err, "marshaling feature values")
	}

	var version int64
	err = t.db.QueryRowContext(ctx, `
		INSERT INTO feature_rows (entity_id, feature_group, values, version, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (entity_id, feature_group) DO UPDATE
			SET values = EXCLUDED.values, version = feature_rows.version + 1, updated_at = now()
		RETURNING version`,
		key.EntityID, key.Group, valuesJSON).Scan(&version)
	if err != nil {
		return Row{}, mlerrors.FeatureStore(err, "writing feature row %s/%s", key.EntityID, key.Group)
	}

	return Row{Key: key, Values: values, Version: uint64(version), FetchedAt: time.Now()}, nil
}

func recordToRow(rec featureRowRecord) (Row, error) {
	var values map[string]interface{}
	if err := json.Unmarshal(rec.Values, &values); err != nil {
		return Row{}, mlerrors.FeatureStore(err, "unmarshaling feature values for %s/%s", rec.EntityID, rec.Group)
	}
	return Row{
		Key:       Key{EntityID: rec.EntityID, Group: rec.Group},
		Values:    values,
		Version:   uint64(rec.Version),
		FetchedAt: time.Now(),
	}, nil
}
