// Package modelhandle defines the immutable ModelHandle record shared by
// many concurrent requests (spec §3). Handles are constructed once by the
// artifact loader and never mutated afterward.
package modelhandle

import (
	"time"

	"github.com/sawpanic/mlserve/internal/predictor"
	"github.com/sawpanic/mlserve/internal/schema"
)

// Stage mirrors the registry-assigned lifecycle label (spec GLOSSARY).
type Stage string

const (
	StageStaging    Stage = "staging"
	StageProduction Stage = "production"
	StageArchived   Stage = "archived"
	StageNone       Stage = "none"
)

// Handle binds a model name+version to its predictor and schema. Handle is
// never mutated after construction (spec invariant 2); fields are set once
// by New and read freely thereafter by concurrent requests.
type Handle struct {
	Name        string
	Version     string
	Stage       Stage
	LoadedAt    time.Time
	InputSchema schema.InputSchema
	Predictor   predictor.Predictor
}

// New constructs a Handle. It panics if predictor or schema are absent —
// that is a programmer error (spec §9: "reserve panics for invariants"),
// never a runtime/data condition.
func New(name, version string, stage Stage, p predictor.Predictor, s schema.InputSchema) *Handle {
	if p == nil {
		panic("modelhandle: attempted to publish a handle with a nil predictor")
	}
	if s.Arity() == 0 {
		panic("modelhandle: attempted to publish a handle with an empty schema")
	}
	return &Handle{
		Name:        name,
		Version:     version,
		Stage:       stage,
		LoadedAt:    time.Now(),
		InputSchema: s,
		Predictor:   p,
	}
}

// Key identifies a handle by (name, version) — at most one Handle per key
// is ever instantiated (spec invariant 1).
type Key struct {
	Name    string
	Version string
}

func (h *Handle) Key() Key { return Key{Name: h.Name, Version: h.Version} }
