package registryclient

import (
	"context"

	"github.com/sawpanic/mlserve/internal/modelloader"
)

// Static is an in-memory Client test double used by poller and model
// manager tests, analogous to the teacher's fallback_chain test fixtures.
type Static struct {
	Versions   map[string][]Version
	Aliases    map[string]map[string]Version
	Artifacts  map[string]map[int64][]byte
	Schemas    map[string]map[int64]modelloader.SchemaDescriptor
	FetchError error // if set, FetchArtifact always fails with this
}

func NewStatic() *Static {
	return &Static{
		Versions:  make(map[string][]Version),
		Aliases:   make(map[string]map[string]Version),
		Artifacts: make(map[string]map[int64][]byte),
		Schemas:   make(map[string]map[int64]modelloader.SchemaDescriptor),
	}
}

func (s *Static) SetProduction(modelName string, version int64, artifact []byte, desc modelloader.SchemaDescriptor) {
	v := Version{ID: version, Stage: "production"}
	s.Versions[modelName] = append(s.Versions[modelName], v)
	if s.Aliases[modelName] == nil {
		s.Aliases[modelName] = make(map[string]Version)
	}
	s.Aliases[modelName]["production"] = v
	if s.Artifacts[modelName] == nil {
		s.Artifacts[modelName] = make(map[int64][]byte)
	}
	s.Artifacts[modelName][version] = artifact
	if s.Schemas[modelName] == nil {
		s.Schemas[modelName] = make(map[int64]modelloader.SchemaDescriptor)
	}
	s.Schemas[modelName][version] = desc
}

func (s *Static) ListVersions(_ context.Context, modelName string) ([]Version, error) {
	return s.Versions[modelName], nil
}

func (s *Static) ResolveAlias(_ context.Context, modelName, alias string) (Version, error) {
	if m, ok := s.Aliases[modelName]; ok {
		if v, ok := m[alias]; ok {
			return v, nil
		}
	}
	return Version{}, notFound(modelName)
}

func (s *Static) FetchArtifact(_ context.Context, modelName string, version int64) ([]byte, modelloader.SchemaDescriptor, error) {
	if s.FetchError != nil {
		return nil, modelloader.SchemaDescriptor{}, s.FetchError
	}
	artifact, ok := s.Artifacts[modelName][version]
	if !ok {
		return nil, modelloader.SchemaDescriptor{}, notFound(modelName)
	}
	return artifact, s.Schemas[modelName][version], nil
}

var _ Client = (*Static)(nil)
