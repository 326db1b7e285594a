// Package registryclient is the read-only surface the core depends on
// regardless of which remote model registry implementation sits behind it
// (spec §4.A, §6). The remote registry itself, along with training and
// artifact-storage concerns, is out of scope (spec §1) and referenced only
// through this interface.
package registryclient

import (
	"context"

	"github.com/sawpanic/mlserve/internal/modelloader"
)

// Version describes one tracked model version (spec §3 RegistryView).
type Version struct {
	ID      int64
	Stage   string // staging|production|archived|none
	Aliases []string
}

// Client is the logical registry operation set. Implementations must not
// be hard-coded elsewhere in the core (spec §6).
type Client interface {
	// ListVersions returns the finite set of known versions for modelName.
	ListVersions(ctx context.Context, modelName string) ([]Version, error)
	// ResolveAlias returns the version currently bound to alias, or a
	// *mlerrors.Error{Kind: KindNotFound} if no such alias exists.
	ResolveAlias(ctx context.Context, modelName, alias string) (Version, error)
	// FetchArtifact downloads artifact bytes and the schema descriptor
	// the loader requires; both must be present or the call fails.
	FetchArtifact(ctx context.Context, modelName string, version int64) ([]byte, modelloader.SchemaDescriptor, error)
}

// ResolveProduction implements the tie-break policy this spec fixes for
// spec §4.E step 1: prefer the "production" alias if the registry
// publishes one; otherwise fall back to the highest numeric version id
// among versions staged "production" (ties broken by higher version id,
// which a numeric max already satisfies).
func ResolveProduction(ctx context.Context, c Client, modelName string) (Version, error) {
	if v, err := c.ResolveAlias(ctx, modelName, "production"); err == nil {
		return v, nil
	}

	versions, err := c.ListVersions(ctx, modelName)
	if err != nil {
		return Version{}, err
	}

	var best Version
	found := false
	for _, v := range versions {
		if v.Stage != "production" {
			continue
		}
		if !found || v.ID > best.ID {
			best = v
			found = true
		}
	}
	if !found {
		return Version{}, notFound(modelName)
	}
	return best, nil
}
