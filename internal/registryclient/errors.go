package registryclient

import "github.com/sawpanic/mlserve/internal/mlerrors"

func notFound(modelName string) error {
	return mlerrors.NotFound("no production version found for model %q", modelName)
}
