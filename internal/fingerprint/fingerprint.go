// Package fingerprint computes the canonical FingerprintKey used as the
// Prediction Cache key (spec §3): a stable hash over
// (model_name, model_version, normalized-feature-map). Grounded on the
// teacher's component key-building in
// internal/providers/guards/cache.go (GenerateCacheKey: join sorted
// components into one string, then hash), upgraded from MD5 to SHA-256
// because this key is a durable cross-process contract rather than an
// in-process HTTP response cache key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Compute returns the hex-encoded FingerprintKey for the given model
// identity and effective (post-validation, pre-transform) feature map.
// Same inputs always produce the same key (spec invariant 4).
func Compute(modelName, modelVersion string, features map[string]interface{}) string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "model:%s\x00version:%s", modelName, modelVersion)
	for _, name := range names {
		fmt.Fprintf(h, "\x00%s=%s", name, canonicalize(features[name]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalize renders a feature value per spec §3: floats at 6
// significant digits, booleans as 0/1, everything else via its natural
// string form.
func canonicalize(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', 6, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', 6, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case string:
		return val
	case nil:
		return "\x01nil"
	default:
		return fmt.Sprintf("%v", val)
	}
}
