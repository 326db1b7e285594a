package featurestore

import (
	"fmt"
	"math"

	"github.com/sawpanic/mlserve/internal/schema"
)

// ApplyTransforms walks effective (schema.Validate'd) feature values in
// schema order and produces the numeric vector the predictor expects
// (spec §4.C: "registry of named transforms ... applied lazily when
// constructing a feature vector"). One float is emitted per field,
// matching schema.InputSchema.Arity() and the predictor's declared arity.
func ApplyTransforms(s schema.InputSchema, effective map[string]interface{}) ([]float64, error) {
	out := make([]float64, len(s.Fields))
	for i, f := range s.Fields {
		raw, ok := effective[f.Name]
		if !ok {
			out[i] = 0
			continue
		}
		v, err := apply(f, raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func apply(f schema.Field, raw interface{}) (float64, error) {
	if f.Transform == nil {
		return toFloat(f.Name, raw)
	}
	switch f.Transform.Name {
	case "standardize":
		return standardize(f, raw)
	case "min_max_clip":
		return minMaxClip(f, raw)
	case "impute_default":
		return imputeDefault(f, raw)
	case "one_hot":
		return oneHot(f, raw)
	default:
		return 0, fmt.Errorf("featurestore: unknown transform %q on field %q", f.Transform.Name, f.Name)
	}
}

func standardize(f schema.Field, raw interface{}) (float64, error) {
	v, err := toFloat(f.Name, raw)
	if err != nil {
		return 0, err
	}
	mu := argFloat(f.Transform.Args, "mu", 0)
	sigma := argFloat(f.Transform.Args, "sigma", 1)
	if sigma == 0 {
		return 0, fmt.Errorf("featurestore: standardize on field %q has zero sigma", f.Name)
	}
	return (v - mu) / sigma, nil
}

func minMaxClip(f schema.Field, raw interface{}) (float64, error) {
	v, err := toFloat(f.Name, raw)
	if err != nil {
		return 0, err
	}
	lo := argFloat(f.Transform.Args, "lo", math.Inf(-1))
	hi := argFloat(f.Transform.Args, "hi", math.Inf(1))
	if v < lo {
		return lo, nil
	}
	if v > hi {
		return hi, nil
	}
	return v, nil
}

func imputeDefault(f schema.Field, raw interface{}) (float64, error) {
	if raw == nil {
		return argFloat(f.Transform.Args, "value", 0), nil
	}
	return toFloat(f.Name, raw)
}

// oneHot maps the active categorical value to its index among declared
// classes, normalized to [0,1]; arity stays fixed at one slot per field.
func oneHot(f schema.Field, raw interface{}) (float64, error) {
	v, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("featurestore: one_hot on field %q expects a string, got %T", f.Name, raw)
	}
	classes := f.Classes
	if len(classes) == 0 {
		if raw2, ok := f.Transform.Args["classes"].([]interface{}); ok {
			for _, c := range raw2 {
				if s, ok := c.(string); ok {
					classes = append(classes, s)
				}
			}
		}
	}
	if len(classes) == 0 {
		return 0, fmt.Errorf("featurestore: one_hot on field %q has no declared classes", f.Name)
	}
	for i, c := range classes {
		if c == v {
			return float64(i) / float64(len(classes)-1+boolToInt(len(classes) == 1)), nil
		}
	}
	return 0, fmt.Errorf("featurestore: one_hot on field %q: value %q not in declared classes", f.Name, v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func argFloat(args map[string]interface{}, key string, def float64) float64 {
	if args == nil {
		return def
	}
	raw, ok := args[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func toFloat(field string, raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("featurestore: field %q value %v (%T) is not numeric", field, raw, raw)
	}
}
