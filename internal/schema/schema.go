// Package schema defines the InputSchema that drives request validation
// and feature-vector assembly (spec §3, §4.B).
package schema

import "fmt"

// DType enumerates the closed set of supported field types.
type DType string

const (
	DTypeF64         DType = "f64"
	DTypeI64         DType = "i64"
	DTypeBool        DType = "bool"
	DTypeCategorical DType = "categorical"
)

// Transform names the lazy feature transforms declared on a field.
type Transform struct {
	Name string                 `json:"name"` // standardize|min_max_clip|impute_default|one_hot
	Args map[string]interface{} `json:"args,omitempty"`
}

// Field describes one schema column in declaration order.
type Field struct {
	Name      string      `json:"name"`
	DType     DType       `json:"dtype"`
	Required  bool        `json:"required"`
	Default   interface{} `json:"default,omitempty"`
	Transform *Transform  `json:"transform,omitempty"`
	// Classes enumerates valid categorical values; only meaningful for
	// DTypeCategorical and for a one_hot transform.
	Classes []string `json:"classes,omitempty"`
}

// InputSchema is immutable once attached to a ModelHandle (spec invariant 5).
type InputSchema struct {
	Fields []Field `json:"fields"`
}

// Arity returns the number of input fields, i.e. the numeric vector length
// after transform application (one slot per field; every transform,
// one_hot included, emits a single value per field).
func (s InputSchema) Arity() int { return len(s.Fields) }

func (s InputSchema) fieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// RequiredFields returns the names of all required fields in schema order.
func (s InputSchema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks a raw feature map against the schema: unknown required
// fields are never produced (every required field must be present or
// defaulted), type mismatches are rejected, and unknown fields supplied by
// the caller that aren't declared in the schema are rejected.
//
// Returns the effective feature map (defaults applied) or a *schema.Error
// naming the offending field.
func (s InputSchema) Validate(features map[string]interface{}) (map[string]interface{}, error) {
	effective := make(map[string]interface{}, len(s.Fields))

	known := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = f
	}
	for name := range features {
		if _, ok := known[name]; !ok {
			return nil, &Error{Field: name, Reason: "unknown field"}
		}
	}

	for _, f := range s.Fields {
		val, present := features[f.Name]
		if !present {
			if f.Required {
				if f.Default == nil {
					return nil, &Error{Field: f.Name, Reason: "missing required field"}
				}
				effective[f.Name] = f.Default
				continue
			}
			if f.Default != nil {
				effective[f.Name] = f.Default
			}
			continue
		}
		if err := checkType(f, val); err != nil {
			return nil, err
		}
		effective[f.Name] = val
	}

	return effective, nil
}

func checkType(f Field, val interface{}) error {
	switch f.DType {
	case DTypeF64:
		switch val.(type) {
		case float64, float32, int, int64:
		default:
			return &Error{Field: f.Name, Reason: fmt.Sprintf("expected f64, got %T", val)}
		}
	case DTypeI64:
		switch val.(type) {
		case int, int64, float64:
		default:
			return &Error{Field: f.Name, Reason: fmt.Sprintf("expected i64, got %T", val)}
		}
	case DTypeBool:
		switch val.(type) {
		case bool:
		default:
			return &Error{Field: f.Name, Reason: fmt.Sprintf("expected bool, got %T", val)}
		}
	case DTypeCategorical:
		switch v := val.(type) {
		case string:
			if len(f.Classes) > 0 && !contains(f.Classes, v) {
				return &Error{Field: f.Name, Reason: fmt.Sprintf("value %q not in declared classes", v)}
			}
		default:
			return &Error{Field: f.Name, Reason: fmt.Sprintf("expected categorical string, got %T", val)}
		}
	}
	return nil
}

func contains(classes []string, v string) bool {
	for _, c := range classes {
		if c == v {
			return true
		}
	}
	return false
}

// Error is a schema mismatch naming the offending field (spec §4.B(1)).
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("schema: field %q: %s", e.Field, e.Reason) }
