// Package mlerrors defines the typed error taxonomy shared across the
// inference server. Components return these instead of raw errors so the
// HTTP layer and telemetry can classify failures without string matching.
package mlerrors

import "fmt"

// Kind classifies an error for HTTP status mapping and telemetry labeling.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindNotReady     Kind = "model_not_ready"
	KindFeatureStore Kind = "feature_store_error"
	KindPredictor    Kind = "predictor_error"
	KindLoad         Kind = "load_error"
	KindConfig       Kind = "config_error"
	KindTimeout      Kind = "timeout"
	KindNotFound     Kind = "not_found"
)

// Error is the typed value propagated across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Field   string // optional: offending field name for validation errors
	Err     error  // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &mlerrors.Error{Kind: ...}) style matching against
// just the Kind, ignoring Message/Field/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotReady(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotReady, Message: fmt.Sprintf(format, args...)}
}

func FeatureStore(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindFeatureStore, Message: fmt.Sprintf(format, args...), Err: err}
}

func Predictor(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindPredictor, Message: fmt.Sprintf(format, args...), Err: err}
}

func Load(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindLoad, Message: fmt.Sprintf(format, args...), Err: err}
}

func Config(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...), Err: err}
}

func Timeout(format string, args ...interface{}) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Sentinel kind-only values for use with errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotReady     = &Error{Kind: KindNotReady}
	ErrFeatureStore = &Error{Kind: KindFeatureStore}
	ErrPredictor    = &Error{Kind: KindPredictor}
	ErrLoad         = &Error{Kind: KindLoad}
	ErrConfig       = &Error{Kind: KindConfig}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrNotFound     = &Error{Kind: KindNotFound}
)
