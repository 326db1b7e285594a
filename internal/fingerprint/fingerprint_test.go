package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_DeterministicAcrossFieldOrder(t *testing.T) {
	a := Compute("fraud_detector", "3", map[string]interface{}{"age": 30.0, "income": 50000.0})
	b := Compute("fraud_detector", "3", map[string]interface{}{"income": 50000.0, "age": 30.0})
	assert.Equal(t, a, b)
}

func TestCompute_DiffersOnVersion(t *testing.T) {
	a := Compute("fraud_detector", "3", map[string]interface{}{"age": 30.0})
	b := Compute("fraud_detector", "4", map[string]interface{}{"age": 30.0})
	assert.NotEqual(t, a, b)
}

func TestCompute_BooleanCanonicalization(t *testing.T) {
	a := Compute("m", "1", map[string]interface{}{"flag": true})
	b := Compute("m", "1", map[string]interface{}{"flag": 1})
	assert.Equal(t, a, b)
}

func TestCompute_FloatPrecisionCollapsesNearbyValues(t *testing.T) {
	a := Compute("m", "1", map[string]interface{}{"x": 1.0000001})
	b := Compute("m", "1", map[string]interface{}{"x": 1.0000002})
	assert.Equal(t, a, b)
}

func TestCompute_DistinctFeatureSetsDiffer(t *testing.T) {
	a := Compute("m", "1", map[string]interface{}{"x": 1.0})
	b := Compute("m", "1", map[string]interface{}{"x": 1.0, "y": 2.0})
	assert.NotEqual(t, a, b)
}
