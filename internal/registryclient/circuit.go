// Circuit breaking for registry calls, composed from sony/gobreaker with a
// stats surface shaped after the teacher's own CircuitBreakerManager
// (internal/provider/circuit_breaker.go in the teacher repo) so operators
// get the same per-call-kind visibility without reinventing the breaker
// state machine.
package registryclient

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerStats mirrors the teacher's CircuitBreakerStats shape.
type BreakerStats struct {
	Name                string
	State               string
	Requests            uint32
	Failures            uint32
	Successes           uint32
	ConsecutiveFailures uint32
}

// breakerManager lazily creates one gobreaker.CircuitBreaker per call kind
// (e.g. "list_versions", "resolve_alias", "fetch_artifact") so a run of
// failures against one operation doesn't trip calls against another.
type breakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerManager() *breakerManager {
	return &breakerManager{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (m *breakerManager) get(name string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	if b, ok := m.breakers[name]; ok {
		m.mu.RUnlock()
		return b
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
	b := gobreaker.NewCircuitBreaker(settings)
	m.breakers[name] = b
	return b
}

// Execute runs fn under the named call kind's circuit breaker.
func (m *breakerManager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return m.get(name).Execute(fn)
}

// Stats returns a snapshot for every call kind seen so far.
func (m *breakerManager) Stats() map[string]BreakerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]BreakerStats, len(m.breakers))
	for name, b := range m.breakers {
		counts := b.Counts()
		out[name] = BreakerStats{
			Name:                name,
			State:               b.State().String(),
			Requests:            counts.Requests,
			Failures:            counts.TotalFailures,
			Successes:           counts.TotalSuccesses,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		}
	}
	return out
}
