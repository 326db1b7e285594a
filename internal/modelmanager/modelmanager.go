// Package modelmanager owns the live `name -> ModelHandle` view and
// serializes loads per model name (spec §4.F). Publish is a single
// atomic.Pointer swap per name: readers via Current never observe a
// partially constructed Handle (spec invariant 2).
package modelmanager

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sawpanic/mlserve/internal/mlerrors"
	"github.com/sawpanic/mlserve/internal/modelhandle"
	"github.com/sawpanic/mlserve/internal/modelloader"
	"github.com/sawpanic/mlserve/internal/registryclient"
)

// Recorder receives load-lifecycle telemetry (spec §4.F step 7). The
// concrete implementation lives in internal/telemetry; this interface
// keeps modelmanager decoupled from the Prometheus wiring, the way the
// teacher keeps internal/provider free of its HTTP metrics package.
type Recorder interface {
	RecordLoad(modelName, version string, success bool, duration time.Duration)
	SetCurrentVersion(modelName, version string)
}

// CacheInvalidator is satisfied by *predictioncache.Cache (spec §4.F step 6).
type CacheInvalidator interface {
	InvalidateModel(modelName string) int
}

type noopRecorder struct{}

func (noopRecorder) RecordLoad(string, string, bool, time.Duration) {}
func (noopRecorder) SetCurrentVersion(string, string)                {}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateModel(string) int { return 0 }

type drainEntry struct {
	handle   *modelhandle.Handle
	deadline time.Time
}

// nameState is the per-model-name bookkeeping: loadMu is the "per-name
// load token" (spec step 2) that serializes the actual load steps;
// stateMu guards the lightweight in-flight-dedup fields so submit_load
// never blocks on a load in progress just to decide whether to join it
// (grounded on the teacher's CircuitBreakerManager.GetOrCreate
// double-checked-lock pattern in internal/provider/circuit_breaker.go).
type nameState struct {
	loadMu sync.Mutex

	stateMu     sync.Mutex
	inFlight    bool
	inFlightVer string
	done        chan struct{}
	loadErr     error
}

// Manager owns the current handle set and in-flight load bookkeeping.
type Manager struct {
	registry    registryclient.Client
	recorder    Recorder
	cache       CacheInvalidator
	drainWindow time.Duration
	sweepEvery  time.Duration

	current sync.Map // name string -> *atomic.Pointer[modelhandle.Handle]
	states  sync.Map // name string -> *nameState
	drain   sync.Map // modelhandle.Key -> *drainEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures optional collaborators.
type Option func(*Manager)

func WithRecorder(r Recorder) Option                 { return func(m *Manager) { m.recorder = r } }
func WithCacheInvalidator(c CacheInvalidator) Option { return func(m *Manager) { m.cache = c } }

// New builds a Manager. drainWindow is the minimum time a retired handle
// remains reachable after a swap (spec §4.F step 5, default 30s).
func New(registry registryclient.Client, drainWindow time.Duration, opts ...Option) *Manager {
	m := &Manager{
		registry:    registry,
		recorder:    noopRecorder{},
		cache:       noopInvalidator{},
		drainWindow: drainWindow,
		sweepEvery:  5 * time.Second,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.sweepLoop()
	return m
}

// Close stops the background drain sweep.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Current returns the published handle for name, or nil if none has
// loaded yet (spec §4.F: "lock-free; readers get a stable snapshot").
func (m *Manager) Current(name string) *modelhandle.Handle {
	v, ok := m.current.Load(name)
	if !ok {
		return nil
	}
	return v.(*atomic.Pointer[modelhandle.Handle]).Load()
}

// CurrentVersion returns the version string of the currently published
// handle for name, and whether one exists (used by the poller to avoid
// depending on the modelhandle package directly).
func (m *Manager) CurrentVersion(name string) (version string, loaded bool) {
	h := m.Current(name)
	if h == nil {
		return "", false
	}
	return h.Version, true
}

// Lookup resolves a specific (name, version) pair, consulting the current
// handle first and then the draining set for graceful handoff during a
// swap (spec §4.G step 2).
func (m *Manager) Lookup(name, version string) *modelhandle.Handle {
	if h := m.Current(name); h != nil && h.Version == version {
		return h
	}
	if v, ok := m.drain.Load(modelhandle.Key{Name: name, Version: version}); ok {
		entry := v.(*drainEntry)
		return entry.handle
	}
	return nil
}

// Handles returns every currently published handle, for the GET /models
// diagnostics endpoint (spec §4.H). Order is unspecified.
func (m *Manager) Handles() []*modelhandle.Handle {
	var out []*modelhandle.Handle
	m.current.Range(func(_, value interface{}) bool {
		if h := value.(*atomic.Pointer[modelhandle.Handle]).Load(); h != nil {
			out = append(out, h)
		}
		return true
	})
	return out
}

func (m *Manager) ptrFor(name string) *atomic.Pointer[modelhandle.Handle] {
	if v, ok := m.current.Load(name); ok {
		return v.(*atomic.Pointer[modelhandle.Handle])
	}
	p := &atomic.Pointer[modelhandle.Handle]{}
	actual, _ := m.current.LoadOrStore(name, p)
	return actual.(*atomic.Pointer[modelhandle.Handle])
}

func (m *Manager) stateFor(name string) *nameState {
	if v, ok := m.states.Load(name); ok {
		return v.(*nameState)
	}
	ns := &nameState{}
	actual, _ := m.states.LoadOrStore(name, ns)
	return actual.(*nameState)
}

// SubmitLoad is idempotent (spec §4.F "submit_load"): a no-op if version
// is already current or already in flight for name; otherwise it starts
// the load in a background goroutine and returns a channel the caller
// may wait on (closed when that attempt finishes, successfully or not).
// The poller never waits on it; preload does, bounded by a deadline.
func (m *Manager) SubmitLoad(name, version string) <-chan struct{} {
	if h := m.Current(name); h != nil && h.Version == version {
		closed := make(chan struct{})
		close(closed)
		return closed
	}

	ns := m.stateFor(name)
	ns.stateMu.Lock()
	if ns.inFlight {
		if ns.inFlightVer == version {
			done := ns.done
			ns.stateMu.Unlock()
			return done
		}
		// a different version is already loading for this name; the next
		// poller tick re-submits if this version is still desired.
		ns.stateMu.Unlock()
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	done := make(chan struct{})
	ns.inFlight = true
	ns.inFlightVer = version
	ns.done = done
	ns.stateMu.Unlock()

	go m.runLoad(name, version, ns, done)
	return done
}

func (m *Manager) runLoad(name, version string, ns *nameState, done chan struct{}) {
	ns.loadMu.Lock()
	defer ns.loadMu.Unlock()

	start := time.Now()
	err := m.load(name, version)
	duration := time.Since(start)

	m.recorder.RecordLoad(name, version, err == nil, duration)
	if err == nil {
		m.recorder.SetCurrentVersion(name, version)
	}

	ns.stateMu.Lock()
	ns.inFlight = false
	ns.loadErr = err
	ns.stateMu.Unlock()
	close(done)
}

// load executes steps 3-6 of the load algorithm while holding the
// per-name load token; runLoad records telemetry and releases the token.
func (m *Manager) load(name, version string) error {
	versionID, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return mlerrors.Load(err, "version %q for %s is not numeric", version, name)
	}

	artifact, descriptor, err := m.registry.FetchArtifact(context.Background(), name, versionID)
	if err != nil {
		return fmt.Errorf("modelmanager: fetching artifact for %s/%s: %w", name, version, err)
	}

	stage := modelhandle.StageProduction
	handle, err := modelloader.Load(name, version, stage, artifact, descriptor)
	if err != nil {
		return fmt.Errorf("modelmanager: loading %s/%s: %w", name, version, err)
	}

	old := m.ptrFor(name).Swap(handle)
	if old != nil {
		m.drain.Store(old.Key(), &drainEntry{handle: old, deadline: time.Now().Add(m.drainWindow)})
	}

	m.cache.InvalidateModel(name)
	return nil
}

// Preload submits loads for each "name:version" or "name:alias" entry and
// waits for all of them, up to deadline (spec §4.F "preload"). Entries
// that time out are left in flight; the poller will observe and retry.
func (m *Manager) Preload(ctx context.Context, entries []string, deadline time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	dones := make([]<-chan struct{}, 0, len(entries))
	for _, e := range entries {
		name, version, err := m.resolveEntry(ctx, e)
		if err != nil {
			continue // unresolved entries are skipped; the poller retries tracked names
		}
		dones = append(dones, m.SubmitLoad(name, version))
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for _, done := range dones {
		select {
		case <-done:
		case <-timer.C:
			return mlerrors.Timeout("preload did not complete within %s", deadline)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) resolveEntry(ctx context.Context, entry string) (name, version string, err error) {
	name, spec, ok := splitEntry(entry)
	if !ok {
		return "", "", fmt.Errorf("modelmanager: malformed preload entry %q", entry)
	}
	if versionID, err := strconv.ParseInt(spec, 10, 64); err == nil {
		return name, strconv.FormatInt(versionID, 10), nil
	}
	v, err := m.registry.ResolveAlias(ctx, name, spec)
	if err != nil {
		return "", "", err
	}
	return name, strconv.FormatInt(v.ID, 10), nil
}

func splitEntry(entry string) (name, rest string, ok bool) {
	for i := len(entry) - 1; i >= 0; i-- {
		if entry[i] == ':' {
			return entry[:i], entry[i+1:], true
		}
	}
	return "", "", false
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweepDrain()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) sweepDrain() {
	now := time.Now()
	m.drain.Range(func(key, value interface{}) bool {
		entry := value.(*drainEntry)
		if now.After(entry.deadline) {
			m.drain.Delete(key)
		}
		return true
	})
}
