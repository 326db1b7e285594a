package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mlserve/internal/modelloader"
	"github.com/sawpanic/mlserve/internal/registryclient"
)

type fakeManager struct {
	mu      sync.Mutex
	current map[string]string
	submits []string
}

func newFakeManager() *fakeManager {
	return &fakeManager{current: make(map[string]string)}
}

func (f *fakeManager) CurrentVersion(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.current[name]
	return v, ok
}

func (f *fakeManager) SubmitLoad(name, version string) <-chan struct{} {
	f.mu.Lock()
	f.submits = append(f.submits, name+":"+version)
	f.current[name] = version
	f.mu.Unlock()
	done := make(chan struct{})
	close(done)
	return done
}

func TestPoller_ReconcileSubmitsLoadWhenVersionDiffers(t *testing.T) {
	s := registryclient.NewStatic()
	s.SetProduction("m", 2, []byte("{}"), modelloader.SchemaDescriptor{})
	mgr := newFakeManager()
	mgr.current["m"] = "1"

	p := New(s, mgr, []string{"m"}, time.Minute, 0, zerolog.Nop())
	p.reconcile(context.Background(), "m")

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	require.Len(t, mgr.submits, 1)
	assert.Equal(t, "m:2", mgr.submits[0])
}

func TestPoller_ReconcileNoopWhenVersionMatches(t *testing.T) {
	s := registryclient.NewStatic()
	s.SetProduction("m", 2, []byte("{}"), modelloader.SchemaDescriptor{})
	mgr := newFakeManager()
	mgr.current["m"] = "2"

	p := New(s, mgr, []string{"m"}, time.Minute, 0, zerolog.Nop())
	p.reconcile(context.Background(), "m")

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Len(t, mgr.submits, 0)
}

func TestPoller_TickSkipsWhenAlreadyRunning(t *testing.T) {
	s := registryclient.NewStatic()
	mgr := newFakeManager()
	p := New(s, mgr, nil, time.Minute, 0, zerolog.Nop())

	p.tickingMu <- struct{}{}
	defer func() { <-p.tickingMu }()

	p.tick(context.Background())
	assert.Len(t, mgr.submits, 0)
}

func TestPoller_JitteredIntervalWithinBounds(t *testing.T) {
	p := New(registryclient.NewStatic(), newFakeManager(), nil, time.Minute, 0.1, zerolog.Nop())
	for i := 0; i < 20; i++ {
		d := p.jitteredInterval()
		assert.GreaterOrEqual(t, d, 54*time.Second)
		assert.LessOrEqual(t, d, 66*time.Second)
	}
}
