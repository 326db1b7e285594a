// Package poller implements the Model Registry Poller (spec §4.E): a
// jittered periodic loop that reconciles each tracked model name's
// desired production version against what the Model Manager currently
// has loaded. Grounded on the teacher's internal/scheduler/scheduler.go
// ticker-driven Start(ctx)/select loop, replacing its cron-job dispatch
// with per-name version reconciliation.
package poller

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/mlserve/internal/registryclient"
)

// CurrentVersioner is the subset of *modelmanager.Manager the poller
// depends on.
type CurrentVersioner interface {
	CurrentVersion(name string) (version string, loaded bool)
	SubmitLoad(name, version string) <-chan struct{}
}

// Poller periodically reconciles tracked model names.
type Poller struct {
	registry registryclient.Client
	manager  CurrentVersioner
	names    []string
	interval time.Duration
	jitter   float64
	log      zerolog.Logger

	tickingMu chan struct{} // single-slot semaphore: non-reentrant ticks
}

// New builds a Poller for the given tracked model names.
func New(registry registryclient.Client, manager CurrentVersioner, names []string, interval time.Duration, jitterFraction float64, logger zerolog.Logger) *Poller {
	return &Poller{
		registry:  registry,
		manager:   manager,
		names:     names,
		interval:  interval,
		jitter:    jitterFraction,
		log:       logger.With().Str("component", "poller").Logger(),
		tickingMu: make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled, ticking at interval ± jitter and
// reconciling all tracked names on each tick (spec §4.E). Ticks never
// overlap: each tick runs to completion before the next wait starts, so
// a slow reconciliation delays the next tick.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Int("tracked_models", len(p.names)).Dur("interval", p.interval).Msg("poller starting")
	for {
		wait := p.jitteredInterval()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info().Msg("poller stopping")
			return
		case <-timer.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) jitteredInterval() time.Duration {
	if p.jitter <= 0 {
		return p.interval
	}
	delta := float64(p.interval) * p.jitter * (2*rand.Float64() - 1)
	return p.interval + time.Duration(delta)
}

func (p *Poller) tick(ctx context.Context) {
	select {
	case p.tickingMu <- struct{}{}:
	default:
		p.log.Warn().Msg("previous tick still running, skipping")
		return
	}
	defer func() { <-p.tickingMu }()

	for _, name := range p.names {
		p.reconcile(ctx, name)
	}
}

// reconcile implements spec §4.E steps 1-3 for one tracked name.
func (p *Poller) reconcile(ctx context.Context, name string) {
	desired, err := registryclient.ResolveProduction(ctx, p.registry, name)
	if err != nil {
		p.log.Warn().Str("model", name).Err(err).Msg("could not resolve desired production version")
		return
	}
	desiredVersion := strconv.FormatInt(desired.ID, 10)

	current, loaded := p.manager.CurrentVersion(name)
	if loaded && current == desiredVersion {
		return
	}

	p.log.Info().Str("model", name).Str("current", current).Str("desired", desiredVersion).Msg("submitting load")
	p.manager.SubmitLoad(name, desiredVersion)
}

// AdminReload submits a load intent for name by the same mechanism the
// poller uses, for the administrative reload endpoint (spec §4.E).
func (p *Poller) AdminReload(ctx context.Context, name string) error {
	desired, err := registryclient.ResolveProduction(ctx, p.registry, name)
	if err != nil {
		return err
	}
	p.manager.SubmitLoad(name, strconv.FormatInt(desired.ID, 10))
	return nil
}
