// Package tracker runs the periodic update loop: purge, refresh, emit, sleep.
package tracker

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/observability"
	"solana-price-tracker/internal/registry"
)

const (
	DefaultInterval         = 3 * time.Second
	DefaultMinSleep         = 100 * time.Millisecond
	DefaultPurgeProbability = 0.05
)

// State is the registry surface the loop needs.
type State interface {
	PurgeExpired(now time.Time) registry.PurgeResult
	Stats() registry.Stats
}

// Updater refreshes prices of all active tokens.
type Updater interface {
	UpdateAll(ctx context.Context) int
}

// Builder assembles the snapshot of the current tick.
type Builder interface {
	Build() *domain.Snapshot
}

// Emitter delivers snapshots.
type Emitter interface {
	Emit(s *domain.Snapshot)
}

// Recorder receives lifecycle events. Implementations must not block.
type Recorder interface {
	Record(e domain.LifecycleEvent)
}

// Options configures a Tracker.
type Options struct {
	Interval         time.Duration
	MinSleep         time.Duration
	PurgeProbability float64 // chance per tick of a retention pass; 0 disables, 1 always
	Recorder         Recorder
	Logger           *zap.Logger
	Clock            func() time.Time
	Rand             func() float64 // [0, 1)
}

// Tracker drives one tick every Interval.
type Tracker struct {
	state     State
	updater   Updater
	builder   Builder
	emitter   Emitter
	recorder  Recorder
	interval  time.Duration
	minSleep  time.Duration
	purgeProb float64
	logger    *zap.Logger
	clock     func() time.Time
	rand      func() float64
}

// New creates a Tracker.
func New(state State, updater Updater, builder Builder, emitter Emitter, opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MinSleep <= 0 {
		opts.MinSleep = DefaultMinSleep
	}
	if opts.PurgeProbability < 0 {
		opts.PurgeProbability = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Tracker{
		state:     state,
		updater:   updater,
		builder:   builder,
		emitter:   emitter,
		recorder:  opts.Recorder,
		interval:  opts.Interval,
		minSleep:  opts.MinSleep,
		purgeProb: opts.PurgeProbability,
		logger:    opts.Logger.Named("tracker"),
		clock:     opts.Clock,
		rand:      opts.Rand,
	}
}

// Run ticks until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("tracker started",
		zap.Duration("interval", t.interval),
		zap.Float64("purge_probability", t.purgeProb),
	)

	for {
		start := time.Now()
		t.Tick(ctx)

		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopped")
			return nil
		case <-time.After(t.SleepFor(time.Since(start))):
		}
	}
}

// SleepFor returns the pause after a tick that took elapsed.
func (t *Tracker) SleepFor(elapsed time.Duration) time.Duration {
	return max(t.minSleep, t.interval-elapsed)
}

// Tick runs one iteration and returns the number of updated tokens.
func (t *Tracker) Tick(ctx context.Context) int {
	start := t.clock()

	if t.purgeProb > 0 && t.rand() < t.purgeProb {
		t.purge(start)
	}

	updated := t.updater.UpdateAll(ctx)
	if updated > 0 && ctx.Err() == nil {
		t.emitter.Emit(t.builder.Build())
	}

	st := t.state.Stats()
	observability.UpdateRegistrySizes(st.Active, st.Pending, st.Points)
	observability.RecordTick(updated, t.clock().Sub(start).Seconds(), t.clock().Unix())

	t.logger.Debug("tick",
		zap.Int("updated", updated),
		zap.Int("active", st.Active),
		zap.Int("pending", st.Pending),
	)
	return updated
}

func (t *Tracker) purge(now time.Time) {
	res := t.state.PurgeExpired(now)
	observability.RecordPurge(res.Points)

	for _, id := range res.Expired {
		e := domain.NewLifecycleEvent(id, domain.LifecycleExpired, 0, now)
		observability.RecordLifecycle(e.Kind.String())
		if t.recorder != nil {
			t.recorder.Record(e)
		}
	}

	if res.Points > 0 {
		t.logger.Debug("history purged", zap.Int("points", res.Points), zap.Int("expired", len(res.Expired)))
	}
}
