// Package admission validates candidate tokens and promotes them into the active set.
package admission

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/jupiter"
	"solana-price-tracker/internal/observability"
	"solana-price-tracker/internal/workpool"
)

// DefaultPollInterval is how long the worker idles when no candidate is ready.
const DefaultPollInterval = 100 * time.Millisecond

// Registry is the admission state the controller drives.
type Registry interface {
	Submit(id domain.TokenID) bool
	NextPending() (domain.TokenID, bool)
	Promote(id domain.TokenID, p domain.PricePoint) (domain.TokenID, error)
	Fail(id domain.TokenID) (dropped bool, retries int)
}

// Validator performs the single-token price fetch that proves a token is tradable.
type Validator interface {
	FetchPrices(ctx context.Context, ids []domain.TokenID) jupiter.Result
}

// Recorder receives lifecycle events. Implementations must not block.
type Recorder interface {
	Record(e domain.LifecycleEvent)
}

// Options configures a Controller.
type Options struct {
	PollInterval time.Duration
	Recorder     Recorder
	Logger       *zap.Logger
	Clock        func() time.Time
}

// Controller owns candidate validation. Submit may be called from any goroutine.
type Controller struct {
	registry  Registry
	validator Validator
	pool      *workpool.Pool
	recorder  Recorder
	poll      time.Duration
	logger    *zap.Logger
	clock     func() time.Time
}

// NewController creates a Controller.
func NewController(reg Registry, validator Validator, pool *workpool.Pool, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		registry:  reg,
		validator: validator,
		pool:      pool,
		recorder:  opts.Recorder,
		poll:      opts.PollInterval,
		logger:    opts.Logger.Named("admission"),
		clock:     opts.Clock,
	}
}

// Submit queues id for validation. Already active or pending ids are ignored.
func (c *Controller) Submit(id domain.TokenID) bool {
	if !c.registry.Submit(id) {
		observability.RecordCandidate("duplicate")
		return false
	}
	observability.RecordCandidate("accepted")
	c.logger.Debug("candidate queued", zap.String("token", id.String()))
	return true
}

// Run dispatches ready candidates to the worker pool until ctx ends.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("admission worker started", zap.Duration("poll", c.poll))

	for {
		id, ok := c.registry.NextPending()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.poll):
			}
			continue
		}

		err := c.pool.Submit(ctx, func() { c.Validate(ctx, id) })
		if err != nil {
			if errors.Is(err, workpool.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Validate fetches the price of one pending candidate and promotes it on
// success or records the failed attempt.
func (c *Controller) Validate(ctx context.Context, id domain.TokenID) {
	res := c.validator.FetchPrices(ctx, []domain.TokenID{id})

	quote, found := res.Quote(id)
	if res.Outcome != jupiter.Success || !found || quote.Price <= 0 {
		c.fail(id, res)
		return
	}

	now := c.clock()
	evicted, err := c.registry.Promote(id, domain.PricePoint{Time: now, Price: quote.Price})
	if err != nil {
		c.logger.Warn("promote failed", zap.String("token", id.String()), zap.Error(err))
		c.fail(id, res)
		return
	}

	c.logger.Debug("token admitted", zap.String("token", id.String()), zap.Float64("price", quote.Price))
	c.emit(domain.NewLifecycleEvent(id, domain.LifecycleAdmitted, 0, now))

	if evicted != "" {
		c.logger.Info("token evicted for capacity", zap.String("token", evicted.String()), zap.String("admitted", id.String()))
		c.emit(domain.NewLifecycleEvent(evicted, domain.LifecycleEvicted, 0, now))
	}
}

func (c *Controller) fail(id domain.TokenID, res jupiter.Result) {
	observability.RecordValidationFailure()

	dropped, retries := c.registry.Fail(id)
	if !dropped {
		c.logger.Debug("validation failed, will retry",
			zap.String("token", id.String()),
			zap.Int("retries", retries),
			zap.Stringer("outcome", res.Outcome),
		)
		return
	}

	c.logger.Info("candidate dropped", zap.String("token", id.String()), zap.Int("retries", retries))
	c.emit(domain.NewLifecycleEvent(id, domain.LifecycleDropped, retries, c.clock()))
}

func (c *Controller) emit(e domain.LifecycleEvent) {
	observability.RecordLifecycle(e.Kind.String())
	if c.recorder != nil {
		c.recorder.Record(e)
	}
}
