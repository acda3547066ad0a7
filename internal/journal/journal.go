// Package journal persists token lifecycle events in the background.
package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/observability"
	"solana-price-tracker/internal/storage"
)

const (
	DefaultBuffer        = 1024
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second

	flushTimeout = 5 * time.Second
)

// Options configures a Journal.
type Options struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
	Logger        *zap.Logger
}

// Journal is a best-effort, non-blocking writer of lifecycle events.
// Record drops events when the buffer is full; Run batches the rest into the store.
type Journal struct {
	store     storage.LifecycleStore
	events    chan domain.LifecycleEvent
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a Journal writing into store.
func New(store storage.LifecycleStore, opts Options) *Journal {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Journal{
		store:     store,
		events:    make(chan domain.LifecycleEvent, opts.Buffer),
		batchSize: opts.BatchSize,
		interval:  opts.FlushInterval,
		logger:    opts.Logger.Named("journal"),
	}
}

// Record enqueues e without blocking.
func (j *Journal) Record(e domain.LifecycleEvent) {
	select {
	case j.events <- e:
	default:
		observability.RecordJournalDropped()
		j.logger.Warn("journal buffer full, event dropped",
			zap.String("token", e.TokenID.String()),
			zap.String("kind", e.Kind.String()),
		)
	}
}

// Run writes batches until ctx is cancelled, then flushes what is buffered.
func (j *Journal) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	batch := make([]*domain.LifecycleEvent, 0, j.batchSize)
	for {
		select {
		case <-ctx.Done():
			batch = j.drain(batch)
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			j.flush(flushCtx, batch)
			cancel()
			return nil
		case e := <-j.events:
			batch = append(batch, &e)
			if len(batch) >= j.batchSize {
				j.flush(ctx, batch)
				batch = batch[:0:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(ctx, batch)
				batch = batch[:0:0]
			}
		}
	}
}

func (j *Journal) drain(batch []*domain.LifecycleEvent) []*domain.LifecycleEvent {
	for {
		select {
		case e := <-j.events:
			batch = append(batch, &e)
		default:
			return batch
		}
	}
}

func (j *Journal) flush(ctx context.Context, batch []*domain.LifecycleEvent) {
	if len(batch) == 0 {
		return
	}
	if err := j.store.InsertBulk(ctx, batch); err != nil {
		observability.RecordJournalWriteError()
		j.logger.Error("write lifecycle events", zap.Int("events", len(batch)), zap.Error(err))
		return
	}
	j.logger.Debug("lifecycle events written", zap.Int("events", len(batch)))
}
