// Package fetcher refreshes prices of all active tokens in parallel batches.
package fetcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/jupiter"
	"solana-price-tracker/internal/workpool"
)

// DefaultBatchSize is the per-call id limit of the price API.
const DefaultBatchSize = 99

// PriceFetcher fetches one batch of prices.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, ids []domain.TokenID) jupiter.Result
}

// Store is the token state the scheduler reads from and merges into.
type Store interface {
	ActiveIDs() []domain.TokenID
	AppendQuotes(quotes []domain.Quote, at time.Time) int
}

// Options configures a Scheduler.
type Options struct {
	BatchSize int
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Scheduler batches the active set and dispatches batches through a worker pool.
type Scheduler struct {
	store     Store
	fetcher   PriceFetcher
	pool      *workpool.Pool
	batchSize int
	logger    *zap.Logger
	clock     func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, fetcher PriceFetcher, pool *workpool.Pool, opts Options) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Scheduler{
		store:     store,
		fetcher:   fetcher,
		pool:      pool,
		batchSize: opts.BatchSize,
		logger:    opts.Logger.Named("fetcher"),
		clock:     opts.Clock,
	}
}

// UpdateAll fetches current prices for a snapshot of the active set and
// appends every strictly positive price. Failed batches leave their tokens
// untouched. Returns the number of tokens updated.
func (s *Scheduler) UpdateAll(ctx context.Context) int {
	ids := s.store.ActiveIDs()
	if len(ids) == 0 {
		return 0
	}

	var (
		updated atomic.Int64
		failed  atomic.Int64
		wg      sync.WaitGroup
		batches = Partition(ids, s.batchSize)
	)

	for _, batch := range batches {
		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			n, ok := s.fetchBatch(ctx, batch)
			if !ok {
				failed.Add(1)
			}
			updated.Add(int64(n))
		})
		if err != nil {
			wg.Done()
			s.logger.Debug("batch dispatch stopped", zap.Error(err))
			break
		}
	}
	wg.Wait()

	if f := failed.Load(); f > 0 {
		s.logger.Debug("batches failed", zap.Int64("failed", f), zap.Int("batches", len(batches)))
	}
	return int(updated.Load())
}

// fetchBatch fetches one batch and merges it. ok is false on a soft failure.
func (s *Scheduler) fetchBatch(ctx context.Context, batch []domain.TokenID) (int, bool) {
	res := s.fetcher.FetchPrices(ctx, batch)
	if res.Outcome != jupiter.Success {
		return 0, false
	}
	return s.store.AppendQuotes(onlyRequested(res.Quotes, batch), s.clock()), true
}

// onlyRequested keeps quotes whose id belongs to batch.
func onlyRequested(quotes []domain.Quote, batch []domain.TokenID) []domain.Quote {
	want := make(map[domain.TokenID]struct{}, len(batch))
	for _, id := range batch {
		want[id] = struct{}{}
	}
	out := quotes[:0:0]
	for _, q := range quotes {
		if _, ok := want[q.ID]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Partition splits ids into consecutive batches of at most size ids.
func Partition(ids []domain.TokenID, size int) [][]domain.TokenID {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]domain.TokenID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
