// Package registry owns the tracked token state: the active set, the pending
// admission queue and the per-token price history, all behind one lock.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/lookup"
)

// Default configuration values.
const (
	DefaultCapacity   = 1500
	DefaultRetention  = 24 * time.Hour
	DefaultMaxRetries = 6
	DefaultRetryDelay = time.Second
)

// Errors returned by registry operations.
var (
	ErrOutOfOrder = errors.New("price point older than last recorded point")
	ErrNotActive  = errors.New("token is not active")
	ErrBadPrice   = errors.New("price must be positive")
)

// Options configures a Registry.
type Options struct {
	Capacity   int           // max active tokens
	Retention  time.Duration // history kept per token
	MaxRetries int           // failed validations tolerated before a candidate is dropped
	RetryDelay time.Duration // min wait before a failed candidate is retried
	Clock      func() time.Time
}

type pendingEntry struct {
	retries   int
	notBefore time.Time
	queued    bool
}

// Registry is the single owner of tracked token state. Safe for concurrent use.
type Registry struct {
	opts Options

	mu      sync.RWMutex
	active  map[domain.TokenID]struct{}
	pending map[domain.TokenID]*pendingEntry
	queue   []domain.TokenID
	series  map[domain.TokenID]*series
}

// New creates a Registry. Non-positive Capacity, Retention and MaxRetries fall back to defaults.
func New(opts Options) *Registry {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Registry{
		opts:    opts,
		active:  make(map[domain.TokenID]struct{}),
		pending: make(map[domain.TokenID]*pendingEntry),
		series:  make(map[domain.TokenID]*series),
	}
}

// Submit adds id to the pending queue unless it is already active or pending.
// Returns true if the candidate was accepted.
func (r *Registry) Submit(id domain.TokenID) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[id]; ok {
		return false
	}
	if _, ok := r.pending[id]; ok {
		return false
	}

	r.pending[id] = &pendingEntry{queued: true}
	r.queue = append(r.queue, id)
	return true
}

// NextPending removes and returns the first queued candidate whose retry delay has elapsed.
// The candidate stays pending until Promote or Fail is called for it.
func (r *Registry) NextPending() (domain.TokenID, bool) {
	now := r.opts.Clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, id := range r.queue {
		entry, ok := r.pending[id]
		if !ok {
			continue
		}
		if entry.notBefore.After(now) {
			continue
		}
		r.queue = append(r.queue[:i:i], r.queue[i+1:]...)
		entry.queued = false
		return id, true
	}
	r.compactQueue()
	return "", false
}

// compactQueue drops ids that are no longer pending. Caller holds the lock.
func (r *Registry) compactQueue() {
	live := r.queue[:0]
	for _, id := range r.queue {
		if e, ok := r.pending[id]; ok && e.queued {
			live = append(live, id)
		}
	}
	r.queue = live
}

// Promote moves a validated candidate into the active set with its first price point.
// If the active set grows beyond capacity, the token with the oldest last update
// (other than id) is evicted and returned.
func (r *Registry) Promote(id domain.TokenID, p domain.PricePoint) (evicted domain.TokenID, err error) {
	if p.Price <= 0 {
		return "", ErrBadPrice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, id)

	if _, ok := r.active[id]; ok {
		return "", r.appendLocked(id, p)
	}

	r.active[id] = struct{}{}
	r.series[id] = newSeries(p)

	if len(r.active) > r.opts.Capacity {
		evicted = r.stalestLocked(id)
		if evicted != "" {
			delete(r.active, evicted)
			delete(r.series, evicted)
		}
	}
	return evicted, nil
}

// stalestLocked returns the active token with the smallest last-update time, skipping keep.
// Ties resolve to the lexically smallest id.
func (r *Registry) stalestLocked(keep domain.TokenID) domain.TokenID {
	var (
		victim domain.TokenID
		oldest time.Time
		found  bool
	)
	for id := range r.active {
		if id == keep {
			continue
		}
		var last time.Time
		if s, ok := r.series[id]; ok && s.len() > 0 {
			last = s.last().Time
		}
		if !found || last.Before(oldest) || (last.Equal(oldest) && id < victim) {
			victim, oldest, found = id, last, true
		}
	}
	return victim
}

// Fail records a failed validation of a pending candidate.
// The candidate is re-queued after RetryDelay, or dropped once its failures exceed MaxRetries.
func (r *Registry) Fail(id domain.TokenID) (dropped bool, retries int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.pending[id]
	if !ok {
		return false, 0
	}

	entry.retries++
	if entry.retries > r.opts.MaxRetries {
		delete(r.pending, id)
		return true, entry.retries
	}

	entry.notBefore = r.opts.Clock().Add(r.opts.RetryDelay)
	if !entry.queued {
		entry.queued = true
		r.queue = append(r.queue, id)
	}
	return false, entry.retries
}

// Append adds a price point to an active token's history.
// Returns ErrNotActive for tokens outside the active set and ErrOutOfOrder
// if p is older than the last recorded point.
func (r *Registry) Append(id domain.TokenID, p domain.PricePoint) error {
	if p.Price <= 0 {
		return ErrBadPrice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(id, p)
}

func (r *Registry) appendLocked(id domain.TokenID, p domain.PricePoint) error {
	if _, ok := r.active[id]; !ok {
		return ErrNotActive
	}

	s, ok := r.series[id]
	if !ok || s.len() == 0 {
		r.series[id] = newSeries(p)
		return nil
	}
	if p.Time.Before(s.last().Time) {
		return ErrOutOfOrder
	}
	s.append(p)
	return nil
}

// AppendQuotes records one fetched batch at time at, under a single lock acquisition.
// Quotes with non-positive prices or for inactive tokens are skipped.
// Returns the number of tokens updated.
func (r *Registry) AppendQuotes(quotes []domain.Quote, at time.Time) int {
	if len(quotes) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, q := range quotes {
		if q.Price <= 0 {
			continue
		}
		if err := r.appendLocked(q.ID, domain.PricePoint{Time: at, Price: q.Price}); err != nil {
			continue
		}
		updated++
	}
	return updated
}

// Interpolate returns the interpolated price of id at target.
// ok is false if the token has no history.
func (r *Registry) Interpolate(id domain.TokenID, target time.Time) (price float64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.series[id]
	if !exists {
		return 0, false
	}
	price, err := lookup.Interpolate(target, s.view())
	if err != nil {
		return 0, false
	}
	return price, true
}

// Earliest returns the time of the oldest retained point of id.
func (r *Registry) Earliest(id domain.TokenID) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[id]
	if !ok || s.len() == 0 {
		return time.Time{}, false
	}
	return s.first().Time, true
}

// Latest returns the most recent point of id.
func (r *Registry) Latest(id domain.TokenID) (domain.PricePoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[id]
	if !ok || s.len() == 0 {
		return domain.PricePoint{}, false
	}
	return s.last(), true
}

// History returns a copy of the retained points of id.
func (r *Registry) History(id domain.TokenID) []domain.PricePoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[id]
	if !ok {
		return nil
	}
	out := make([]domain.PricePoint, s.len())
	copy(out, s.view())
	return out
}

// PurgeResult summarizes one retention pass.
type PurgeResult struct {
	Points  int              // points removed
	Expired []domain.TokenID // active tokens whose history emptied; they stay active
}

// PurgeExpired drops points older than the retention horizon relative to now.
// Emptied series are deleted. Active tokens keep their slot and are re-seeded
// by the next fetched quote; until then they rank as the stalest candidates.
func (r *Registry) PurgeExpired(now time.Time) PurgeResult {
	cutoff := now.Add(-r.opts.Retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	var res PurgeResult
	for id, s := range r.series {
		res.Points += s.dropBefore(cutoff)
		if s.len() > 0 {
			continue
		}
		delete(r.series, id)
		if _, ok := r.active[id]; ok {
			res.Expired = append(res.Expired, id)
		}
	}
	sort.Slice(res.Expired, func(i, j int) bool { return res.Expired[i] < res.Expired[j] })
	return res
}

// ActiveIDs returns the active set sorted by id.
func (r *Registry) ActiveIDs() []domain.TokenID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]domain.TokenID, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsActive reports whether id is in the active set.
func (r *Registry) IsActive(id domain.TokenID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.active[id]
	return ok
}

// IsPending reports whether id is awaiting validation.
func (r *Registry) IsPending(id domain.TokenID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.pending[id]
	return ok
}

// Stats is a point-in-time count of registry contents.
type Stats struct {
	Active  int `json:"active"`
	Pending int `json:"pending"`
	Points  int `json:"points"`
}

// Stats returns current counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{Active: len(r.active), Pending: len(r.pending)}
	for _, s := range r.series {
		st.Points += s.len()
	}
	return st
}
