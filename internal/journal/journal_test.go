package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/storage/memory"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type countingStore struct {
	mu      sync.Mutex
	batches [][]*domain.LifecycleEvent
	err     error
}

func (s *countingStore) InsertBulk(_ context.Context, events []*domain.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]*domain.LifecycleEvent(nil), events...))
	return nil
}

func (s *countingStore) GetByToken(context.Context, domain.TokenID) ([]*domain.LifecycleEvent, error) {
	return nil, nil
}

func (s *countingStore) GetByTimeRange(context.Context, time.Time, time.Time) ([]*domain.LifecycleEvent, error) {
	return nil, nil
}

func (s *countingStore) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.batches))
	for i, b := range s.batches {
		out[i] = len(b)
	}
	return out
}

func TestJournal_FlushesOnCancel(t *testing.T) {
	store := memory.NewLifecycleStore()
	j := New(store, Options{FlushInterval: time.Hour})

	j.Record(domain.NewLifecycleEvent("MintA", domain.LifecycleAdmitted, 0, t0))
	j.Record(domain.NewLifecycleEvent("MintA", domain.LifecycleEvicted, 0, t0.Add(time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	got, err := store.GetByToken(context.Background(), "MintA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.LifecycleAdmitted, got[0].Kind)
}

func TestJournal_BatchSize(t *testing.T) {
	store := &countingStore{}
	j := New(store, Options{BatchSize: 3, FlushInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	for i := 0; i < 7; i++ {
		j.Record(domain.NewLifecycleEvent("MintA", domain.LifecycleAdmitted, 0, t0))
	}

	require.Eventually(t, func() bool { return len(store.sizes()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int{3, 3, 1}, store.sizes())
}

func TestJournal_FlushInterval(t *testing.T) {
	store := &countingStore{}
	j := New(store, Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go j.Run(ctx)

	j.Record(domain.NewLifecycleEvent("MintA", domain.LifecycleDropped, 7, t0))

	require.Eventually(t, func() bool {
		s := store.sizes()
		return len(s) == 1 && s[0] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestJournal_RecordNeverBlocks(t *testing.T) {
	j := New(&countingStore{}, Options{Buffer: 2})

	start := time.Now()
	for i := 0; i < 10; i++ {
		j.Record(domain.NewLifecycleEvent("MintA", domain.LifecycleAdmitted, 0, t0))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Len(t, j.events, 2)
}

func TestJournal_WriteErrorIsSwallowed(t *testing.T) {
	store := &countingStore{err: errors.New("db down")}
	j := New(store, Options{FlushInterval: time.Hour})

	j.Record(domain.NewLifecycleEvent("MintA", domain.LifecycleAdmitted, 0, t0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, j.Run(ctx))
	assert.Empty(t, store.sizes())
}
