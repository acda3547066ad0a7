package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/storage"
)

// LifecycleStore is an in-memory implementation of storage.LifecycleStore.
type LifecycleStore struct {
	mu     sync.RWMutex
	events []*domain.LifecycleEvent
	ids    map[uuid.UUID]struct{}
}

// NewLifecycleStore creates a new in-memory lifecycle store.
func NewLifecycleStore() *LifecycleStore {
	return &LifecycleStore{
		ids: make(map[uuid.UUID]struct{}),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on duplicate event_id.
func (s *LifecycleStore) InsertBulk(_ context.Context, events []*domain.LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := storage.ValidateEvent(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[uuid.UUID]struct{}, len(events))
	for _, e := range events {
		if _, exists := s.ids[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[e.EventID] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.events = append(s.events, &eventCopy)
		s.ids[e.EventID] = struct{}{}
	}
	return nil
}

// GetByToken retrieves all events of a token, ordered by occurred_at ASC.
func (s *LifecycleStore) GetByToken(_ context.Context, id domain.TokenID) ([]*domain.LifecycleEvent, error) {
	return s.filter(func(e *domain.LifecycleEvent) bool { return e.TokenID == id }), nil
}

// GetByTimeRange retrieves events that occurred within [start, end] (inclusive).
func (s *LifecycleStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.LifecycleEvent, error) {
	return s.filter(func(e *domain.LifecycleEvent) bool {
		return !e.OccurredAt.Before(start) && !e.OccurredAt.After(end)
	}), nil
}

func (s *LifecycleStore) filter(keep func(*domain.LifecycleEvent) bool) []*domain.LifecycleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LifecycleEvent
	for _, e := range s.events {
		if keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result
}

var _ storage.LifecycleStore = (*LifecycleStore)(nil)
