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

// SnapshotArchive is an in-memory implementation of storage.SnapshotArchive.
type SnapshotArchive struct {
	mu    sync.RWMutex
	ticks map[uuid.UUID]*domain.Snapshot
	order []uuid.UUID // insertion order
}

// NewSnapshotArchive creates a new in-memory snapshot archive.
func NewSnapshotArchive() *SnapshotArchive {
	return &SnapshotArchive{
		ticks: make(map[uuid.UUID]*domain.Snapshot),
	}
}

// InsertSnapshot stores one tick. Returns ErrDuplicateKey if the tick exists.
func (a *SnapshotArchive) InsertSnapshot(_ context.Context, s *domain.Snapshot) error {
	if err := storage.ValidateSnapshot(s); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.ticks[s.TickID]; exists {
		return storage.ErrDuplicateKey
	}

	a.ticks[s.TickID] = copySnapshot(s)
	a.order = append(a.order, s.TickID)
	return nil
}

// GetByTick retrieves a stored tick with tokens ordered by id. Returns ErrNotFound if not exists.
func (a *SnapshotArchive) GetByTick(_ context.Context, tickID uuid.UUID) (*domain.Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, exists := a.ticks[tickID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := copySnapshot(s)
	sort.Slice(out.Tokens, func(i, j int) bool { return out.Tokens[i].ID < out.Tokens[j].ID })
	return out, nil
}

// GetTokenPrices retrieves archived prices of a token within [start, end], ordered by time ASC.
func (a *SnapshotArchive) GetTokenPrices(_ context.Context, id domain.TokenID, start, end time.Time) ([]domain.PricePoint, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var points []domain.PricePoint
	for _, tickID := range a.order {
		s := a.ticks[tickID]
		if s.Time.Before(start) || s.Time.After(end) {
			continue
		}
		for _, tok := range s.Tokens {
			if tok.ID == id {
				points = append(points, domain.PricePoint{Time: s.Time, Price: tok.Price})
			}
		}
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

func copySnapshot(s *domain.Snapshot) *domain.Snapshot {
	out := &domain.Snapshot{TickID: s.TickID, Time: s.Time, Tokens: make([]domain.TokenSnapshot, len(s.Tokens))}
	for i, tok := range s.Tokens {
		tok.Changes = append([]domain.Change(nil), tok.Changes...)
		out.Tokens[i] = tok
	}
	return out
}

var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)
