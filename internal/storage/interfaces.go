package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"solana-price-tracker/internal/domain"
)

// LifecycleStore provides access to token_lifecycle storage.
type LifecycleStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on duplicate event_id.
	InsertBulk(ctx context.Context, events []*domain.LifecycleEvent) error

	// GetByToken retrieves all events of a token, ordered by occurred_at ASC.
	GetByToken(ctx context.Context, id domain.TokenID) ([]*domain.LifecycleEvent, error)

	// GetByTimeRange retrieves events that occurred within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.LifecycleEvent, error)
}

// SnapshotArchive provides access to price_snapshots storage.
type SnapshotArchive interface {
	// InsertSnapshot stores every token row of one tick. Returns ErrDuplicateKey if the tick exists.
	InsertSnapshot(ctx context.Context, s *domain.Snapshot) error

	// GetByTick retrieves a stored tick with tokens ordered by id. Returns ErrNotFound if not exists.
	GetByTick(ctx context.Context, tickID uuid.UUID) (*domain.Snapshot, error)

	// GetTokenPrices retrieves archived prices of a token within [start, end], ordered by time ASC.
	GetTokenPrices(ctx context.Context, id domain.TokenID, start, end time.Time) ([]domain.PricePoint, error)
}
