package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/storage"
)

// LifecycleStore implements storage.LifecycleStore using PostgreSQL.
type LifecycleStore struct {
	pool *Pool
}

// NewLifecycleStore creates a new LifecycleStore.
func NewLifecycleStore(pool *Pool) *LifecycleStore {
	return &LifecycleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LifecycleStore = (*LifecycleStore)(nil)

const insertLifecycleQuery = `
	INSERT INTO token_lifecycle (
		event_id, token_id, kind, retries, occurred_at
	) VALUES ($1, $2, $3, $4, $5)
`

// InsertBulk adds multiple events atomically. Fails entire batch on duplicate event_id.
func (s *LifecycleStore) InsertBulk(ctx context.Context, events []*domain.LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := storage.ValidateEvent(e); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx, insertLifecycleQuery,
			e.EventID,
			string(e.TokenID),
			string(e.Kind),
			e.Retries,
			e.OccurredAt.UTC(),
		)
		if err != nil {
			switch sqlState(err) {
			case codeUniqueViolation:
				return storage.ErrDuplicateKey
			case codeCheckViolation:
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert lifecycle event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByToken retrieves all events of a token, ordered by occurred_at ASC.
func (s *LifecycleStore) GetByToken(ctx context.Context, id domain.TokenID) ([]*domain.LifecycleEvent, error) {
	query := `
		SELECT event_id, token_id, kind, retries, occurred_at
		FROM token_lifecycle
		WHERE token_id = $1
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("query lifecycle by token: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events that occurred within [start, end] (inclusive).
func (s *LifecycleStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.LifecycleEvent, error) {
	query := `
		SELECT event_id, token_id, kind, retries, occurred_at
		FROM token_lifecycle
		WHERE occurred_at >= $1 AND occurred_at <= $2
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query lifecycle by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]*domain.LifecycleEvent, error) {
	var result []*domain.LifecycleEvent
	for rows.Next() {
		var (
			e       domain.LifecycleEvent
			tokenID string
			kind    string
		)
		if err := rows.Scan(&e.EventID, &tokenID, &kind, &e.Retries, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan lifecycle event: %w", err)
		}
		e.TokenID = domain.TokenID(tokenID)
		e.Kind = domain.LifecycleKind(kind)
		e.OccurredAt = e.OccurredAt.UTC()
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lifecycle events: %w", err)
	}
	return result, nil
}
