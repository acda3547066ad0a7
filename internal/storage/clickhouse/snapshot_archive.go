package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/storage"
)

// SnapshotArchive implements storage.SnapshotArchive using ClickHouse.
// Each token of a tick becomes one row of price_snapshots.
type SnapshotArchive struct {
	conn *Conn
}

// NewSnapshotArchive creates a new SnapshotArchive.
func NewSnapshotArchive(conn *Conn) *SnapshotArchive {
	return &SnapshotArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)

// InsertSnapshot stores every token row of one tick. A tick without tokens writes nothing.
func (a *SnapshotArchive) InsertSnapshot(ctx context.Context, s *domain.Snapshot) error {
	if err := storage.ValidateSnapshot(s); err != nil {
		return err
	}
	if len(s.Tokens) == 0 {
		return nil
	}

	// MergeTree does not enforce uniqueness
	exists, err := a.exists(ctx, s.TickID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO price_snapshots (
			tick_id, tick_time, token_id, price, horizons, changes
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tok := range s.Tokens {
		horizons := make([]string, len(tok.Changes))
		changes := make([]*float64, len(tok.Changes))
		for i, c := range tok.Changes {
			horizons[i] = c.Horizon.Label
			if c.Available {
				v := c.Percent
				changes[i] = &v
			}
		}

		err = batch.Append(s.TickID, s.Time.UTC(), string(tok.ID), tok.Price, horizons, changes)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTick retrieves a stored tick with tokens ordered by id. Returns ErrNotFound if not exists.
func (a *SnapshotArchive) GetByTick(ctx context.Context, tickID uuid.UUID) (*domain.Snapshot, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT tick_time, token_id, price, horizons, changes
		FROM price_snapshots
		WHERE tick_id = ?
		ORDER BY token_id ASC
	`, tickID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{TickID: tickID}
	for rows.Next() {
		var (
			tickTime time.Time
			tokenID  string
			price    float64
			horizons []string
			changes  []*float64
		)
		if err := rows.Scan(&tickTime, &tokenID, &price, &horizons, &changes); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		tok := domain.TokenSnapshot{
			ID:      domain.TokenID(tokenID),
			Price:   price,
			Changes: make([]domain.Change, len(horizons)),
			Time:    tickTime.UTC(),
		}
		for i, label := range horizons {
			d, err := time.ParseDuration(label)
			if err != nil {
				return nil, fmt.Errorf("parse stored horizon %q: %w", label, err)
			}
			c := domain.Change{Horizon: domain.Horizon{Label: label, Duration: d}}
			if i < len(changes) && changes[i] != nil {
				c.Percent = *changes[i]
				c.Available = true
			}
			tok.Changes[i] = c
		}

		snap.Time = tok.Time
		snap.Tokens = append(snap.Tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	if len(snap.Tokens) == 0 {
		return nil, storage.ErrNotFound
	}
	return snap, nil
}

// GetTokenPrices retrieves archived prices of a token within [start, end], ordered by time ASC.
func (a *SnapshotArchive) GetTokenPrices(ctx context.Context, id domain.TokenID, start, end time.Time) ([]domain.PricePoint, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT tick_time, price
		FROM price_snapshots
		WHERE token_id = ? AND tick_time >= ? AND tick_time <= ?
		ORDER BY tick_time ASC
	`, string(id), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query token prices: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("scan token price: %w", err)
		}
		p.Time = p.Time.UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token prices: %w", err)
	}
	return points, nil
}

func (a *SnapshotArchive) exists(ctx context.Context, tickID uuid.UUID) (bool, error) {
	var count uint64
	err := a.conn.QueryRow(ctx, `
		SELECT count() FROM price_snapshots WHERE tick_id = ?
	`, tickID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
