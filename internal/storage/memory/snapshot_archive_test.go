package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/storage"
)

func snapshotAt(at time.Time, prices map[domain.TokenID]float64) *domain.Snapshot {
	s := &domain.Snapshot{TickID: uuid.New(), Time: at}
	for id, p := range prices {
		s.Tokens = append(s.Tokens, domain.TokenSnapshot{
			ID:      id,
			Price:   p,
			Changes: []domain.Change{{Horizon: domain.DefaultHorizons[0], Percent: 1, Available: true}},
			Time:    at,
		})
	}
	return s
}

func TestSnapshotArchive_InsertAndGetByTick(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	snap := snapshotAt(t0, map[domain.TokenID]float64{"MintB": 2, "MintA": 1})
	require.NoError(t, archive.InsertSnapshot(ctx, snap))

	got, err := archive.GetByTick(ctx, snap.TickID)
	require.NoError(t, err)
	require.Len(t, got.Tokens, 2)
	assert.Equal(t, domain.TokenID("MintA"), got.Tokens[0].ID)
	assert.Equal(t, domain.TokenID("MintB"), got.Tokens[1].ID)

	assert.ErrorIs(t, archive.InsertSnapshot(ctx, snap), storage.ErrDuplicateKey)

	_, err = archive.GetByTick(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, archive.InsertSnapshot(ctx, &domain.Snapshot{}), storage.ErrInvalidInput)
}

func TestSnapshotArchive_GetTokenPrices(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		at := t0.Add(time.Duration(i) * 3 * time.Second)
		require.NoError(t, archive.InsertSnapshot(ctx, snapshotAt(at, map[domain.TokenID]float64{"MintA": float64(i)})))
	}

	points, err := archive.GetTokenPrices(ctx, "MintA", t0.Add(3*time.Second), t0.Add(6*time.Second))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1.0, points[0].Price)
	assert.Equal(t, 2.0, points[1].Price)
}

func TestSnapshotArchive_StoresCopy(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	snap := snapshotAt(t0, map[domain.TokenID]float64{"MintA": 1})
	require.NoError(t, archive.InsertSnapshot(ctx, snap))

	snap.Tokens[0].Price = 99
	snap.Tokens[0].Changes[0].Percent = 99

	got, err := archive.GetByTick(ctx, snap.TickID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Tokens[0].Price)
	assert.Equal(t, 1.0, got.Tokens[0].Changes[0].Percent)
}
