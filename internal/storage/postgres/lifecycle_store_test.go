package postgres

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

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func event(id domain.TokenID, kind domain.LifecycleKind, retries int, at time.Time) *domain.LifecycleEvent {
	e := domain.NewLifecycleEvent(id, kind, retries, at)
	return &e
}

func TestLifecycleStore_InsertBulkAndGetByToken(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLifecycleStore(pool)

	events := []*domain.LifecycleEvent{
		event("MintA", domain.LifecycleEvicted, 0, t0.Add(time.Minute)),
		event("MintA", domain.LifecycleAdmitted, 0, t0),
		event("MintB", domain.LifecycleDropped, 7, t0.Add(2*time.Second)),
	}
	require.NoError(t, store.InsertBulk(ctx, events))

	got, err := store.GetByToken(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.LifecycleAdmitted, got[0].Kind)
	assert.Equal(t, domain.LifecycleEvicted, got[1].Kind)
	assert.True(t, t0.Equal(got[0].OccurredAt))
	assert.Equal(t, events[1].EventID, got[0].EventID)

	dropped, err := store.GetByToken(ctx, "MintB")
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, 7, dropped[0].Retries)

	none, err := store.GetByToken(ctx, "MintC")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLifecycleStore_InsertBulk_DuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLifecycleStore(pool)

	first := event("MintA", domain.LifecycleAdmitted, 0, t0)
	require.NoError(t, store.InsertBulk(ctx, []*domain.LifecycleEvent{first}))

	fresh := event("MintB", domain.LifecycleAdmitted, 0, t0)
	err := store.InsertBulk(ctx, []*domain.LifecycleEvent{fresh, first})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByToken(ctx, "MintB")
	require.NoError(t, err)
	assert.Empty(t, got, "batch must be rolled back")
}

func TestLifecycleStore_InsertBulk_Invalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLifecycleStore(pool)

	bad := &domain.LifecycleEvent{EventID: uuid.New(), TokenID: "MintA", Kind: "renamed", OccurredAt: t0}
	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.LifecycleEvent{bad}), storage.ErrInvalidInput)

	assert.NoError(t, store.InsertBulk(ctx, nil))
}

func TestLifecycleStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLifecycleStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.LifecycleEvent{
		event("MintA", domain.LifecycleAdmitted, 0, t0),
		event("MintB", domain.LifecycleAdmitted, 0, t0.Add(10*time.Second)),
		event("MintC", domain.LifecycleAdmitted, 0, t0.Add(20*time.Second)),
	}))

	got, err := store.GetByTimeRange(ctx, t0.Add(10*time.Second), t0.Add(20*time.Second))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.TokenID("MintB"), got[0].TokenID)
	assert.Equal(t, domain.TokenID("MintC"), got[1].TokenID)
}
