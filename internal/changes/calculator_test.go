package changes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/registry"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// stubHistory serves fixed answers so horizon handling can be checked in isolation.
type stubHistory struct {
	earliest time.Time
	has      bool
	price    func(target time.Time) (float64, bool)
}

func (s stubHistory) Earliest(domain.TokenID) (time.Time, bool) {
	return s.earliest, s.has
}

func (s stubHistory) Interpolate(_ domain.TokenID, target time.Time) (float64, bool) {
	return s.price(target)
}

func newRegistryWith(t *testing.T, points ...domain.PricePoint) *registry.Registry {
	t.Helper()
	r := registry.New(registry.Options{Capacity: 10, Retention: 24 * time.Hour, Clock: func() time.Time { return t0 }})
	require.True(t, r.Submit("A"))
	_, ok := r.NextPending()
	require.True(t, ok)
	_, err := r.Promote("A", points[0])
	require.NoError(t, err)
	for _, p := range points[1:] {
		require.NoError(t, r.Append("A", p))
	}
	return r
}

func TestCompute_PartialAvailability(t *testing.T) {
	// Points at -10s (100), -5s (200), 0s (300); now = t0.
	r := newRegistryWith(t,
		domain.PricePoint{Time: t0.Add(-10 * time.Second), Price: 100},
		domain.PricePoint{Time: t0.Add(-5 * time.Second), Price: 200},
		domain.PricePoint{Time: t0, Price: 300},
	)
	calc := NewCalculator(r, nil)

	changes := calc.Compute("A", 300, t0)
	require.Len(t, changes, len(domain.DefaultHorizons))

	byLabel := make(map[string]domain.Change)
	for _, c := range changes {
		byLabel[c.Horizon.Label] = c
	}

	// 2s back: interpolated 260 between (-5s,200) and (0,300).
	require.True(t, byLabel["2s"].Available)
	assert.InDelta(t, (300.0-260.0)/260.0*100, byLabel["2s"].Percent, 1e-9)

	require.True(t, byLabel["5s"].Available)
	assert.InDelta(t, 50.0, byLabel["5s"].Percent, 1e-9)

	require.True(t, byLabel["10s"].Available, "age equal to horizon is enough")
	assert.InDelta(t, 200.0, byLabel["10s"].Percent, 1e-9)

	for _, label := range []string{"30s", "1m", "2m", "5m", "10m"} {
		assert.False(t, byLabel[label].Available, label)
	}
}

func TestCompute_AvailabilityCheckedBeforeInterpolation(t *testing.T) {
	// One point 5s old: interpolation would clamp, but 10s of history is missing.
	r := newRegistryWith(t, domain.PricePoint{Time: t0.Add(-5 * time.Second), Price: 1.0})
	calc := NewCalculator(r, []domain.Horizon{
		{Label: "2s", Duration: 2 * time.Second},
		{Label: "10s", Duration: 10 * time.Second},
	})

	changes := calc.Compute("A", 1.5, t0)

	assert.True(t, changes[0].Available)
	assert.InDelta(t, 50.0, changes[0].Percent, 1e-9)
	assert.False(t, changes[1].Available)
}

func TestCompute_NoHistory(t *testing.T) {
	calc := NewCalculator(stubHistory{}, nil)

	for _, c := range calc.Compute("A", 1.0, t0) {
		assert.False(t, c.Available)
	}
}

func TestCompute_NonPositiveHistoricalPrice(t *testing.T) {
	calc := NewCalculator(stubHistory{
		earliest: t0.Add(-time.Hour),
		has:      true,
		price: func(target time.Time) (float64, bool) {
			if target.Before(t0.Add(-time.Minute)) {
				return 0, true
			}
			return 2.0, true
		},
	}, nil)

	changes := calc.Compute("A", 3.0, t0)
	for _, c := range changes {
		if c.Horizon.Duration <= time.Minute {
			assert.True(t, c.Available, c.Horizon.Label)
			assert.InDelta(t, 50.0, c.Percent, 1e-9)
		} else {
			assert.False(t, c.Available, c.Horizon.Label)
		}
	}
}

func TestCompute_SubnormalHistoricalPrice(t *testing.T) {
	calc := NewCalculator(stubHistory{
		earliest: t0.Add(-time.Hour),
		has:      true,
		price:    func(time.Time) (float64, bool) { return 1e-320, true },
	}, nil)

	changes := calc.Compute("A", 3.0, t0)
	require.NotEmpty(t, changes)
	for _, c := range changes {
		assert.False(t, c.Available, c.Horizon.Label)
		assert.Zero(t, c.Percent, c.Horizon.Label)
	}
}

func TestCompute_InterpolationMissing(t *testing.T) {
	calc := NewCalculator(stubHistory{
		earliest: t0.Add(-time.Hour),
		has:      true,
		price:    func(time.Time) (float64, bool) { return 0, false },
	}, nil)

	for _, c := range calc.Compute("A", 3.0, t0) {
		assert.False(t, c.Available)
	}
}

func TestPercent(t *testing.T) {
	assert.InDelta(t, 100.0, Percent(2, 1), 1e-9)
	assert.InDelta(t, -50.0, Percent(1, 2), 1e-9)
	assert.InDelta(t, 0.0, Percent(5, 5), 1e-9)
}
