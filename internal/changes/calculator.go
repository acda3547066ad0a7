// Package changes computes percentage price changes over fixed lookback horizons.
package changes

import (
	"math"
	"time"

	"solana-price-tracker/internal/domain"
)

// HistoryReader provides the history lookups needed for change computation.
type HistoryReader interface {
	// Earliest returns the time of the oldest retained point.
	Earliest(id domain.TokenID) (time.Time, bool)

	// Interpolate returns the price at target; ok is false without history.
	Interpolate(id domain.TokenID, target time.Time) (float64, bool)
}

// Calculator derives per-horizon changes from token history.
type Calculator struct {
	history  HistoryReader
	horizons []domain.Horizon
}

// NewCalculator creates a Calculator. Empty horizons fall back to domain.DefaultHorizons.
func NewCalculator(history HistoryReader, horizons []domain.Horizon) *Calculator {
	if len(horizons) == 0 {
		horizons = domain.DefaultHorizons
	}
	return &Calculator{history: history, horizons: horizons}
}

// Horizons returns the configured horizons in report order.
func (c *Calculator) Horizons() []domain.Horizon {
	return c.horizons
}

// Compute returns one Change per horizon, in horizon order.
// A horizon is unavailable if history does not reach back far enough
// (no backward extrapolation), if the historical price is not positive, or if
// the resulting percentage overflows to a non-finite value.
func (c *Calculator) Compute(id domain.TokenID, current float64, now time.Time) []domain.Change {
	out := make([]domain.Change, len(c.horizons))
	for i, h := range c.horizons {
		out[i] = domain.Change{Horizon: h}
	}

	earliest, ok := c.history.Earliest(id)
	if !ok {
		return out
	}
	age := now.Sub(earliest)

	for i, h := range c.horizons {
		if age < h.Duration {
			continue
		}
		hist, ok := c.history.Interpolate(id, now.Add(-h.Duration))
		if !ok || hist <= 0 {
			continue
		}
		pct := Percent(current, hist)
		if math.IsInf(pct, 0) || math.IsNaN(pct) {
			continue
		}
		out[i].Percent = pct
		out[i].Available = true
	}
	return out
}

// Percent returns the change from past to current in percent. past must be positive.
func Percent(current, past float64) float64 {
	return (current - past) / past * 100
}
