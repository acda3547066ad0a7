package lookup

import (
	"errors"
	"sort"
	"time"

	"solana-price-tracker/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData = errors.New("no price data available")
)

// Interpolate returns the price at target, linearly interpolated between the
// bracketing points of an ordered series.
// Targets at or before the first point return the first price; targets at or
// after the last point return the last price. A target that lands on a stored
// point returns that point's price unchanged.
// Returns ErrNoPriceData if the series is empty.
func Interpolate(target time.Time, points []domain.PricePoint) (float64, error) {
	n := len(points)
	if n == 0 {
		return 0, ErrNoPriceData
	}

	// First index whose time is not before target.
	pos := sort.Search(n, func(i int) bool {
		return !points[i].Time.Before(target)
	})

	if pos == 0 {
		return points[0].Price, nil
	}
	if pos == n {
		return points[n-1].Price, nil
	}
	if points[pos].Time.Equal(target) {
		return points[pos].Price, nil
	}

	prev, next := points[pos-1], points[pos]
	span := next.Time.Sub(prev.Time)
	if span == 0 {
		return prev.Price, nil
	}

	factor := float64(target.Sub(prev.Time)) / float64(span)
	return prev.Price + factor*(next.Price-prev.Price), nil
}
