package domain

import (
	"fmt"
	"time"
)

// Horizon is a lookback window for percentage change computation.
type Horizon struct {
	Label    string        // e.g. "2s", "1m"; snapshot field is "t_" + Label
	Duration time.Duration // lookback from now
}

// FieldName returns the snapshot record field name for the horizon.
func (h Horizon) FieldName() string {
	return "t_" + h.Label
}

// DefaultHorizons are the eight windows reported for every token.
var DefaultHorizons = []Horizon{
	{Label: "2s", Duration: 2 * time.Second},
	{Label: "5s", Duration: 5 * time.Second},
	{Label: "10s", Duration: 10 * time.Second},
	{Label: "30s", Duration: 30 * time.Second},
	{Label: "1m", Duration: time.Minute},
	{Label: "2m", Duration: 2 * time.Minute},
	{Label: "5m", Duration: 5 * time.Minute},
	{Label: "10m", Duration: 10 * time.Minute},
}

// ParseHorizons builds horizons from duration strings such as "2s" or "1m".
// The string itself becomes the label.
func ParseHorizons(specs []string) ([]Horizon, error) {
	horizons := make([]Horizon, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("parse horizon %q: %w", s, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("horizon %q must be positive", s)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("duplicate horizon %q", s)
		}
		seen[s] = struct{}{}
		horizons = append(horizons, Horizon{Label: s, Duration: d})
	}
	return horizons, nil
}

// Change is the percentage price change over one horizon.
// Available is false when history is insufficient or the historical price is unusable.
type Change struct {
	Horizon   Horizon
	Percent   float64
	Available bool
}
