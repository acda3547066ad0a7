package sink

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"solana-price-tracker/internal/domain"
)

const consoleWidth = 180

// Console renders snapshots as a fixed-width table.
type Console struct {
	w        io.Writer
	horizons []domain.Horizon
	limit    int
}

// NewConsole creates a Console. limit > 0 prints only the first limit rows.
func NewConsole(w io.Writer, horizons []domain.Horizon, limit int) *Console {
	if len(horizons) == 0 {
		horizons = domain.DefaultHorizons
	}
	return &Console{w: w, horizons: horizons, limit: limit}
}

// Write prints one table for s.
func (c *Console) Write(s *domain.Snapshot) error {
	bw := bufio.NewWriter(c.w)

	fmt.Fprintf(bw, "\n%s\n", strings.Repeat("=", consoleWidth))
	fmt.Fprintf(bw, "%-8s %-15s ", "Token", "Price")
	for _, h := range c.horizons {
		fmt.Fprintf(bw, "%-8s ", h.Label)
	}
	fmt.Fprintf(bw, "%-50s %-8s\n", "ID", "Time")
	fmt.Fprintln(bw, strings.Repeat("-", consoleWidth))

	for i, r := range s.Records() {
		if c.limit > 0 && i >= c.limit {
			fmt.Fprintf(bw, "... %d more\n", len(s.Tokens)-c.limit)
			break
		}
		fmt.Fprintf(bw, "%-8s %-15.8f ", r.Token, r.Price)
		for _, ch := range r.Changes {
			fmt.Fprintf(bw, "%-8s ", formatChange(ch.Value))
		}
		fmt.Fprintf(bw, "%-50s %-8s\n", r.ID, r.Time)
	}

	fmt.Fprintln(bw, strings.Repeat("=", consoleWidth))
	return bw.Flush()
}

func formatChange(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v)
}
