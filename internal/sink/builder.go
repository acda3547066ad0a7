// Package sink builds per-tick snapshots and delivers them to the console,
// the snapshot file and downstream publishers.
package sink

import (
	"time"

	"github.com/google/uuid"

	"solana-price-tracker/internal/domain"
)

// PriceSource is the token state a snapshot is built from.
type PriceSource interface {
	ActiveIDs() []domain.TokenID
	Latest(id domain.TokenID) (domain.PricePoint, bool)
}

// ChangeCalculator computes the per-horizon changes of one token.
type ChangeCalculator interface {
	Compute(id domain.TokenID, current float64, now time.Time) []domain.Change
}

// Builder assembles snapshots of every active token with a positive price.
type Builder struct {
	source PriceSource
	calc   ChangeCalculator
	clock  func() time.Time
}

// NewBuilder creates a Builder. A nil clock uses time.Now.
func NewBuilder(source PriceSource, calc ChangeCalculator, clock func() time.Time) *Builder {
	if clock == nil {
		clock = time.Now
	}
	return &Builder{source: source, calc: calc, clock: clock}
}

// Build returns the snapshot for the current tick, ordered by token id.
// Each token carries the time of its latest price.
func (b *Builder) Build() *domain.Snapshot {
	now := b.clock()
	snap := &domain.Snapshot{TickID: uuid.New(), Time: now}

	for _, id := range b.source.ActiveIDs() {
		latest, ok := b.source.Latest(id)
		if !ok || latest.Price <= 0 {
			continue
		}
		snap.Tokens = append(snap.Tokens, domain.TokenSnapshot{
			ID:      id,
			Price:   latest.Price,
			Changes: b.calc.Compute(id, latest.Price, now),
			Time:    latest.Time,
		})
	}
	return snap
}
