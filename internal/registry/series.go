package registry

import (
	"time"

	"solana-price-tracker/internal/domain"
)

// series is the ordered price history of one token.
// Purged points are skipped by advancing head; the backing slice is
// compacted once the dead prefix dominates.
type series struct {
	points []domain.PricePoint
	head   int
}

func newSeries(p domain.PricePoint) *series {
	return &series{points: []domain.PricePoint{p}}
}

func (s *series) len() int {
	return len(s.points) - s.head
}

func (s *series) first() domain.PricePoint {
	return s.points[s.head]
}

func (s *series) last() domain.PricePoint {
	return s.points[len(s.points)-1]
}

// view returns the live points. Callers must not retain it outside the lock.
func (s *series) view() []domain.PricePoint {
	return s.points[s.head:]
}

func (s *series) append(p domain.PricePoint) {
	s.points = append(s.points, p)
}

// dropBefore removes leading points older than cutoff and returns how many were removed.
func (s *series) dropBefore(cutoff time.Time) int {
	start := s.head
	for s.head < len(s.points) && s.points[s.head].Time.Before(cutoff) {
		s.head++
	}
	removed := s.head - start

	if s.head > 0 && s.head*2 >= len(s.points) {
		live := make([]domain.PricePoint, len(s.points)-s.head)
		copy(live, s.points[s.head:])
		s.points = live
		s.head = 0
	}
	return removed
}
