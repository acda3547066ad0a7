package sink

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"solana-price-tracker/internal/domain"
)

// Latest keeps the most recent snapshot for HTTP readers.
type Latest struct {
	snap atomic.Pointer[domain.Snapshot]
}

// Store replaces the held snapshot.
func (l *Latest) Store(s *domain.Snapshot) {
	l.snap.Store(s)
}

// Load returns the held snapshot or nil.
func (l *Latest) Load() *domain.Snapshot {
	return l.snap.Load()
}

// ServeHTTP writes the latest snapshot records, or 204 before the first emission.
func (l *Latest) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s := l.Load()
	if s == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Tick-Id", s.TickID.String())
	_ = json.NewEncoder(w).Encode(s.Records())
}
