package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/storage"
)

const defaultWindow = time.Hour

type lifecycleEntry struct {
	EventID    string    `json:"event_id"`
	Token      string    `json:"token"`
	Kind       string    `json:"kind"`
	Retries    int       `json:"retries,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// lifecycleHandler lists journaled events, either for ?token=<id> or for the
// last ?since=<duration> (default one hour).
type lifecycleHandler struct {
	store  storage.LifecycleStore
	logger *zap.Logger
}

func (h *lifecycleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		events []*domain.LifecycleEvent
		err    error
	)
	if token := q.Get("token"); token != "" {
		events, err = h.store.GetByToken(r.Context(), domain.TokenID(token))
	} else {
		window, perr := parseWindow(q.Get("since"))
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		now := time.Now()
		events, err = h.store.GetByTimeRange(r.Context(), now.Add(-window), now)
	}
	if err != nil {
		h.logger.Warn("lifecycle query failed", zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	out := make([]lifecycleEntry, 0, len(events))
	for _, e := range events {
		out = append(out, lifecycleEntry{
			EventID:    e.EventID.String(),
			Token:      string(e.TokenID),
			Kind:       string(e.Kind),
			Retries:    e.Retries,
			OccurredAt: e.OccurredAt,
		})
	}
	writeJSON(w, out)
}

type historyPoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// historyHandler returns archived prices of ?token=<id> over the last ?since=<duration>.
type historyHandler struct {
	archive storage.SnapshotArchive
	logger  *zap.Logger
}

func (h *historyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	window, err := parseWindow(q.Get("since"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	points, err := h.archive.GetTokenPrices(r.Context(), domain.TokenID(token), now.Add(-window), now)
	if err != nil {
		h.logger.Warn("history query failed", zap.String("token", token), zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	out := make([]historyPoint, 0, len(points))
	for _, p := range points {
		out = append(out, historyPoint{Time: p.Time, Price: p.Price})
	}
	writeJSON(w, out)
}

var errBadWindow = errors.New("since must be a positive duration")

func parseWindow(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultWindow, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errBadWindow
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
