// Package httpapi serves health, metrics, status and snapshot endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/observability"
	"solana-price-tracker/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Started     time.Time `json:"started"`
	Active      int       `json:"active"`
	Pending     int       `json:"pending"`
	Points      int       `json:"points"`
	QueuedTasks int       `json:"queued_tasks"`
	WSClients   int       `json:"ws_clients"`
}

// StatusFunc fills the tracker counters of a StatusResponse.
type StatusFunc func() StatusResponse

// Options configures a Server. Nil handlers leave their routes unregistered.
type Options struct {
	Status    StatusFunc
	Snapshot  http.Handler
	Stream    http.Handler
	Lifecycle storage.LifecycleStore  // serves /lifecycle
	Archive   storage.SnapshotArchive // serves /history
	Logger    *zap.Logger
}

// Server is the tracker HTTP endpoint.
type Server struct {
	web     *http.Server
	started time.Time
	status  StatusFunc
	logger  *zap.Logger
}

// New creates a Server listening on addr.
func New(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		web:     &http.Server{Addr: addr, ReadHeaderTimeout: 5 * time.Second},
		started: time.Now(),
		status:  opts.Status,
		logger:  opts.Logger.Named("http"),
	}
	s.web.Handler = s.router(opts)
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.web.Handler
}

func (s *Server) router(opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	if opts.Snapshot != nil {
		mux.Handle("/snapshot", opts.Snapshot)
	}
	if opts.Stream != nil {
		mux.Handle("/ws", opts.Stream)
	}
	if opts.Lifecycle != nil {
		mux.Handle("/lifecycle", &lifecycleHandler{store: opts.Lifecycle, logger: s.logger})
	}
	if opts.Archive != nil {
		mux.Handle("/history", &historyHandler{archive: opts.Archive, logger: s.logger})
	}
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if s.status != nil {
		resp = s.status()
	}
	resp.Status = "running"
	resp.Started = s.started
	resp.Uptime = time.Since(s.started).Round(time.Second).String()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	closed := make(chan error, 1)

	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.web.Addr))
		closed <- s.web.ListenAndServe()
	}()

	select {
	case err := <-closed:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.web.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
		return nil
	}
}
