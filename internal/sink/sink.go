package sink

import (
	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/observability"
)

// Options configures a Sink. Nil outputs are skipped.
type Options struct {
	Console   *Console
	File      *FileWriter
	Publisher *AsyncPublisher
	Latest    *Latest
	Logger    *zap.Logger
}

// Sink fans a snapshot out to every configured output. Output failures are
// logged and never reach the caller.
type Sink struct {
	console   *Console
	file      *FileWriter
	publisher *AsyncPublisher
	latest    *Latest
	logger    *zap.Logger
}

// New creates a Sink.
func New(opts Options) *Sink {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Sink{
		console:   opts.Console,
		file:      opts.File,
		publisher: opts.Publisher,
		latest:    opts.Latest,
		logger:    opts.Logger.Named("sink"),
	}
}

// Emit delivers snap to every configured output.
func (s *Sink) Emit(snap *domain.Snapshot) {
	observability.RecordSnapshotEmitted()

	if s.latest != nil {
		s.latest.Store(snap)
	}

	if s.console != nil {
		if err := s.console.Write(snap); err != nil {
			observability.RecordSinkError("console")
			s.logger.Warn("console output failed", zap.Error(err))
		}
	}

	if s.file != nil {
		if err := s.file.Write(snap); err != nil {
			observability.RecordSinkError("file")
			s.logger.Warn("snapshot file write failed", zap.String("path", s.file.Path()), zap.Error(err))
		}
	}

	if s.publisher != nil {
		s.publisher.Offer(snap)
	}
}
