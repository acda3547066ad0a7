package sink

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/observability"
)

const (
	DefaultQueueSize      = 16
	DefaultPublishTimeout = 2 * time.Second
)

// Message is one snapshot together with its JSON array encoding.
type Message struct {
	Snapshot *domain.Snapshot
	Payload  []byte
}

// Publisher delivers snapshots downstream.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
}

// AsyncPublisherOptions configures an AsyncPublisher.
type AsyncPublisherOptions struct {
	QueueSize int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// AsyncPublisher decouples the tracker loop from downstream publishers.
// Offer never blocks: when the queue is full the snapshot is dropped.
type AsyncPublisher struct {
	queue      chan *domain.Snapshot
	publishers []Publisher
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAsyncPublisher creates an AsyncPublisher forwarding to publishers.
func NewAsyncPublisher(publishers []Publisher, opts AsyncPublisherOptions) *AsyncPublisher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPublishTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AsyncPublisher{
		queue:      make(chan *domain.Snapshot, opts.QueueSize),
		publishers: publishers,
		timeout:    opts.Timeout,
		logger:     opts.Logger.Named("publisher"),
	}
}

// Offer enqueues s. Returns false if it was dropped.
func (p *AsyncPublisher) Offer(s *domain.Snapshot) bool {
	select {
	case p.queue <- s:
		return true
	default:
		observability.RecordSnapshotDropped()
		p.logger.Warn("publish queue full, snapshot dropped", zap.Stringer("tick", s.TickID))
		return false
	}
}

// Run forwards queued snapshots until ctx ends.
func (p *AsyncPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-p.queue:
			p.publish(ctx, s)
		}
	}
}

func (p *AsyncPublisher) publish(ctx context.Context, s *domain.Snapshot) {
	payload, err := json.Marshal(s.Records())
	if err != nil {
		p.logger.Error("encode snapshot", zap.Error(err))
		return
	}
	msg := Message{Snapshot: s, Payload: payload}

	for _, pub := range p.publishers {
		start := time.Now()
		pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := pub.Publish(pubCtx, msg)
		cancel()

		if err != nil {
			observability.RecordSinkError(pub.Name())
			p.logger.Warn("publish failed", zap.String("publisher", pub.Name()), zap.Error(err))
			continue
		}
		observability.RecordPublish(pub.Name(), time.Since(start).Seconds())
	}
}
