// Package workpool runs tasks on a fixed set of workers fed by a bounded queue.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default configuration values.
const (
	DefaultWorkers   = 50
	DefaultQueueSize = 100
)

// ErrClosed is returned when submitting to a pool that is shutting down.
var ErrClosed = errors.New("worker pool closed")

// Task is a unit of work.
type Task func()

// Options configures a Pool.
type Options struct {
	Workers   int
	QueueSize int
	Logger    *zap.Logger
}

// Pool is a bounded worker pool. Submit blocks while the queue is full.
type Pool struct {
	tasks  chan Task
	done   chan struct{}
	logger *zap.Logger
	wg     sync.WaitGroup

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// New starts a pool. Zero option values fall back to defaults.
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	p := &Pool{
		tasks:  make(chan Task, opts.QueueSize),
		done:   make(chan struct{}),
		logger: opts.Logger.Named("workpool"),
	}

	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// Submit enqueues task, blocking while the queue is full.
// Returns ctx.Err() if ctx ends first, or ErrClosed after Shutdown.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	}
}

// Queued returns the number of tasks waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.tasks)
}

// Shutdown stops accepting tasks and waits up to timeout for queued and
// running tasks to finish.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.stopOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("worker pool shutdown: %d tasks still queued after %v", len(p.tasks), timeout)
	}
}
