// Package workerpool runs fire-and-forget tasks on a fixed set of goroutines.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrStopped is returned by Enqueue once Stop has been called.
	ErrStopped = errors.New("worker pool is stopped")
	// ErrStopTimeout is returned by Stop when workers do not finish in time.
	ErrStopTimeout = errors.New("worker pool stop timeout")
)

// Task is a unit of work. ctx carries the values of the enqueueing context
// but is not cancelled with it.
type Task func(ctx context.Context)

type message struct {
	ctx      context.Context
	task     Task
	enqueued time.Time
}

// Pool is a fixed-size worker pool with a bounded queue.
type Pool struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	senders sync.WaitGroup
	tasks   chan message
	wg      sync.WaitGroup

	metrics *Metrics
	log     *zap.Logger
}

// New starts a pool with the given number of workers and queue capacity.
// metrics may be nil.
func New(workers, queueSize int, metrics *Metrics, log *zap.Logger) (*Pool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	if queueSize < 0 {
		return nil, fmt.Errorf("queue size must not be negative, got %d", queueSize)
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Pool{
		done:    make(chan struct{}),
		tasks:   make(chan message, queueSize),
		metrics: metrics,
		log:     log,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p, nil
}

// Enqueue schedules task. It blocks while the queue is full, until ctx is
// done or the pool is stopped.
func (p *Pool) Enqueue(ctx context.Context, task Task) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.senders.Add(1)
	p.mu.Unlock()
	defer p.senders.Done()

	msg := message{
		ctx:      context.WithoutCancel(ctx),
		task:     task,
		enqueued: time.Now(),
	}

	select {
	case <-p.done:
		return ErrStopped
	default:
	}

	select {
	case p.tasks <- msg:
		p.metrics.queued(1)
		return nil
	case <-p.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new tasks, lets the workers drain the queue and waits up to
// timeout for them to finish. Enqueue calls blocked on a full queue return
// ErrStopped. Calling Stop more than once is a no-op.
func (p *Pool) Stop(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.done)
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		// tasks is closed only once no sender can write to it
		p.senders.Wait()
		close(p.tasks)
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

func (p *Pool) work() {
	defer p.wg.Done()

	for msg := range p.tasks {
		p.metrics.queued(-1)
		p.metrics.observeWait(time.Since(msg.enqueued))
		p.run(msg)
	}
}

// run executes one task, converting a panic into a failed-task count.
func (p *Pool) run(msg message) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.metrics.fail()
			p.log.Error("worker pool task panicked", zap.Any("panic", r), zap.Stack("stack"))
			return
		}
		p.metrics.succeed(time.Since(start))
	}()

	msg.task(msg.ctx)
}
