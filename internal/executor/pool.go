// internal/executor/pool.go
package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	// ErrRejected is returned by Submit when every worker is busy and the
	// queue is full.
	ErrRejected = errors.New("executor queue is full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("executor is shut down")
	// ErrPanicked completes the future of a job that panicked.
	ErrPanicked = errors.New("job panicked")
)

// Options sizes the pool.
type Options struct {
	Core      int           // Long-lived workers, defaults to OptimalConcurrency
	Max       int           // Upper bound including burst workers, defaults to MaxFor(Core)
	QueueSize int           // Pending jobs held when core workers are busy
	KeepAlive time.Duration // Idle time after which a burst worker exits
}

// Pool runs jobs on a bounded set of workers. A job first goes to a new core
// worker, then to the queue, then to a new burst worker; when all of those are
// exhausted it is rejected instead of blocking the caller.
type Pool struct {
	opts Options
	jobs chan func()

	mu      sync.Mutex
	running int
	closed  bool
	wg      sync.WaitGroup
}

// New creates a pool. Workers are started on demand.
func New(opts Options) *Pool {
	if opts.Core <= 0 {
		opts.Core = OptimalConcurrency()
	}
	if opts.Max < opts.Core {
		opts.Max = MaxFor(opts.Core)
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = time.Minute
	}

	log.Debug().
		Int("core", opts.Core).
		Int("max", opts.Max).
		Int("queue", opts.QueueSize).
		Msg("Creating worker pool")

	return &Pool{
		opts: opts,
		jobs: make(chan func(), opts.QueueSize),
	}
}

// execute hands job to a worker or the queue without blocking.
func (p *Pool) execute(job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.running < p.opts.Core {
		p.spawn(job, true)
		return nil
	}

	select {
	case p.jobs <- job:
		metrics.SetQueueDepth(len(p.jobs))
		return nil
	default:
	}

	if p.running < p.opts.Max {
		p.spawn(job, false)
		return nil
	}
	return ErrRejected
}

// spawn must be called with mu held.
func (p *Pool) spawn(first func(), core bool) {
	p.running++
	p.wg.Add(1)
	go p.worker(first, core)
}

// worker runs its first job, then drains the queue. Burst workers exit after
// KeepAlive without work; core workers live until Shutdown.
func (p *Pool) worker(first func(), core bool) {
	defer func() {
		p.mu.Lock()
		p.running--
		p.mu.Unlock()
		p.wg.Done()
	}()

	first()

	var idle *time.Timer
	if !core {
		idle = time.NewTimer(p.opts.KeepAlive)
		defer idle.Stop()
	}

	for {
		var (
			job func()
			ok  bool
		)
		if core {
			job, ok = <-p.jobs
		} else {
			select {
			case job, ok = <-p.jobs:
			case <-idle.C:
				log.Debug().Msg("Burst worker idle, exiting")
				return
			}
		}
		if !ok {
			return
		}
		metrics.SetQueueDepth(len(p.jobs))
		job()

		if idle != nil {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.opts.KeepAlive)
		}
	}
}

// Running returns the number of live workers.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.jobs)
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish, or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Worker pool shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
