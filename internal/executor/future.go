package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Status is the state of a Future.
type Status int

const (
	Pending Status = iota
	Succeeded
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "success"
	case Failed:
		return "error"
	case Cancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Future is the pending result of a submitted job. The first completion
// wins; Cancel completes it immediately and cancels the job's context.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	val    T
	err    error
	status Status
}

// Submit runs fn on the pool. The job's context is derived from ctx and is
// cancelled when the job finishes or the future is cancelled. A rejected
// submission returns ErrRejected and runs nothing.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	jobCtx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}

	err := p.execute(func() {
		defer cancel()
		var zero T
		if err := jobCtx.Err(); err != nil {
			f.complete(zero, err, Cancelled)
			return
		}

		v, err := run(jobCtx, fn)
		if err != nil {
			f.complete(zero, err, Failed)
			return
		}
		f.complete(v, nil, Succeeded)
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return f, nil
}

// run calls fn, turning a panic into an error so one job cannot take down
// the pool.
func run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (v T, err error) {
	metrics.IncActiveWorkers()
	defer func() {
		metrics.DecActiveWorkers()
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrPanicked, r)
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Job panicked")
		}
	}()
	return fn(ctx)
}

func (f *Future[T]) complete(v T, err error, status Status) {
	f.once.Do(func() {
		f.val, f.err, f.status = v, err, status
		close(f.done)
	})
}

// Done is closed once the future has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel marks the future cancelled unless it already completed.
func (f *Future[T]) Cancel() {
	var zero T
	f.complete(zero, context.Canceled, Cancelled)
	f.cancel()
}

// Peek returns the outcome without blocking. ok is false while pending.
func (f *Future[T]) Peek() (val T, err error, status Status, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, f.status, true
	default:
		return val, nil, Pending, false
	}
}

// Wait blocks until the future completes or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
