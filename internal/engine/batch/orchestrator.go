// internal/engine/batch/orchestrator.go
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/executor"
	"github.com/law-makers/crawlflow/internal/metrics"
	"github.com/law-makers/crawlflow/internal/reqctx"
)

// Status is the outcome of one unit in a batch.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Outcome is the structured result of one unit.
type Outcome[R any] struct {
	UnitID string
	URL    string
	Status Status
	Value  R
	Err    error
}

// Report holds the outcomes of a batch in submission order.
type Report[R any] struct {
	BatchID  string
	Outcomes []Outcome[R]
	Elapsed  time.Duration
	TimedOut bool
}

// Results returns the values of the successful units. Failed and cancelled
// units contribute nothing.
func (r *Report[R]) Results() []R {
	out := make([]R, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess {
			out = append(out, o.Value)
		}
	}
	return out
}

// Count returns the number of outcomes with status s.
func (r *Report[R]) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Err joins the errors of every unit that did not succeed, for callers that
// want all-or-nothing semantics. It is nil when every unit succeeded.
func (r *Report[R]) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusError:
			errs = append(errs, fmt.Errorf("%s: %w", o.URL, o.Err))
		case StatusCancelled:
			errs = append(errs, fmt.Errorf("%s: %s", o.URL, StatusCancelled))
		}
	}
	return errors.Join(errs...)
}

// Orchestrator runs batches of units on a shared executor.
type Orchestrator struct {
	exec        *executor.Pool
	SubmitDelay time.Duration // Pause before every submission
	Deadline    time.Duration // Overall wait for a batch once submitted, 0 for none

	// OnOutcome, if set, is called once per collected unit.
	OnOutcome func(Status)
}

// New creates an orchestrator on exec.
func New(exec *executor.Pool, submitDelay, deadline time.Duration) *Orchestrator {
	return &Orchestrator{
		exec:        exec,
		SubmitDelay: submitDelay,
		Deadline:    deadline,
	}
}

// Run submits every unit to the executor, waits for all of them under the
// batch deadline and collects what finished. Per-unit failures never fail
// the batch; they show up as outcomes. Run itself fails only when a
// submission is rejected or ctx ends while submitting.
func Run[I, O, R any](ctx context.Context, o *Orchestrator, units []*engine.Unit[I, O], invoke func(context.Context, *engine.Unit[I, O]) (R, error)) (*Report[R], error) {
	ctx = reqctx.WithBatch(ctx)
	bc := reqctx.GetBatch(ctx)
	logger := reqctx.Logger(ctx)

	report := &Report[R]{BatchID: bc.BatchID}
	if len(units) == 0 {
		return report, nil
	}

	logger.Info().Int("units", len(units)).Msg("Starting batch")

	futures := make([]*executor.Future[R], 0, len(units))
	cancelAll := func() {
		for _, f := range futures {
			f.Cancel()
		}
	}

	for i, u := range units {
		if err := sleep(ctx, o.SubmitDelay); err != nil {
			cancelAll()
			return nil, engine.NewEngineError(engine.ErrCodeFetch, "batch interrupted while submitting", err).
				WithDetail("submitted", i)
		}

		f, err := executor.Submit(ctx, o.exec, func(ctx context.Context) (R, error) {
			return invoke(ctx, u)
		})
		if err != nil {
			cancelAll()
			code := engine.ErrCodeFetch
			if errors.Is(err, executor.ErrRejected) {
				code = engine.ErrCodeQueueFull
			}
			logger.Error().Err(err).Int("submitted", i).Msg("Batch submission rejected")
			return nil, engine.NewEngineError(code, "batch submission rejected", err).
				WithDetail("submitted", i)
		}
		futures = append(futures, f)
	}

	report.TimedOut = !awaitAll(ctx, futures, o.Deadline)
	if report.TimedOut {
		logger.Warn().Dur("deadline", o.Deadline).Msg("Batch deadline exceeded, cancelling outstanding units")
		cancelAll()
	}

	report.Outcomes = make([]Outcome[R], len(units))
	for i, f := range futures {
		out := Outcome[R]{UnitID: units[i].ID, URL: units[i].URL}
		val, err, status, ok := f.Peek()
		switch {
		case ok && status == executor.Succeeded:
			out.Status, out.Value = StatusSuccess, val
		case ok && status == executor.Failed:
			out.Status, out.Err = StatusError, err
			logger.Warn().Err(err).Str("unit_id", out.UnitID).Str("url", out.URL).Msg("Unit failed")
		default:
			out.Status, out.Err = StatusCancelled, context.Canceled
			logger.Debug().Str("unit_id", out.UnitID).Str("url", out.URL).Msg("Unit cancelled")
		}
		report.Outcomes[i] = out

		metrics.ObserveUnit(string(out.Status))
		if o.OnOutcome != nil {
			o.OnOutcome(out.Status)
		}
	}

	report.Elapsed = time.Since(bc.StartTime)
	metrics.ObserveBatch(report.Elapsed)

	logger.Info().
		Int("succeeded", report.Count(StatusSuccess)).
		Int("failed", report.Count(StatusError)).
		Int("cancelled", report.Count(StatusCancelled)).
		Dur("elapsed", report.Elapsed).
		Msg("Batch finished")
	return report, nil
}

// RunChained builds units from the results of a previous stage and runs them.
func RunChained[I, O, R any](ctx context.Context, o *Orchestrator, c engine.Chainer[I, O], prior []any, invoke func(context.Context, *engine.Unit[I, O]) (R, error)) (*Report[R], error) {
	units, err := c.NewUnitsFrom(ctx, prior)
	if err != nil {
		return nil, err
	}
	return Run(ctx, o, units, invoke)
}

// awaitAll waits for every future. It reports false when the deadline or
// ctx ended the wait first. The deadline starts now.
func awaitAll[R any](ctx context.Context, futures []*executor.Future[R], deadline time.Duration) bool {
	var expired <-chan time.Time
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		expired = timer.C
	}

	for _, f := range futures {
		select {
		case <-f.Done():
		case <-expired:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
