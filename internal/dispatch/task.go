// Package dispatch resolves task names to bound pipelines and runs them as
// single fetches, batches or chained stages.
package dispatch

import (
	"context"
	"fmt"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/batch"
)

// Task is a pipeline bound to its name, stage order, retry options and
// orchestrator, with its type parameters erased.
type Task interface {
	Name() string
	Order() int
	// Single runs the pipeline's own single unit.
	Single(ctx context.Context) (any, error)
	// Batch runs the pipeline's own unit list.
	Batch(ctx context.Context) (*batch.Report[any], error)
	// Chained builds units from prior results and runs them as a batch.
	Chained(ctx context.Context, prior []any) (*batch.Report[any], error)
	// RunUnit runs a caller-built *engine.Unit of the pipeline's types.
	RunUnit(ctx context.Context, unit any) (any, error)
}

type binding[I, O, R any] struct {
	name  string
	order int
	p     engine.Pipeline[I, O, R]
	opts  engine.Options
	orch  *batch.Orchestrator
}

// Bind erases the types of p so it can be registered by name.
func Bind[I, O, R any](name string, order int, p engine.Pipeline[I, O, R], opts engine.Options, orch *batch.Orchestrator) Task {
	return &binding[I, O, R]{name: name, order: order, p: p, opts: opts, orch: orch}
}

func (b *binding[I, O, R]) Name() string { return b.name }
func (b *binding[I, O, R]) Order() int   { return b.order }

func (b *binding[I, O, R]) Single(ctx context.Context) (any, error) {
	u, err := b.p.NewUnit(ctx)
	if err != nil {
		return nil, b.factoryErr(err)
	}
	return engine.Execute(ctx, b.p, u, b.opts)
}

func (b *binding[I, O, R]) Batch(ctx context.Context) (*batch.Report[any], error) {
	units, err := b.p.NewUnits(ctx)
	if err != nil {
		return nil, b.factoryErr(err)
	}
	report, err := batch.Run(ctx, b.orch, units, b.invoke)
	if err != nil {
		return nil, err
	}
	return erase(report), nil
}

func (b *binding[I, O, R]) Chained(ctx context.Context, prior []any) (*batch.Report[any], error) {
	c, ok := any(b.p).(engine.Chainer[I, O])
	if !ok {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "task cannot be fed by a previous stage", nil).
			WithDetail("task", b.name)
	}
	report, err := batch.RunChained(ctx, b.orch, c, prior, b.invoke)
	if err != nil {
		return nil, err
	}
	return erase(report), nil
}

func (b *binding[I, O, R]) RunUnit(ctx context.Context, unit any) (any, error) {
	u, ok := unit.(*engine.Unit[I, O])
	if !ok || u == nil {
		return nil, engine.NewEngineError(engine.ErrCodeValidation,
			fmt.Sprintf("task %s expects *engine.Unit[%T, %T], got %T", b.name, *new(I), *new(O), unit), nil)
	}
	return engine.Execute(ctx, b.p, u, b.opts)
}

func (b *binding[I, O, R]) invoke(ctx context.Context, u *engine.Unit[I, O]) (R, error) {
	return engine.Execute(ctx, b.p, u, b.opts)
}

func (b *binding[I, O, R]) factoryErr(err error) error {
	return engine.NewEngineError(engine.ErrCodeValidation, "failed to build units", err).
		WithDetail("task", b.name)
}

func erase[R any](r *batch.Report[R]) *batch.Report[any] {
	out := &batch.Report[any]{
		BatchID:  r.BatchID,
		Elapsed:  r.Elapsed,
		TimedOut: r.TimedOut,
		Outcomes: make([]batch.Outcome[any], len(r.Outcomes)),
	}
	for i, o := range r.Outcomes {
		out.Outcomes[i] = batch.Outcome[any]{
			UnitID: o.UnitID,
			URL:    o.URL,
			Status: o.Status,
			Err:    o.Err,
		}
		if o.Status == batch.StatusSuccess {
			out.Outcomes[i].Value = o.Value
		}
	}
	return out
}
