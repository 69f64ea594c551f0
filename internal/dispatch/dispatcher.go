// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/batch"
	"github.com/rs/zerolog/log"
)

// Registry maps task names to bound pipelines. It is filled once by the
// composition root.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.Name()]; exists {
		return engine.NewEngineError(engine.ErrCodeValidation, "task already registered", nil).
			WithDetail("task", t.Name())
	}
	r.tasks[t.Name()] = t
	log.Debug().Str("task", t.Name()).Int("order", t.Order()).Msg("Task registered")
	return nil
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	if !ok {
		return nil, engine.NewEngineError(engine.ErrCodeNotFound, "unknown task", nil).
			WithDetail("task", name)
	}
	return t, nil
}

// Tasks returns every task sorted by order, then name.
func (r *Registry) Tasks() []Task {
	r.mu.RLock()
	tasks := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Order() != tasks[j].Order() {
			return tasks[i].Order() < tasks[j].Order()
		}
		return tasks[i].Name() < tasks[j].Name()
	})
	return tasks
}

// Dispatcher runs registered tasks by name.
type Dispatcher struct {
	registry *Registry
}

// New creates a dispatcher over registry.
func New(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Fetch runs the single unit of task name and returns its result. Failures
// propagate to the caller.
func (d *Dispatcher) Fetch(ctx context.Context, name string) (any, error) {
	t, err := d.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.Single(ctx)
}

// FetchUnit runs a caller-built unit through task name.
func (d *Dispatcher) FetchUnit(ctx context.Context, name string, unit any) (any, error) {
	t, err := d.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.RunUnit(ctx, unit)
}

// FetchBatch runs the unit list of task name through the orchestrator.
func (d *Dispatcher) FetchBatch(ctx context.Context, name string) (*batch.Report[any], error) {
	t, err := d.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.Batch(ctx)
}

// FetchChain runs names as stages in ascending task order, duplicates
// removed. A single name is a plain Fetch. Otherwise the first stage runs as a
// single fetch and every later stage runs as a batch built from the results
// of the previous one; the results of the last stage are returned.
func (d *Dispatcher) FetchChain(ctx context.Context, names []string) (any, error) {
	stages, err := d.resolve(names)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, engine.NewEngineError(engine.ErrCodeValidation, "no task given", nil)
	}
	if len(stages) == 1 {
		return stages[0].Single(ctx)
	}

	first, err := stages[0].Single(ctx)
	if err != nil {
		return nil, err
	}
	prior := Spread(first)

	for _, t := range stages[1:] {
		log.Info().Str("task", t.Name()).Int("inputs", len(prior)).Msg("Running chained stage")
		report, err := t.Chained(ctx, prior)
		if err != nil {
			return nil, err
		}
		prior = report.Results()
	}
	return prior, nil
}

func (d *Dispatcher) resolve(names []string) ([]Task, error) {
	seen := make(map[string]bool, len(names))
	stages := make([]Task, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		t, err := d.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, t)
	}
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Order() < stages[j].Order()
	})
	return stages, nil
}

// Spread turns a stage result into the prior list of the next stage: slices
// and arrays contribute their elements, nil contributes nothing and any other
// value is a one-item list.
func Spread(v any) []any {
	if v == nil {
		return nil
	}
	if items, ok := v.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}
