package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/batch"
	"github.com/law-makers/crawlflow/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listPipeline discovers a fixed list of item names.
type listPipeline struct {
	items []string
}

func (p *listPipeline) NewUnit(context.Context) (*engine.Unit[string, []string], error) {
	return engine.NewUnit[string, []string]("https://example.com/list", ""), nil
}

func (p *listPipeline) NewUnits(ctx context.Context) ([]*engine.Unit[string, []string], error) {
	u, err := p.NewUnit(ctx)
	return []*engine.Unit[string, []string]{u}, err
}

func (p *listPipeline) Fetch(context.Context, *engine.Unit[string, []string]) ([]string, error) {
	return p.items, nil
}

func (p *listPipeline) Transform(_ context.Context, u *engine.Unit[string, []string]) ([]string, error) {
	return u.Output, nil
}

// detailPipeline turns an item name into a detail string.
type detailPipeline struct {
	mu   sync.Mutex
	urls []string
}

func (p *detailPipeline) NewUnit(context.Context) (*engine.Unit[string, string], error) {
	return engine.NewUnit[string, string]("https://example.com/item/default", "default"), nil
}

func (p *detailPipeline) NewUnits(context.Context) ([]*engine.Unit[string, string], error) {
	return []*engine.Unit[string, string]{
		engine.NewUnit[string, string]("https://example.com/item/x", "x"),
		engine.NewUnit[string, string]("https://example.com/item/y", "y"),
	}, nil
}

func (p *detailPipeline) NewUnitsFrom(_ context.Context, prior []any) ([]*engine.Unit[string, string], error) {
	units := make([]*engine.Unit[string, string], 0, len(prior))
	for _, v := range prior {
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected prior %T", v)
		}
		units = append(units, engine.NewUnit[string, string]("https://example.com/item/"+name, name))
	}
	return units, nil
}

func (p *detailPipeline) Fetch(_ context.Context, u *engine.Unit[string, string]) (string, error) {
	p.mu.Lock()
	p.urls = append(p.urls, u.URL)
	p.mu.Unlock()
	return "detail of " + u.Input, nil
}

func (p *detailPipeline) Transform(_ context.Context, u *engine.Unit[string, string]) (string, error) {
	return u.Output, nil
}

func newDispatcher(t *testing.T, tasks ...func(*batch.Orchestrator) Task) (*Dispatcher, *Registry) {
	t.Helper()
	exec := executor.New(executor.Options{Core: 2, QueueSize: 16})
	t.Cleanup(func() { _ = exec.Shutdown(context.Background()) })
	orch := batch.New(exec, 0, time.Second)

	reg := NewRegistry()
	for _, mk := range tasks {
		require.NoError(t, reg.Register(mk(orch)))
	}
	return New(reg), reg
}

func listTask(items ...string) func(*batch.Orchestrator) Task {
	return func(o *batch.Orchestrator) Task {
		return Bind[string, []string, []string]("list", 10, &listPipeline{items: items}, engine.Options{MaxRetries: 1}, o)
	}
}

func detailTask(p *detailPipeline) func(*batch.Orchestrator) Task {
	return func(o *batch.Orchestrator) Task {
		return Bind[string, string, string]("detail", 20, p, engine.Options{MaxRetries: 1}, o)
	}
}

func TestDispatcher_FetchSingle(t *testing.T) {
	d, _ := newDispatcher(t, listTask("a", "b"))

	got, err := d.Fetch(context.Background(), "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestDispatcher_UnknownTask(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Fetch(context.Background(), "nope")
	assert.True(t, errors.Is(err, engine.ErrNotFound))

	_, err = d.FetchChain(context.Background(), []string{"nope"})
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestDispatcher_FetchChainRunsStagesInOrder(t *testing.T) {
	detail := &detailPipeline{}
	d, _ := newDispatcher(t, listTask("a", "b"), detailTask(detail))

	// argument order and duplicates do not matter
	got, err := d.FetchChain(context.Background(), []string{"detail", "list", "detail"})

	require.NoError(t, err)
	assert.Equal(t, []any{"detail of a", "detail of b"}, got)
	assert.ElementsMatch(t, []string{"https://example.com/item/a", "https://example.com/item/b"}, detail.urls)
}

func TestDispatcher_FetchChainSingleNameIsSingleFetch(t *testing.T) {
	detail := &detailPipeline{}
	d, _ := newDispatcher(t, detailTask(detail))

	got, err := d.FetchChain(context.Background(), []string{"detail"})
	require.NoError(t, err)
	assert.Equal(t, "detail of default", got)
}

func TestDispatcher_FetchBatch(t *testing.T) {
	d, _ := newDispatcher(t, detailTask(&detailPipeline{}))

	report, err := d.FetchBatch(context.Background(), "detail")
	require.NoError(t, err)
	assert.Equal(t, []any{"detail of x", "detail of y"}, report.Results())
}

func TestDispatcher_FetchUnit(t *testing.T) {
	d, _ := newDispatcher(t, detailTask(&detailPipeline{}))

	u := engine.NewUnit[string, string]("https://example.com/item/custom", "custom")
	got, err := d.FetchUnit(context.Background(), "detail", u)
	require.NoError(t, err)
	assert.Equal(t, "detail of custom", got)

	_, err = d.FetchUnit(context.Background(), "detail", engine.NewUnit[int, string]("x", 1))
	assert.True(t, errors.Is(err, engine.ErrValidation))
}

func TestDispatcher_ChainIntoUnchainableTask(t *testing.T) {
	d, _ := newDispatcher(t, detailTask(&detailPipeline{}), func(o *batch.Orchestrator) Task {
		return Bind[string, []string, []string]("list", 30, &listPipeline{items: []string{"z"}}, engine.Options{MaxRetries: 1}, o)
	})

	_, err := d.FetchChain(context.Background(), []string{"detail", "list"})
	assert.True(t, errors.Is(err, engine.ErrValidation))
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, reg := newDispatcher(t, listTask())
	err := reg.Register(Bind[string, []string, []string]("list", 1, &listPipeline{}, engine.Options{}, nil))
	assert.True(t, errors.Is(err, engine.ErrValidation))
}

func TestRegistry_TasksSortedByOrder(t *testing.T) {
	_, reg := newDispatcher(t, detailTask(&detailPipeline{}), listTask())

	var names []string
	for _, task := range reg.Tasks() {
		names = append(names, task.Name())
	}
	assert.Equal(t, []string{"list", "detail"}, names)
}

func TestSpread(t *testing.T) {
	assert.Nil(t, Spread(nil))
	assert.Equal(t, []any{1, 2}, Spread([]int{1, 2}))
	assert.Equal(t, []any{"x"}, Spread("x"))
	assert.Equal(t, []any{"a"}, Spread([]any{"a"}))
	assert.Nil(t, Spread([]string(nil)))
}
