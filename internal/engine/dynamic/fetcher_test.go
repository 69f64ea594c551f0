package dynamic

import (
	"context"
	"errors"
	"testing"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagePipeline struct {
	*BrowserFetcher[string, int]
	seen []int
}

func (p *pagePipeline) NewUnit(context.Context) (*engine.Unit[string, *Session], error) {
	return engine.NewUnit[string, *Session]("https://example.com", ""), nil
}

func (p *pagePipeline) NewUnits(ctx context.Context) ([]*engine.Unit[string, *Session], error) {
	u, err := p.NewUnit(ctx)
	return []*engine.Unit[string, *Session]{u}, err
}

func (p *pagePipeline) Transform(_ context.Context, u *engine.Unit[string, *Session]) (int, error) {
	p.seen = append(p.seen, u.Output.ID())
	return u.Output.Page().(*fakePage).runCount(), nil
}

func newPagePipeline(t *testing.T, runErrs ...error) (*pagePipeline, *Pool) {
	t.Helper()
	l := newFakeLauncher()
	l.runErrs = runErrs
	pool := newTestPool(t, 2, l)
	return &pagePipeline{BrowserFetcher: &BrowserFetcher[string, int]{Sessions: pool}}, pool
}

func TestBrowserFetcher_ReloadsOnSameSessionAfterTimeout(t *testing.T) {
	p, pool := newPagePipeline(t, context.DeadlineExceeded, nil)
	u, err := p.NewUnit(context.Background())
	require.NoError(t, err)

	runs, err := engine.Execute[string, *Session, int](context.Background(), p, u, engine.Options{MaxRetries: 3})

	require.NoError(t, err)
	assert.Equal(t, 2, runs, "one navigation and one reload")
	assert.Equal(t, []int{0}, p.seen)
	assert.Nil(t, u.Output, "session should be detached after release")
	assert.Equal(t, 0, pool.InUse())
}

func TestBrowserFetcher_ReleasesOnExhaustion(t *testing.T) {
	timeout := context.DeadlineExceeded
	p, pool := newPagePipeline(t, timeout, timeout, timeout)
	u, err := p.NewUnit(context.Background())
	require.NoError(t, err)

	_, err = engine.Execute[string, *Session, int](context.Background(), p, u, engine.Options{MaxRetries: 3})

	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrExhausted))
	assert.True(t, errors.Is(err, engine.ErrNavigationTimeout))
	assert.Equal(t, 0, pool.InUse())
	assert.Equal(t, 2, pool.Available())
}

func TestBrowserFetcher_NonTransientErrorIsFatal(t *testing.T) {
	p, pool := newPagePipeline(t, errors.New("invalid selector"))
	u, err := p.NewUnit(context.Background())
	require.NoError(t, err)

	_, err = engine.Execute[string, *Session, int](context.Background(), p, u, engine.Options{MaxRetries: 3})

	require.Error(t, err)
	assert.Equal(t, engine.ErrCodeFetch, engine.CodeOf(err))
	assert.Equal(t, 0, pool.InUse())
}

func TestClassifyNavigation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want engine.ErrorCode
	}{
		{"deadline", context.DeadlineExceeded, engine.ErrCodeNavigationTimeout},
		{"net error", errors.New("page load error net::ERR_CONNECTION_RESET"), engine.ErrCodeRetry},
		{"engine error kept", engine.NewEngineError(engine.ErrCodePool, "x", nil), engine.ErrCodePool},
		{"other", errors.New("boom"), engine.ErrCodeFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyNavigation(ctx, "https://example.com", tt.err)
			assert.Equal(t, tt.want, engine.CodeOf(got))
		})
	}
}
