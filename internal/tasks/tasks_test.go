package tasks

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/crawlflow/internal/config"
	"github.com/law-makers/crawlflow/internal/dispatch"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/batch"
	"github.com/law-makers/crawlflow/internal/executor"
	"github.com/law-makers/crawlflow/internal/fetch"
	"github.com/law-makers/crawlflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// siteSource serves fixed bodies by URL.
type siteSource struct {
	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
}

func (s *siteSource) Get(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hits == nil {
		s.hits = make(map[string]int)
	}
	s.hits[url]++
	body, ok := s.pages[url]
	if !ok {
		return "", engine.NewEngineError(engine.ErrCodeFetch, "Not Found", nil)
	}
	return body, nil
}

type stubRequester struct {
	resp *fetch.Response
	got  fetch.Request
}

func (r *stubRequester) Do(_ context.Context, _ string, req fetch.Request) (*fetch.Response, error) {
	r.got = req
	return r.resp, nil
}

const index = `<html><body>
<a href="/a">A</a>
<a href="/b">B</a>
<a href="/a#top">A again</a>
<a href="https://elsewhere.org/c">C</a>
</body></html>`

func setup(t *testing.T, cfg config.TasksConfig, src *siteSource, req *stubRequester) *dispatch.Dispatcher {
	t.Helper()
	exec := executor.New(executor.Options{Core: 2, QueueSize: 16})
	t.Cleanup(func() { _ = exec.Shutdown(context.Background()) })

	reg := dispatch.NewRegistry()
	err := Register(reg, cfg, Deps{
		Proxy:        src,
		HTTP:         req,
		Orchestrator: batch.New(exec, 0, 5*time.Second),
		Options:      engine.Options{MaxRetries: 2},
	})
	require.NoError(t, err)
	return dispatch.New(reg)
}

func TestLinks_SameHostAndLimit(t *testing.T) {
	src := &siteSource{pages: map[string]string{"https://example.com/": index}}
	d := setup(t, config.TasksConfig{Links: config.LinksTaskConfig{
		URLs:     []string{"https://example.com/"},
		SameHost: true,
	}}, src, nil)

	got, err := d.Fetch(context.Background(), LinksTask)
	require.NoError(t, err)
	assert.Equal(t, []models.Link{
		{Text: "A", URL: "https://example.com/a"},
		{Text: "B", URL: "https://example.com/b"},
	}, got)

	limited := setup(t, config.TasksConfig{Links: config.LinksTaskConfig{
		URLs:  []string{"https://example.com/"},
		Limit: 1,
	}}, src, nil)
	got, err = limited.Fetch(context.Background(), LinksTask)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLinks_RequiresSeeds(t *testing.T) {
	d := setup(t, config.TasksConfig{}, &siteSource{}, nil)

	_, err := d.Fetch(context.Background(), LinksTask)
	assert.True(t, errors.Is(err, engine.ErrValidation))
}

func TestChain_LinksIntoRaw(t *testing.T) {
	src := &siteSource{pages: map[string]string{
		"https://example.com/":  index,
		"https://example.com/a": "alpha",
		"https://example.com/b": "bravo!",
	}}
	d := setup(t, config.TasksConfig{
		Links: config.LinksTaskConfig{URLs: []string{"https://example.com/"}, SameHost: true},
		Raw:   config.RawTaskConfig{KeepBody: true},
	}, src, nil)

	got, err := d.FetchChain(context.Background(), []string{RawTask, LinksTask})
	require.NoError(t, err)

	assert.Equal(t, []any{
		models.RawPage{URL: "https://example.com/a", Length: 5, Body: "alpha"},
		models.RawPage{URL: "https://example.com/b", Length: 6, Body: "bravo!"},
	}, got)
}

func TestRaw_BatchDropsFailures(t *testing.T) {
	src := &siteSource{pages: map[string]string{"https://example.com/ok": "ok"}}
	d := setup(t, config.TasksConfig{Raw: config.RawTaskConfig{
		URLs: []string{"https://example.com/ok", "https://example.com/missing"},
	}}, src, nil)

	report, err := d.FetchBatch(context.Background(), RawTask)
	require.NoError(t, err)
	assert.Equal(t, []any{models.RawPage{URL: "https://example.com/ok", Length: 2}}, report.Results())
	assert.Equal(t, 1, report.Count(batch.StatusError))
}

func TestAPI_DecodesJSON(t *testing.T) {
	req := &stubRequester{resp: &fetch.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"ok":true}`),
	}}
	d := setup(t, config.TasksConfig{API: config.APITaskConfig{
		URL:     "https://api.example.com/v1",
		Method:  "post",
		Format:  "FORM",
		Params:  map[string]any{"q": "go"},
		Headers: []string{"X-Token: abc"},
	}}, &siteSource{}, req)

	got, err := d.Fetch(context.Background(), APITask)
	require.NoError(t, err)

	assert.Equal(t, models.APIResult{URL: "https://api.example.com/v1", Status: 200, Data: map[string]any{"ok": true}}, got)
	assert.Equal(t, "POST", req.got.Method)
	assert.Equal(t, fetch.FormatForm, req.got.Format)
	assert.Equal(t, "abc", req.got.Headers["X-Token"])
}

func TestAPI_KeepsText(t *testing.T) {
	req := &stubRequester{resp: &fetch.Response{StatusCode: 200, Body: []byte("plain")}}
	d := setup(t, config.TasksConfig{API: config.APITaskConfig{URL: "https://api.example.com", Method: "GET"}}, &siteSource{}, req)

	got, err := d.Fetch(context.Background(), APITask)
	require.NoError(t, err)
	assert.Equal(t, "plain", got.(models.APIResult).Data)
}

func TestArticle_Units(t *testing.T) {
	p := &Article{}
	_, err := p.NewUnit(context.Background())
	assert.True(t, errors.Is(err, engine.ErrValidation))

	units, err := p.NewUnitsFrom(context.Background(), []any{
		models.Link{URL: "https://example.com/a"},
		&models.Link{URL: "https://example.com/b"},
		"https://example.com/a",
		"",
		42,
	})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "https://example.com/a", units[0].URL)
	assert.Equal(t, "https://example.com/b", units[1].URL)
}
