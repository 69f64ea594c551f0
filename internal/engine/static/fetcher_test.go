package static

import (
	"context"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays one response per call.
type scriptedSource struct {
	bodies []string
	errs   []error
	calls  int
}

func (s *scriptedSource) Get(context.Context, string) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	return s.bodies[i], nil
}

type titlePipeline struct {
	DocumentFetcher[string]
}

func (p *titlePipeline) NewUnit(context.Context) (*engine.Unit[string, *goquery.Document], error) {
	return engine.NewUnit[string, *goquery.Document]("https://example.com", ""), nil
}

func (p *titlePipeline) NewUnits(context.Context) ([]*engine.Unit[string, *goquery.Document], error) {
	return nil, nil
}

func (p *titlePipeline) Transform(_ context.Context, u *engine.Unit[string, *goquery.Document]) (string, error) {
	return u.Output.Find("title").Text(), nil
}

func TestDocumentFetcher_RetriesTimeoutsAndEmptyBodies(t *testing.T) {
	src := &scriptedSource{
		bodies: []string{"", "   ", "<html><title>ok</title></html>"},
		errs:   []error{engine.NewEngineError(engine.ErrCodeRequestTimeout, "request timeout", nil)},
	}
	p := &titlePipeline{DocumentFetcher[string]{Source: src}}
	u, _ := p.NewUnit(context.Background())

	title, err := engine.Execute[string, *goquery.Document, string](context.Background(), p, u, engine.Options{MaxRetries: 3})

	require.NoError(t, err)
	assert.Equal(t, "ok", title)
	assert.Equal(t, 3, src.calls)
}

func TestDocumentFetcher_FatalErrorStops(t *testing.T) {
	src := &scriptedSource{errs: []error{engine.NewEngineError(engine.ErrCodeFetch, "Not Found", nil)}}
	p := &titlePipeline{DocumentFetcher[string]{Source: src}}
	u, _ := p.NewUnit(context.Background())

	_, err := engine.Execute[string, *goquery.Document, string](context.Background(), p, u, engine.Options{MaxRetries: 3})

	require.Error(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestBodyFetcher_ReturnsBody(t *testing.T) {
	f := &BodyFetcher[int]{Source: &scriptedSource{bodies: []string{"payload"}}}
	u := engine.NewUnit[int, string]("https://example.com", 1)

	body, err := f.Fetch(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "payload", body)
	assert.Equal(t, engine.HTTPPolicy, f.RetryPolicy())
}

type fakeRequester struct {
	got fetch.Request
}

func (r *fakeRequester) Do(_ context.Context, _ string, req fetch.Request) (*fetch.Response, error) {
	r.got = req
	return &fetch.Response{StatusCode: 200, Body: []byte("{}")}, nil
}

func TestRequestFetcher(t *testing.T) {
	req := &fakeRequester{}
	f := &RequestFetcher{Client: req}

	_, err := f.Fetch(context.Background(), engine.NewUnit[*fetch.Request, *fetch.Response]("https://api.example.com", nil))
	assert.True(t, errors.Is(err, engine.ErrValidation))

	in := &fetch.Request{Method: "POST", Format: fetch.FormatForm, Params: map[string]any{"a": 1}}
	resp, err := f.Fetch(context.Background(), engine.NewUnit[*fetch.Request, *fetch.Response]("https://api.example.com", in))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, fetch.FormatForm, req.got.Format)
}
