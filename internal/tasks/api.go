package tasks

import (
	"context"
	"strings"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/static"
	"github.com/law-makers/crawlflow/internal/fetch"
	"github.com/law-makers/crawlflow/pkg/models"
)

// API sends one configured request directly, without the proxy.
type API struct {
	static.RequestFetcher
	URL     string
	Request fetch.Request
}

// NewUnit builds the configured request. Each unit gets its own copy.
func (p *API) NewUnit(context.Context) (*engine.Unit[*fetch.Request, *fetch.Response], error) {
	if p.URL == "" {
		return nil, noURL(APITask, "tasks.api.url")
	}
	req := p.Request
	return engine.NewUnit[*fetch.Request, *fetch.Response](p.URL, &req), nil
}

func (p *API) NewUnits(ctx context.Context) ([]*engine.Unit[*fetch.Request, *fetch.Response], error) {
	u, err := p.NewUnit(ctx)
	if err != nil {
		return nil, err
	}
	return []*engine.Unit[*fetch.Request, *fetch.Response]{u}, nil
}

// Transform decodes JSON bodies and keeps anything else as text.
func (p *API) Transform(_ context.Context, u *engine.Unit[*fetch.Request, *fetch.Response]) (models.APIResult, error) {
	resp := u.Output
	result := models.APIResult{URL: u.URL, Status: resp.StatusCode}

	var data any
	if isJSON(resp) && resp.DecodeJSON(&data) == nil {
		result.Data = data
	} else {
		result.Data = resp.Text()
	}
	return result, nil
}

func isJSON(resp *fetch.Response) bool {
	if resp.Header != nil && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return true
	}
	body := strings.TrimSpace(resp.Text())
	return strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")
}
