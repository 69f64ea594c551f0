package tasks

import (
	"context"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/static"
	"github.com/law-makers/crawlflow/pkg/models"
)

// Raw fetches response bodies through the proxy client.
type Raw struct {
	static.BodyFetcher[string]
	URLs     []string
	KeepBody bool
}

// NewUnit builds a unit for the first configured URL.
func (p *Raw) NewUnit(ctx context.Context) (*engine.Unit[string, string], error) {
	units, err := p.NewUnits(ctx)
	if err != nil {
		return nil, err
	}
	return units[0], nil
}

// NewUnits builds one unit per configured URL.
func (p *Raw) NewUnits(context.Context) ([]*engine.Unit[string, string], error) {
	if len(p.URLs) == 0 {
		return nil, noURL(RawTask, "tasks.raw.urls")
	}
	return p.units(p.URLs), nil
}

// NewUnitsFrom builds one unit per link found by a previous stage.
func (p *Raw) NewUnitsFrom(_ context.Context, prior []any) ([]*engine.Unit[string, string], error) {
	return p.units(urlsFrom(prior)), nil
}

func (p *Raw) units(urls []string) []*engine.Unit[string, string] {
	units := make([]*engine.Unit[string, string], 0, len(urls))
	for _, u := range urls {
		units = append(units, engine.NewUnit[string, string](u, u))
	}
	return units
}

func (p *Raw) Transform(_ context.Context, u *engine.Unit[string, string]) (models.RawPage, error) {
	page := models.RawPage{URL: u.URL, Length: len(u.Output)}
	if p.KeepBody {
		page.Body = u.Output
	}
	return page, nil
}
