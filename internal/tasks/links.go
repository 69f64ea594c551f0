package tasks

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/metadata"
	"github.com/law-makers/crawlflow/internal/engine/static"
	urlutil "github.com/law-makers/crawlflow/internal/utils/url"
	"github.com/law-makers/crawlflow/pkg/models"
)

// Links collects the anchors of its seed pages.
type Links struct {
	static.DocumentFetcher[string]
	Seeds    []string
	SameHost bool
	Limit    int // Per page, 0 for no limit
}

// NewUnit builds a unit for the first seed.
func (p *Links) NewUnit(ctx context.Context) (*engine.Unit[string, *goquery.Document], error) {
	units, err := p.NewUnits(ctx)
	if err != nil {
		return nil, err
	}
	return units[0], nil
}

// NewUnits builds one unit per seed.
func (p *Links) NewUnits(context.Context) ([]*engine.Unit[string, *goquery.Document], error) {
	if len(p.Seeds) == 0 {
		return nil, noURL(LinksTask, "tasks.links.urls")
	}
	units := make([]*engine.Unit[string, *goquery.Document], 0, len(p.Seeds))
	for _, seed := range p.Seeds {
		if err := urlutil.ValidateURL(seed); err != nil {
			return nil, engine.NewEngineError(engine.ErrCodeValidation, "invalid seed URL", err).
				WithDetail("url", seed)
		}
		units = append(units, engine.NewUnit[string, *goquery.Document](seed, seed))
	}
	return units, nil
}

// Transform extracts the unique absolute links of the page.
func (p *Links) Transform(_ context.Context, u *engine.Unit[string, *goquery.Document]) ([]models.Link, error) {
	all := metadata.Links(u.Output, u.URL)
	links := make([]models.Link, 0, len(all))
	for _, l := range all {
		if p.SameHost && !urlutil.SameHost(u.URL, l.URL) {
			continue
		}
		links = append(links, l)
		if p.Limit > 0 && len(links) == p.Limit {
			break
		}
	}
	return links, nil
}
