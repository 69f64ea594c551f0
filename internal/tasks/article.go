package tasks

import (
	"context"
	"time"

	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/dynamic"
	"github.com/law-makers/crawlflow/internal/engine/metadata"
	"github.com/law-makers/crawlflow/internal/reqctx"
	"github.com/law-makers/crawlflow/internal/utils/output"
	"github.com/law-makers/crawlflow/pkg/models"
)

// Article renders pages in a pooled browser and keeps their content as
// Markdown along with their definition-list fields.
type Article struct {
	dynamic.BrowserFetcher[string, models.Article]
	URL      string
	Selector string // Content root, comma separated alternatives
}

// NewUnit builds a unit for the configured URL.
func (p *Article) NewUnit(context.Context) (*engine.Unit[string, *dynamic.Session], error) {
	if p.URL == "" {
		return nil, noURL(ArticleTask, "tasks.article.url")
	}
	return engine.NewUnit[string, *dynamic.Session](p.URL, p.URL), nil
}

// NewUnits builds the single configured unit.
func (p *Article) NewUnits(ctx context.Context) ([]*engine.Unit[string, *dynamic.Session], error) {
	u, err := p.NewUnit(ctx)
	if err != nil {
		return nil, err
	}
	return []*engine.Unit[string, *dynamic.Session]{u}, nil
}

// NewUnitsFrom builds one unit per link found by a previous stage.
func (p *Article) NewUnitsFrom(_ context.Context, prior []any) ([]*engine.Unit[string, *dynamic.Session], error) {
	urls := urlsFrom(prior)
	units := make([]*engine.Unit[string, *dynamic.Session], 0, len(urls))
	for _, u := range urls {
		units = append(units, engine.NewUnit[string, *dynamic.Session](u, u))
	}
	return units, nil
}

// Transform reads the rendered page of the unit's session.
func (p *Article) Transform(ctx context.Context, u *engine.Unit[string, *dynamic.Session]) (models.Article, error) {
	doc, err := dynamic.Document(ctx, u.Output)
	if err != nil {
		return models.Article{}, engine.NewEngineError(engine.ErrCodeFetch, "failed to read rendered page", err).
			WithDetail("url", u.URL)
	}

	_, html := metadata.ExtractContent(doc, p.Selector)
	markdown, err := output.Markdown(html, u.URL)
	if err != nil {
		return models.Article{}, err
	}

	a := models.Article{
		URL:         u.URL,
		Title:       metadata.Title(doc),
		Description: metadata.Description(doc),
		Meta:        metadata.Meta(doc),
		Fields:      metadata.DefinitionFields(doc, "", ""),
		Markdown:    markdown,
		FetchedAt:   time.Now().UTC(),
	}

	logger := reqctx.Logger(ctx)
	logger.Debug().
		Str("url", u.URL).
		Str("title", a.Title).
		Int("fields", len(a.Fields)).
		Msg("Article extracted")
	return a, nil
}
