// Package tasks holds the built-in pipelines and binds them to the registry.
package tasks

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/crawlflow/internal/config"
	"github.com/law-makers/crawlflow/internal/dispatch"
	"github.com/law-makers/crawlflow/internal/engine"
	"github.com/law-makers/crawlflow/internal/engine/batch"
	"github.com/law-makers/crawlflow/internal/engine/dynamic"
	"github.com/law-makers/crawlflow/internal/engine/metadata"
	"github.com/law-makers/crawlflow/internal/engine/static"
	"github.com/law-makers/crawlflow/internal/fetch"
	"github.com/law-makers/crawlflow/internal/utils/headers"
	"github.com/law-makers/crawlflow/pkg/models"
)

// Task names.
const (
	LinksTask   = "links"
	ArticleTask = "article"
	RawTask     = "raw"
	APITask     = "api"
)

// Deps are the shared fetchers the built-in tasks run on.
type Deps struct {
	Proxy             static.BodySource
	HTTP              static.Requester
	Sessions          dynamic.SessionSource
	Orchestrator      *batch.Orchestrator
	Options           engine.Options
	NavigationTimeout time.Duration
}

// Register binds every built-in task to reg.
func Register(reg *dispatch.Registry, cfg config.TasksConfig, deps Deps) error {
	links := &Links{
		DocumentFetcher: static.DocumentFetcher[string]{Source: deps.Proxy},
		Seeds:           cfg.Links.URLs,
		SameHost:        cfg.Links.SameHost,
		Limit:           cfg.Links.Limit,
	}

	article := &Article{
		BrowserFetcher: dynamic.BrowserFetcher[string, models.Article]{
			Sessions:          deps.Sessions,
			NavigationTimeout: deps.NavigationTimeout,
			BeforeNavigate:    dynamic.DismissDialogs(),
			AfterNavigate:     dynamic.ScrollToBottom(),
		},
		URL:      cfg.Article.URL,
		Selector: cfg.Article.Selector,
	}
	switch {
	case cfg.Article.WaitSelector != "":
		article.Wait = dynamic.WaitVisible(cfg.Article.WaitSelector)
	case cfg.Article.Wait == "load":
		article.Wait = dynamic.WaitLoad()
	}

	raw := &Raw{
		BodyFetcher: static.BodyFetcher[string]{Source: deps.Proxy},
		URLs:        cfg.Raw.URLs,
		KeepBody:    cfg.Raw.KeepBody,
	}

	api := &API{
		RequestFetcher: static.RequestFetcher{Client: deps.HTTP},
		URL:            cfg.API.URL,
		Request: fetch.Request{
			Method:  strings.ToUpper(cfg.API.Method),
			Headers: headers.ParseHeaders(cfg.API.Headers),
			Format:  fetch.Format(strings.ToLower(cfg.API.Format)),
			Params:  cfg.API.Params,
		},
	}

	for _, t := range []dispatch.Task{
		dispatch.Bind[string, *goquery.Document, []models.Link](LinksTask, 10, links, deps.Options, deps.Orchestrator),
		dispatch.Bind[string, *dynamic.Session, models.Article](ArticleTask, 20, article, deps.Options, deps.Orchestrator),
		dispatch.Bind[string, string, models.RawPage](RawTask, 20, raw, deps.Options, deps.Orchestrator),
		dispatch.Bind[*fetch.Request, *fetch.Response, models.APIResult](APITask, 10, api, deps.Options, deps.Orchestrator),
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// urlsFrom extracts target URLs from the results of a previous stage. Links
// and plain strings are accepted; duplicates and blanks are dropped.
func urlsFrom(prior []any) []string {
	urls := make([]string, 0, len(prior))
	for _, v := range prior {
		var u string
		switch p := v.(type) {
		case models.Link:
			u = p.URL
		case *models.Link:
			if p != nil {
				u = p.URL
			}
		case string:
			u = p
		}
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return metadata.FilterUniqueLinks(urls)
}

func noURL(task, key string) error {
	return engine.NewEngineError(engine.ErrCodeValidation, "no URL configured", nil).
		WithDetail("task", task).
		WithDetail("key", key)
}
