package models

import "time"

// Link is an anchor discovered on a page.
type Link struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url"`
}

// Article is the rendered content of one page.
type Article struct {
	URL         string            `json:"url"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Markdown    string            `json:"markdown,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

// RawPage is an unparsed response body.
type RawPage struct {
	URL    string `json:"url"`
	Length int    `json:"length"`
	Body   string `json:"body,omitempty"`
}

// APIResult is the outcome of a direct HTTP request. Data holds the decoded
// JSON body when the response is JSON, the raw text otherwise.
type APIResult struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Data   any    `json:"data"`
}
