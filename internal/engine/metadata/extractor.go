// internal/engine/metadata/extractor.go
package metadata

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/crawlflow/internal/utils/url"
	"github.com/law-makers/crawlflow/pkg/models"
)

// citationMark matches reference markers such as "[12]".
var citationMark = regexp.MustCompile(`\[\d+]`)

// Title returns the document title, falling back to og:title and the first h1.
func Title(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := Meta(doc)["og:title"]; t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// Description returns the meta or og description.
func Description(doc *goquery.Document) string {
	meta := Meta(doc)
	if d := meta["description"]; d != "" {
		return d
	}
	return meta["og:description"]
}

// Meta collects <meta name|property content> pairs.
func Meta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	if doc == nil {
		return meta
	}
	doc.Find("meta").Each(func(i int, sel *goquery.Selection) {
		content, _ := sel.Attr("content")
		if name, ok := sel.Attr("name"); ok {
			meta[strings.ToLower(name)] = strings.TrimSpace(content)
		}
		if property, ok := sel.Attr("property"); ok {
			meta[strings.ToLower(property)] = strings.TrimSpace(content)
		}
	})
	return meta
}

// Links returns the unique absolute links of the document, resolved against
// base, with their anchor text.
func Links(doc *goquery.Document, base string) []models.Link {
	if doc == nil {
		return nil
	}
	var links []models.Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = NormalizeURL(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		abs := StripFragment(urlutil.ResolveURL(base, href))
		if !IsAbsoluteURL(abs) || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, models.Link{
			Text: strings.Join(strings.Fields(sel.Text()), " "),
			URL:  abs,
		})
	})
	return links
}

// DefinitionFields pairs the <dt> and <dd> items of the document, matched by
// position. Citation marks are removed from the values.
func DefinitionFields(doc *goquery.Document, termSel, valueSel string) map[string]string {
	fields := make(map[string]string)
	if doc == nil {
		return fields
	}
	if termSel == "" {
		termSel = "dt"
	}
	if valueSel == "" {
		valueSel = "dd"
	}

	terms := doc.Find(termSel)
	values := doc.Find(valueSel)
	n := min(terms.Length(), values.Length())
	for i := 0; i < n; i++ {
		key := strings.TrimSpace(terms.Eq(i).Text())
		if key == "" {
			continue
		}
		fields[key] = CleanCitations(values.Eq(i).Text())
	}
	return fields
}

// CleanCitations strips reference markers and surrounding space.
func CleanCitations(s string) string {
	return strings.TrimSpace(citationMark.ReplaceAllString(s, ""))
}

// ExtractContent returns the text and inner HTML of the first element matching
// selector, or of the body when nothing matches. Alternatives separated by
// commas are tried in the order given.
func ExtractContent(doc *goquery.Document, selector string) (content string, html string) {
	if doc == nil {
		return "", ""
	}

	for _, sel := range strings.Split(selector, ",") {
		sel = strings.TrimSpace(sel)
		if sel == "" || sel == "body" {
			continue
		}
		if selection := doc.Find(sel).First(); selection.Length() > 0 {
			content = strings.TrimSpace(selection.Text())
			html, _ = selection.Html()
			return content, html
		}
	}

	content = strings.TrimSpace(doc.Find("body").Text())
	html, _ = doc.Find("body").Html()
	return content, html
}
