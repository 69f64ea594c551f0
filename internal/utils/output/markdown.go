package output

import (
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/crawlflow/internal/utils/url"
	"github.com/law-makers/crawlflow/pkg/models"
)

// Markdown cleans htmlContent and converts it to GitHub flavored Markdown.
// Relative links are resolved against baseURL.
func Markdown(htmlContent, baseURL string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}

			resolved := urlutil.ResolveURL(baseURL, href)
			title, hasTitle := selec.Attr("title")
			var titlePart string
			if hasTitle {
				titlePart = fmt.Sprintf(" %q", title)
			}
			str := fmt.Sprintf("[%s](%s)%s", strings.TrimSpace(selec.Text()), resolved, titlePart)
			return &str
		},
	})

	cleaned, err := CleanHTML(htmlContent)
	if err != nil {
		return "", err
	}
	return converter.ConvertString(cleaned)
}

// SaveMarkdown writes articles as one Markdown document, each under its own
// heading. Results of other types are skipped.
func SaveMarkdown(results []any, filepath string) error {
	var sb strings.Builder
	for _, r := range results {
		a, ok := articleOf(r)
		if !ok {
			continue
		}
		title := a.Title
		if title == "" {
			title = a.URL
		}
		fmt.Fprintf(&sb, "# %s\n\n", title)
		fmt.Fprintf(&sb, "Source: <%s>\n\n", a.URL)
		if a.Description != "" {
			fmt.Fprintf(&sb, "> %s\n\n", a.Description)
		}
		for _, k := range sortedKeys(a.Fields) {
			fmt.Fprintf(&sb, "- **%s**: %s\n", k, a.Fields[k])
		}
		if len(a.Fields) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimSpace(a.Markdown))
		sb.WriteString("\n\n")
	}
	return os.WriteFile(filepath, []byte(sb.String()), 0644)
}

func articleOf(v any) (models.Article, bool) {
	switch a := v.(type) {
	case models.Article:
		return a, true
	case *models.Article:
		if a != nil {
			return *a, true
		}
	}
	return models.Article{}, false
}
