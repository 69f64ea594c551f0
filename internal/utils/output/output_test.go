package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/law-makers/crawlflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHTML(t *testing.T) {
	got, err := CleanHTML(`<div class="x"><script>alert(1)</script><a href="/a" onclick="y">A</a><img src="i.png" width="3"></div>`)
	require.NoError(t, err)

	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "onclick")
	assert.NotContains(t, got, "class")
	assert.Contains(t, got, `href="/a"`)
	assert.Contains(t, got, `src="i.png"`)
}

func TestMarkdown_ResolvesLinks(t *testing.T) {
	got, err := Markdown(`<h1>Title</h1><p>See <a href="/docs">the docs</a>.</p>`, "https://example.com/a/b")
	require.NoError(t, err)

	assert.Contains(t, got, "# Title")
	assert.Contains(t, got, "[the docs](https://example.com/docs)")
}

func TestSave_ByExtension(t *testing.T) {
	dir := t.TempDir()
	results := []any{
		models.Link{Text: "A", URL: "https://example.com/a"},
		models.Link{Text: "B", URL: "https://example.com/b"},
	}

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, Save(results, jsonPath))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded []models.Link
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, 2)

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, Save(results, csvPath))
	raw, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, []string{"Text,URL", "A,https://example.com/a", "B,https://example.com/b"}, lines)

	assert.Error(t, Save(results, filepath.Join(dir, "out.xml")))
}

func TestSaveMarkdown_WritesArticles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	results := []any{
		models.Article{
			URL:      "https://example.com/x",
			Title:    "X",
			Fields:   map[string]string{"Year": "1999"},
			Markdown: "Body text",
		},
		models.Link{Text: "ignored", URL: "https://example.com"},
	}

	require.NoError(t, SaveMarkdown(results, path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "# X")
	assert.Contains(t, s, "- **Year**: 1999")
	assert.Contains(t, s, "Body text")
	assert.NotContains(t, s, "ignored")
}
