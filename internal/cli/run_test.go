package cli

import (
	"testing"

	"github.com/law-makers/crawlflow/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestApplyURLOverride_TargetsFirstStage(t *testing.T) {
	cfg := &config.Config{}
	applyURLOverride(cfg, []string{"article", "links"}, "https://example.com")

	assert.Equal(t, []string{"https://example.com"}, cfg.Tasks.Links.URLs)
	assert.Empty(t, cfg.Tasks.Article.URL)
}

func TestApplyURLOverride_SingleTask(t *testing.T) {
	cfg := &config.Config{}
	applyURLOverride(cfg, []string{"api"}, "https://api.example.com")
	assert.Equal(t, "https://api.example.com", cfg.Tasks.API.URL)

	applyURLOverride(cfg, []string{"raw"}, "")
	assert.Empty(t, cfg.Tasks.Raw.URLs)
}
