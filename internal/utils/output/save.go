package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Save writes results to path in the format implied by its extension:
// .json, .csv or .md.
func Save(results []any, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(results, path)
	case ".csv":
		return SaveCSV(results, path)
	case ".md", ".markdown":
		return SaveMarkdown(results, path)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}
