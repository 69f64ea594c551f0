// internal/engine/metadata/utils.go
package metadata

import (
	"strings"
)

// NormalizeURL trims whitespace around a URL
func NormalizeURL(url string) string {
	return strings.TrimSpace(url)
}

// IsAbsoluteURL checks if a URL is absolute http(s)
func IsAbsoluteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// StripFragment drops everything from the first '#'.
func StripFragment(url string) string {
	if idx := strings.IndexByte(url, '#'); idx >= 0 {
		return url[:idx]
	}
	return url
}

// FilterUniqueLinks removes duplicate links, keeping first occurrences
func FilterUniqueLinks(links []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(links))

	for _, link := range links {
		if !seen[link] {
			seen[link] = true
			result = append(result, link)
		}
	}

	return result
}
