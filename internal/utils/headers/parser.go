package headers

import (
	"net/http"
	"strings"
)

// ParseHeaders converts an array of header strings ("Key: Value") into a map.
// Entries without a colon or with an empty key are skipped.
func ParseHeaders(h []string) map[string]string {
	m := make(map[string]string)
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		m[key] = strings.TrimSpace(value)
	}
	return m
}

// Apply sets every entry of m on h, replacing existing values.
func Apply(h http.Header, m map[string]string) {
	for key, value := range m {
		h.Set(key, value)
	}
}
