// Package identity rotates the cosmetic client identity (user agent) sent with
// outgoing requests and browser sessions.
package identity

import (
	"strings"
	"sync/atomic"
)

// Rotator hands out values round-robin. It is safe for concurrent use.
type Rotator struct {
	values []string
	next   atomic.Uint64
}

// NewRotator creates a Rotator over the non-blank values.
func NewRotator(values []string) *Rotator {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return &Rotator{values: cleaned}
}

// Next returns the next value, or "" when the rotator is empty.
func (r *Rotator) Next() string {
	if r == nil || len(r.values) == 0 {
		return ""
	}
	n := r.next.Add(1) - 1
	return r.values[n%uint64(len(r.values))]
}

// Len returns the number of values in rotation.
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}
