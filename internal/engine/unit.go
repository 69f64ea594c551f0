package engine

import "github.com/google/uuid"

// Unit is one piece of fetch/transform work. It belongs to a single pipeline
// invocation and is never shared between goroutines.
type Unit[I, O any] struct {
	ID         string
	URL        string
	Input      I
	Output     O
	Extensions map[string]any
}

// NewUnit creates a unit for url with the given input and an empty output slot.
func NewUnit[I, O any](url string, input I) *Unit[I, O] {
	return &Unit[I, O]{
		ID:         uuid.NewString(),
		URL:        url,
		Input:      input,
		Extensions: make(map[string]any),
	}
}

// SetExt stores an extension value on the unit.
func (u *Unit[I, O]) SetExt(key string, value any) {
	if u.Extensions == nil {
		u.Extensions = make(map[string]any)
	}
	u.Extensions[key] = value
}

// Ext returns an extension value.
func (u *Unit[I, O]) Ext(key string) (any, bool) {
	v, ok := u.Extensions[key]
	return v, ok
}
