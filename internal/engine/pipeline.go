// internal/engine/pipeline.go
package engine

import (
	"context"
	"errors"
)

// Pipeline is the contract one task type implements: unit factories, a
// fetch phase and a transform phase over input I, fetched output O and
// result R.
type Pipeline[I, O, R any] interface {
	// NewUnit builds the unit for a single fetch.
	NewUnit(ctx context.Context) (*Unit[I, O], error)
	// NewUnits builds the units for a batch.
	NewUnits(ctx context.Context) ([]*Unit[I, O], error)
	// Fetch produces the output for u. A zero value counts as a failure.
	Fetch(ctx context.Context, u *Unit[I, O]) (O, error)
	// Transform turns the fetched output into a result.
	Transform(ctx context.Context, u *Unit[I, O]) (R, error)
}

// Chainer is implemented by pipelines that can be fed by a previous stage.
type Chainer[I, O any] interface {
	NewUnitsFrom(ctx context.Context, prior []any) ([]*Unit[I, O], error)
}

// BeforeHook runs once before the first fetch attempt.
type BeforeHook[I, O any] interface {
	Before(ctx context.Context, u *Unit[I, O]) error
}

// AfterHook always runs once at the end of an invocation, err being the
// failure of fetch or transform if any.
type AfterHook[I, O, R any] interface {
	After(ctx context.Context, u *Unit[I, O], result R, err error)
}

// PolicyProvider overrides the retryable failure kinds of a pipeline.
type PolicyProvider interface {
	RetryPolicy() RetryPolicy
}

// RetryPolicy is the set of failure kinds that may be retried.
type RetryPolicy struct {
	Retryable []ErrorCode
}

// Allows reports whether err is of a retryable kind.
func (p RetryPolicy) Allows(err error) bool {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return false
	}
	for _, c := range p.Retryable {
		if c == ee.Code {
			return true
		}
	}
	return false
}

var (
	// BrowserPolicy is the default for pooled-browser pipelines.
	BrowserPolicy = RetryPolicy{Retryable: []ErrorCode{ErrCodeNavigationTimeout, ErrCodeRetry}}
	// HTTPPolicy is the default for proxy and direct HTTP pipelines.
	HTTPPolicy = RetryPolicy{Retryable: []ErrorCode{ErrCodeRequestTimeout, ErrCodeTLSHandshake, ErrCodeRetry}}
)

// PolicyOf returns the pipeline's own policy or HTTPPolicy.
func PolicyOf(p any) RetryPolicy {
	if pp, ok := p.(PolicyProvider); ok {
		return pp.RetryPolicy()
	}
	return HTTPPolicy
}
