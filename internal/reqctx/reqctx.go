// Package reqctx carries batch and unit identifiers through a context so log
// lines from one invocation can be correlated.
package reqctx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const (
	batchKey key = iota
	unitKey
)

// BatchContext identifies one orchestrated batch.
type BatchContext struct {
	BatchID   string
	StartTime time.Time
}

// WithBatch returns a context carrying a fresh batch id.
func WithBatch(ctx context.Context) context.Context {
	return context.WithValue(ctx, batchKey, &BatchContext{
		BatchID:   uuid.NewString(),
		StartTime: time.Now(),
	})
}

// GetBatch returns the batch of ctx, or nil outside a batch.
func GetBatch(ctx context.Context) *BatchContext {
	if bc, ok := ctx.Value(batchKey).(*BatchContext); ok {
		return bc
	}
	return nil
}

// WithUnit tags ctx with the id of the unit being processed.
func WithUnit(ctx context.Context, unitID string) context.Context {
	return context.WithValue(ctx, unitKey, unitID)
}

// UnitID returns the unit id of ctx or "".
func UnitID(ctx context.Context) string {
	id, _ := ctx.Value(unitKey).(string)
	return id
}

// Logger returns the global logger enriched with the ids found in ctx.
func Logger(ctx context.Context) zerolog.Logger {
	lc := log.With()
	if bc := GetBatch(ctx); bc != nil {
		lc = lc.Str("batch_id", bc.BatchID)
	}
	if id := UnitID(ctx); id != "" {
		lc = lc.Str("unit_id", id)
	}
	return lc.Logger()
}
