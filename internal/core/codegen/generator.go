// Package codegen provides domain contracts for sequence-backed code
// generation (variant codes, receipt numbers). Implementations live in
// the infrastructure layer.
package codegen

import (
	"context"
)

// Generator allocates monotonically increasing values for named sequences.
// Sequences start at 1 and never repeat; gaps are acceptable.
type Generator interface {
	// Next returns the next value of the named sequence.
	Next(ctx context.Context, key string) (int64, error)

	// Set forces the next value of the named sequence (for migration purposes).
	Set(ctx context.Context, key string, value int64) error
}
