package inventory

import (
	"context"
	"time"

	"caravan/internal/core/id"
)

// Repository defines persistence operations for the inventory ledger.
// All mutating methods must be called inside a transaction; lot-level
// serialization relies on the FOR UPDATE row locks the *ForUpdate
// methods take.
type Repository interface {
	// GetForUpdate returns the locked record for (variant, warehouse),
	// or nil when no record exists yet.
	GetForUpdate(ctx context.Context, variantID id.ID, warehouse Warehouse) (*Record, error)

	// ListByVariantForUpdate returns all locked records for a variant,
	// oldest first (created_at ASC). This is the lot consumption order.
	ListByVariantForUpdate(ctx context.Context, variantID id.ID) ([]*Record, error)

	// ListByVariant returns an unlocked snapshot of a variant's records.
	ListByVariant(ctx context.Context, variantID id.ID) ([]*Record, error)

	// Create inserts a new record (quantity=reserved=0).
	Create(ctx context.Context, rec *Record) error

	// UpdateCounts persists quantity/reserved/available for a record.
	UpdateCounts(ctx context.Context, rec *Record) error

	// AppendMovements appends audit rows. Movements are never updated
	// or deleted.
	AppendMovements(ctx context.Context, movements []*Movement) error

	// ListMovements returns the movement log for a variant in
	// timestamp order.
	ListMovements(ctx context.Context, variantID id.ID, filter MovementFilter) ([]*Movement, error)
}

// MovementFilter narrows movement log queries.
type MovementFilter struct {
	Warehouse *Warehouse
	Type      *MovementType
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}
