package purchases

import (
	"context"
	"time"

	"caravan/internal/core/id"
)

// Repository defines persistence operations for purchases.
type Repository interface {
	// GetByID retrieves a purchase with items.
	// Returns NOT_FOUND AppError if absent.
	GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error)

	// GetForUpdate retrieves a purchase with items, locking the header
	// row. Receiving takes this lock first so two receipts of the same
	// purchase serialize before touching inventory.
	GetForUpdate(ctx context.Context, purchaseID id.ID) (*Purchase, error)

	// SetReceived advances the purchase to RECEIVED and stamps the
	// received timestamp.
	SetReceived(ctx context.Context, purchaseID id.ID, receivedAt time.Time) error
}
