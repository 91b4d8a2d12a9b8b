package sales

import (
	"context"

	"caravan/internal/core/id"
)

// BackorderRepository defines persistence for shortage tracking rows.
type BackorderRepository interface {
	// ListPendingForUpdate returns locked PENDING rows for the given
	// variants, ordered priority DESC, created_at ASC (higher priority
	// first, FIFO within a tier).
	ListPendingForUpdate(ctx context.Context, variantIDs []id.ID) ([]*BackorderTracking, error)

	// Update persists shortage quantity, status, notes and resolution
	// fields. Rows are never deleted.
	Update(ctx context.Context, tracking *BackorderTracking) error
}

// SaleRepository defines the slice of sale persistence this engine needs.
type SaleRepository interface {
	// GetByID retrieves a sale header.
	// Returns NOT_FOUND AppError if absent.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// Update persists status and shortage quantity transitions.
	Update(ctx context.Context, sale *Sale) error

	// ListPreorderLines returns (sale, variant) demand rows for sales
	// with status PREORDER touching the given variants, oldest sale
	// first.
	ListPreorderLines(ctx context.Context, variantIDs []id.ID) ([]*PreorderLine, error)
}
