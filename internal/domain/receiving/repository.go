package receiving

import (
	"context"

	"caravan/internal/core/id"
)

// Repository defines persistence operations for goods receipts.
type Repository interface {
	// Create inserts the receipt header and its additional cost rows.
	Create(ctx context.Context, receipt *GoodsReceipt) error

	// ListByPurchase returns receipts for a purchase, oldest first.
	ListByPurchase(ctx context.Context, purchaseID id.ID) ([]*GoodsReceipt, error)
}

// AuditSink records a committed receipt's payload for later inspection.
// Recording is best-effort: failures are logged, never surfaced.
type AuditSink interface {
	RecordReceipt(ctx context.Context, receiptID, purchaseID id.ID, payload any) error
}
