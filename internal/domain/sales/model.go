// Package sales provides customer orders and backorder shortage tracking.
// Sales are owned by the sales subsystem; this engine only reads line
// quantities and writes the status transitions triggered by backorder
// resolution and preorder conversion.
package sales

import (
	"fmt"
	"time"

	"caravan/internal/core/id"
)

// Status is the sale lifecycle as seen by this engine.
type Status string

const (
	StatusPreorder           Status = "PREORDER"
	StatusPartiallyConfirmed Status = "PARTIALLY_CONFIRMED"
	StatusConfirmed          Status = "CONFIRMED"
	StatusBackorder          Status = "BACKORDER"
	StatusShipped            Status = "SHIPPED"
	StatusCancelled          Status = "CANCELLED"
)

// Sale is a customer order header.
type Sale struct {
	ID     id.ID  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`
	Status Status `db:"status" json:"status"`

	// ShortageQuantity is the total unmet quantity for partially
	// confirmed sales; cleared when the sale is promoted to CONFIRMED.
	ShortageQuantity int64 `db:"shortage_quantity" json:"shortageQuantity"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SaleItem is one requested line of a sale.
type SaleItem struct {
	ID        id.ID `db:"id" json:"id"`
	SaleID    id.ID `db:"sale_id" json:"saleId"`
	VariantID id.ID `db:"variant_id" json:"variantId"`
	Quantity  int64 `db:"quantity" json:"quantity"`
}

// BackorderStatus is the shortage record lifecycle.
type BackorderStatus string

const (
	BackorderPending  BackorderStatus = "PENDING"
	BackorderResolved BackorderStatus = "RESOLVED"
)

// BackorderTracking is one row per (sale, variant) shortage. Rows are
// never deleted; they only transition status with an appended note.
type BackorderTracking struct {
	ID        id.ID `db:"id" json:"id"`
	SaleID    id.ID `db:"sale_id" json:"saleId"`
	VariantID id.ID `db:"variant_id" json:"variantId"`

	ShortageQuantity int64           `db:"shortage_quantity" json:"shortageQuantity"`
	Priority         int             `db:"priority" json:"priority"`
	Status           BackorderStatus `db:"status" json:"status"`
	Notes            string          `db:"notes" json:"notes,omitempty"`

	ResolvedAt *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolvedBy string     `db:"resolved_by" json:"resolvedBy,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// AppendNote appends a timestamped note to the tracking row.
func (b *BackorderTracking) AppendNote(note string) {
	stamp := time.Now().UTC().Format(time.RFC3339)
	if b.Notes != "" {
		b.Notes += "\n"
	}
	b.Notes += fmt.Sprintf("[%s] %s", stamp, note)
}

// MarkResolved transitions the row to RESOLVED.
func (b *BackorderTracking) MarkResolved(resolvedBy string) {
	now := time.Now().UTC()
	b.Status = BackorderResolved
	b.ResolvedAt = &now
	b.ResolvedBy = resolvedBy
	b.UpdatedAt = now
}

// PreorderLine is one (sale, variant) preorder demand row.
type PreorderLine struct {
	SaleID     id.ID     `db:"sale_id" json:"saleId"`
	SaleNumber string    `db:"sale_number" json:"saleNumber"`
	VariantID  id.ID     `db:"variant_id" json:"variantId"`
	Quantity   int64     `db:"quantity" json:"quantity"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
