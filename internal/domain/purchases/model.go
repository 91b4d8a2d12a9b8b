// Package purchases provides purchase orders placed with suppliers.
// Purchase CRUD and the confirmation workflow live outside this core;
// receiving only reads purchases and advances CONFIRMED to RECEIVED.
package purchases

import (
	"time"

	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// Status is the purchase order lifecycle.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusReceived  Status = "RECEIVED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// CanReceive reports whether a receiving event may start.
// Only a CONFIRMED purchase may be received; re-receiving requires an
// explicit undo of the prior receipt, which is outside this core.
func (s Status) CanReceive() bool {
	return s == StatusConfirmed
}

// Purchase is an order placed with a supplier.
type Purchase struct {
	ID       id.ID  `db:"id" json:"id"`
	Number   string `db:"number" json:"number"`
	Supplier string `db:"supplier" json:"supplier"`
	Status   Status `db:"status" json:"status"`

	// Currency is the supplier's currency; item unit prices are foreign.
	Currency string `db:"currency" json:"currency"`

	ReceivedAt *time.Time `db:"received_at" json:"receivedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`

	Items []PurchaseItem `db:"-" json:"items"`
}

// PurchaseItem is one ordered line.
type PurchaseItem struct {
	ID         id.ID `db:"id" json:"id"`
	PurchaseID id.ID `db:"purchase_id" json:"purchaseId"`
	ProductID  id.ID `db:"product_id" json:"productId"`

	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"` // foreign currency

	// Weight in kilograms; zero means not captured.
	Weight types.Money `db:"weight" json:"weight"`
}

// TotalAmount returns the order total in foreign currency.
func (p *Purchase) TotalAmount() types.Money {
	total := types.Zero()
	for _, item := range p.Items {
		total = total.Add(item.UnitPrice.Mul(types.NewMoneyFromInt(item.Quantity)))
	}
	return total
}

// TotalQuantity returns the total ordered quantity across lines.
func (p *Purchase) TotalQuantity() int64 {
	var total int64
	for _, item := range p.Items {
		total += item.Quantity
	}
	return total
}
