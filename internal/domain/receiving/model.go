package receiving

import (
	"time"

	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// LossType classifies declared receiving loss.
type LossType string

const (
	LossNone     LossType = "NONE"
	LossDamage   LossType = "DAMAGE"
	LossShortage LossType = "SHORTAGE"
	LossCustoms  LossType = "CUSTOMS"
)

// Valid reports whether the loss type is a member of the closed set.
func (t LossType) Valid() bool {
	switch t {
	case LossNone, LossDamage, LossShortage, LossCustoms:
		return true
	}
	return false
}

// AdditionalCost is one named extra charge on a receipt (freight, etc.).
type AdditionalCost struct {
	ID          id.ID       `db:"id" json:"id"`
	ReceiptID   id.ID       `db:"receipt_id" json:"receiptId"`
	CostType    string      `db:"cost_type" json:"costType"`
	Amount      types.Money `db:"amount" json:"amount"`
	Description string      `db:"description" json:"description,omitempty"`
}

// GoodsReceipt is one record per receiving event for a purchase.
// Created exactly once per event; re-receiving a purchase requires an
// explicit undo of the prior receipt, outside this core.
type GoodsReceipt struct {
	ID         id.ID  `db:"id" json:"id"`
	Number     string `db:"number" json:"number"`
	PurchaseID id.ID  `db:"purchase_id" json:"purchaseId"`

	ActualQuantity int64       `db:"actual_quantity" json:"actualQuantity"`
	ExchangeRate   types.Money `db:"exchange_rate" json:"exchangeRate"`

	LossType     LossType `db:"loss_type" json:"lossType"`
	LossQuantity int64    `db:"loss_quantity" json:"lossQuantity"`

	InspectionFee    types.Money      `db:"inspection_fee" json:"inspectionFee"`
	AllocationMethod AllocationMethod `db:"allocation_method" json:"allocationMethod"`
	TotalCost        types.Money      `db:"total_cost" json:"totalCost"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Costs []AdditionalCost `db:"-" json:"costs,omitempty"`
}
