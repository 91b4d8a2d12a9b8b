package receiving

import (
	"context"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
	"caravan/internal/domain/fulfillment"
	"caravan/internal/domain/inventory"
	"caravan/internal/domain/purchases"
)

// AdditionalCostInput is one extra charge in a receive request.
type AdditionalCostInput struct {
	CostType    string
	Amount      types.Money
	Description string
}

// ItemDamage is one explicit per-product damage entry.
type ItemDamage struct {
	ProductID       id.ID
	DamagedQuantity int64
}

// ReceiveRequest carries the caller's input for one receiving event.
type ReceiveRequest struct {
	ActualQuantity int64
	ExchangeRate   types.Money

	LossType     LossType
	LossQuantity int64

	InspectionFee    types.Money
	AllocationMethod AllocationMethod
	AdditionalCosts  []AdditionalCostInput

	PreorderMode fulfillment.ConvertMode
	ItemDamages  []ItemDamage

	// Warehouse receiving stock; defaults to COMPANY.
	Warehouse inventory.Warehouse
}

// Validate rejects bad input before any write occurs.
func (r *ReceiveRequest) Validate(ctx context.Context) error {
	if r.ActualQuantity <= 0 {
		return apperror.NewValidation("actual quantity must be positive").
			WithDetail("field", "actualQuantity")
	}
	if r.LossQuantity < 0 {
		return apperror.NewValidation("loss quantity must not be negative").
			WithDetail("field", "lossQuantity")
	}
	if r.LossQuantity >= r.ActualQuantity {
		return apperror.NewValidation("loss quantity must be less than actual quantity").
			WithDetail("field", "lossQuantity").
			WithDetail("actual_quantity", r.ActualQuantity).
			WithDetail("loss_quantity", r.LossQuantity)
	}
	if r.LossType != "" && !r.LossType.Valid() {
		return apperror.NewValidation("unknown loss type").
			WithDetail("field", "lossType").
			WithDetail("value", string(r.LossType))
	}
	if !r.ExchangeRate.IsPositive() {
		return apperror.NewValidation("exchange rate must be positive").
			WithDetail("field", "exchangeRate")
	}
	if !r.AllocationMethod.Valid() {
		return apperror.NewValidation("unknown allocation method").
			WithDetail("field", "allocationMethod").
			WithDetail("value", string(r.AllocationMethod))
	}
	if !r.PreorderMode.Valid() {
		return apperror.NewValidation("unknown preorder mode").
			WithDetail("field", "preorderMode").
			WithDetail("value", string(r.PreorderMode))
	}
	if r.Warehouse != "" && !r.Warehouse.Valid() {
		return apperror.NewValidation("unknown warehouse").
			WithDetail("field", "warehouse").
			WithDetail("value", string(r.Warehouse))
	}
	for i, cost := range r.AdditionalCosts {
		if cost.Amount.IsNegative() {
			return apperror.NewValidation("additional cost amount must not be negative").
				WithDetail("field", "additionalCosts").
				WithDetail("index", i)
		}
	}
	for i, damage := range r.ItemDamages {
		if damage.DamagedQuantity < 0 {
			return apperror.NewValidation("damaged quantity must not be negative").
				WithDetail("field", "itemDamages").
				WithDetail("index", i)
		}
	}
	return nil
}

// DamageMap indexes the explicit per-product damage entries.
func (r *ReceiveRequest) DamageMap() map[id.ID]int64 {
	if len(r.ItemDamages) == 0 {
		return nil
	}
	m := make(map[id.ID]int64, len(r.ItemDamages))
	for _, d := range r.ItemDamages {
		m[d.ProductID] = d.DamagedQuantity
	}
	return m
}

// TargetWarehouse returns the requested warehouse or the COMPANY default.
func (r *ReceiveRequest) TargetWarehouse() inventory.Warehouse {
	if r.Warehouse == "" {
		return inventory.WarehouseCompany
	}
	return r.Warehouse
}

// InventoryUpdate reports one line's booking outcome.
type InventoryUpdate struct {
	ProductID id.ID `json:"productId"`
	VariantID id.ID `json:"variantId"`

	OrderedQuantity  int64 `json:"orderedQuantity"`
	ReceivedQuantity int64 `json:"receivedQuantity"`
	LossQuantity     int64 `json:"lossQuantity"`

	UnitCost  types.Money `json:"unitCost"`
	TotalCost types.Money `json:"totalCost"`

	// DamageTransfer is present only when the best-effort transfer
	// succeeded; failures appear in Warnings instead.
	DamageTransfer *inventory.DamageTransfer `json:"damageTransfer,omitempty"`
	Warnings       []string                  `json:"warnings,omitempty"`
}

// ReceiveResult is the consolidated outcome of one receiving event.
type ReceiveResult struct {
	GoodsReceiptID id.ID            `json:"goodsReceiptId"`
	ReceiptNumber  string           `json:"receiptNumber"`
	PurchaseStatus purchases.Status `json:"purchaseStatus"`

	InventoryUpdates []InventoryUpdate `json:"inventoryUpdates"`
	TotalCost        types.Money       `json:"totalCost"`

	// UnallocatedLoss is the floor-rounding residue of the proportional
	// loss split (see SplitLoss).
	UnallocatedLoss int64 `json:"unallocatedLoss,omitempty"`

	BackorderResult *fulfillment.ResolveResult `json:"backorderResolveResult,omitempty"`
	PreorderResult  *fulfillment.ConvertResult `json:"preorderConvertResult,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// ReceiveStatus is the read-only receiving summary for a purchase.
type ReceiveStatus struct {
	PurchaseID     id.ID            `json:"purchaseId"`
	PurchaseStatus purchases.Status `json:"purchaseStatus"`
	CanReceive     bool             `json:"canReceive"`
	Receipts       []*GoodsReceipt  `json:"receipts"`
}
