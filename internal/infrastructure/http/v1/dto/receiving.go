package dto

import (
	"github.com/shopspring/decimal"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/domain/fulfillment"
	"caravan/internal/domain/inventory"
	"caravan/internal/domain/receiving"
)

// --- Request DTOs ---

// AdditionalCostRequest is one extra charge on a receive request.
type AdditionalCostRequest struct {
	CostType    string          `json:"costType" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ItemDamageRequest is one explicit per-product damage entry.
type ItemDamageRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	DamagedQuantity int64  `json:"damagedQuantity"`
}

// ReceiveRequest is the API shape of one receiving event.
type ReceiveRequest struct {
	ActualQuantity int64           `json:"actualQuantity" binding:"required"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate" binding:"required"`

	LossType     string `json:"lossType"`
	LossQuantity int64  `json:"lossQuantity"`

	InspectionFee    decimal.Decimal         `json:"inspectionFee"`
	AllocationMethod string                  `json:"allocationMethod" binding:"required"`
	AdditionalCosts  []AdditionalCostRequest `json:"additionalCosts"`

	PreorderMode string              `json:"preorderMode"`
	ItemDamages  []ItemDamageRequest `json:"itemDamages"`

	Warehouse string `json:"warehouse"`
}

// ToDomain converts the API request to the domain request.
// Preorder mode defaults to SKIP when omitted.
func (r *ReceiveRequest) ToDomain() (*receiving.ReceiveRequest, error) {
	req := &receiving.ReceiveRequest{
		ActualQuantity:   r.ActualQuantity,
		ExchangeRate:     r.ExchangeRate,
		LossType:         receiving.LossType(r.LossType),
		LossQuantity:     r.LossQuantity,
		InspectionFee:    r.InspectionFee,
		AllocationMethod: receiving.AllocationMethod(r.AllocationMethod),
		PreorderMode:     fulfillment.ConvertMode(r.PreorderMode),
		Warehouse:        inventory.Warehouse(r.Warehouse),
	}
	if req.PreorderMode == "" {
		req.PreorderMode = fulfillment.ConvertSkip
	}

	for _, c := range r.AdditionalCosts {
		req.AdditionalCosts = append(req.AdditionalCosts, receiving.AdditionalCostInput{
			CostType:    c.CostType,
			Amount:      c.Amount,
			Description: c.Description,
		})
	}

	for _, d := range r.ItemDamages {
		productID, err := id.Parse(d.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid productId in itemDamages").
				WithDetail("value", d.ProductID)
		}
		req.ItemDamages = append(req.ItemDamages, receiving.ItemDamage{
			ProductID:       productID,
			DamagedQuantity: d.DamagedQuantity,
		})
	}

	return req, nil
}
