// Package receiving provides the goods-receipt reconciliation engine:
// landed cost allocation, loss splitting, and the receipt orchestrator.
package receiving

import (
	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// AllocationMethod selects how extra costs spread across lines.
type AllocationMethod string

const (
	AllocateByAmount   AllocationMethod = "BY_AMOUNT"
	AllocateByQuantity AllocationMethod = "BY_QUANTITY"
	AllocateByWeight   AllocationMethod = "BY_WEIGHT"
)

// Valid reports whether the method is a member of the closed set.
func (m AllocationMethod) Valid() bool {
	return m == AllocateByAmount || m == AllocateByQuantity || m == AllocateByWeight
}

// CostLine is one purchase line as seen by the allocator.
type CostLine struct {
	ProductID id.ID
	Quantity  int64
	UnitPrice types.Money // foreign currency
	Weight    types.Money // zero when not captured
}

// LineCost is the allocator's per-line output.
type LineCost struct {
	ProductID id.ID

	// UnitPriceLocal = foreign unit price x exchange rate.
	UnitPriceLocal types.Money

	// AllocatedExtra is this line's share of inspection fee + additional
	// costs under the selected method.
	AllocatedExtra types.Money

	// FinalUnitCost = UnitPriceLocal + AllocatedExtra / Quantity,
	// rounded to CostScale digits.
	FinalUnitCost types.Money

	// TotalCost = FinalUnitCost x Quantity.
	TotalCost types.Money
}

// AllocateCosts computes the landed unit cost per line. total_extra =
// inspectionFee + sum of additional costs; its split follows the method.
// BY_WEIGHT falls back to BY_QUANTITY when any line lacks a positive
// weight.
func AllocateCosts(lines []CostLine, exchangeRate types.Money, inspectionFee types.Money, additional []types.Money, method AllocationMethod) []LineCost {
	totalExtra := inspectionFee
	for _, amount := range additional {
		totalExtra = totalExtra.Add(amount)
	}

	if method == AllocateByWeight && !allWeightsUsable(lines) {
		method = AllocateByQuantity
	}

	var totalAmount, totalWeight types.Money
	var totalQuantity int64
	for _, line := range lines {
		totalAmount = totalAmount.Add(line.UnitPrice.Mul(types.NewMoneyFromInt(line.Quantity)))
		totalWeight = totalWeight.Add(line.Weight)
		totalQuantity += line.Quantity
	}

	out := make([]LineCost, 0, len(lines))
	for _, line := range lines {
		qty := types.NewMoneyFromInt(line.Quantity)
		unitLocal := line.UnitPrice.Mul(exchangeRate)

		var share types.Money
		switch method {
		case AllocateByAmount:
			if !totalAmount.IsZero() {
				lineAmount := line.UnitPrice.Mul(qty)
				share = totalExtra.Mul(lineAmount).Div(totalAmount)
			}
		case AllocateByWeight:
			if !totalWeight.IsZero() {
				share = totalExtra.Mul(line.Weight).Div(totalWeight)
			}
		default: // AllocateByQuantity
			if totalQuantity > 0 {
				share = totalExtra.Mul(qty).Div(types.NewMoneyFromInt(totalQuantity))
			}
		}

		var finalUnit types.Money
		if line.Quantity > 0 {
			finalUnit = types.RoundCost(unitLocal.Add(share.Div(qty)))
		}

		out = append(out, LineCost{
			ProductID:      line.ProductID,
			UnitPriceLocal: unitLocal,
			AllocatedExtra: share,
			FinalUnitCost:  finalUnit,
			TotalCost:      finalUnit.Mul(qty),
		})
	}

	return out
}

func allWeightsUsable(lines []CostLine) bool {
	for _, line := range lines {
		if !line.Weight.IsPositive() {
			return false
		}
	}
	return len(lines) > 0
}
