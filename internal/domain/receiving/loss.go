package receiving

import (
	"caravan/internal/core/id"
)

// LineLoss is the loss splitter's per-line output.
type LineLoss struct {
	ProductID id.ID

	// Quantity is the line's ordered quantity.
	Quantity int64

	// Loss is the share of the declared loss assigned to this line.
	Loss int64

	// StockIncrease = Quantity - Loss. Lines with StockIncrease <= 0
	// are skipped entirely: no variant or inventory row is touched.
	StockIncrease int64

	// Explicit marks losses taken from the caller's damage map rather
	// than the proportional split.
	Explicit bool
}

// SplitLoss distributes the receipt's declared loss across lines. Lines
// present in damageMap take their exact entry; the rest get
// floor(quantity x lossQuantity / actualQuantity). Floor rounding
// under-counts loss in the proportional case, so the declared total is a
// ceiling, not an exact partition; the residue is surfaced by
// UnallocatedLoss, never silently reconciled.
func SplitLoss(lines []CostLine, actualQuantity, lossQuantity int64, damageMap map[id.ID]int64) []LineLoss {
	out := make([]LineLoss, 0, len(lines))
	for _, line := range lines {
		loss, explicit := damageMap[line.ProductID]
		if !explicit {
			loss = line.Quantity * lossQuantity / actualQuantity
		}
		out = append(out, LineLoss{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Loss:          loss,
			StockIncrease: line.Quantity - loss,
			Explicit:      explicit,
		})
	}
	return out
}

// UnallocatedLoss returns the declared loss left unassigned after the
// split (the floor-rounding residue).
func UnallocatedLoss(lossQuantity int64, split []LineLoss) int64 {
	assigned := int64(0)
	for _, l := range split {
		assigned += l.Loss
	}
	residue := lossQuantity - assigned
	if residue < 0 {
		return 0
	}
	return residue
}
