package fulfillment

import (
	"context"
	"fmt"
	"sort"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/domain/sales"
	"caravan/pkg/logger"
)

// ConvertMode selects preorder handling after a receipt.
type ConvertMode string

const (
	ConvertAuto   ConvertMode = "AUTO"
	ConvertManual ConvertMode = "MANUAL"
	ConvertSkip   ConvertMode = "SKIP"
)

// Valid reports whether the mode is a member of the closed set.
func (m ConvertMode) Valid() bool {
	return m == ConvertAuto || m == ConvertManual || m == ConvertSkip
}

// ConvertedSale reports one preorder sale confirmed in full.
type ConvertedSale struct {
	SaleID     id.ID  `json:"saleId"`
	SaleNumber string `json:"saleNumber"`
	Reserved   int64  `json:"reserved"`
}

// FailedConversion reports one preorder sale left unconverted.
type FailedConversion struct {
	SaleID     id.ID  `json:"saleId"`
	SaleNumber string `json:"saleNumber"`
	Reason     string `json:"reason"`
}

// PreorderSummary reports open preorder demand for one variant, for
// manual allocation.
type PreorderSummary struct {
	VariantID      id.ID `json:"variantId"`
	AvailableStock int64 `json:"availableStock"`
	PreorderCount  int   `json:"preorderCount"`
	TotalRequested int64 `json:"totalRequested"`
}

// ConvertResult aggregates one converter pass.
type ConvertResult struct {
	Mode     ConvertMode        `json:"mode"`
	Success  []ConvertedSale    `json:"success,omitempty"`
	Failed   []FailedConversion `json:"failed,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`

	// VariantsWithPreorders is populated in MANUAL mode only.
	VariantsWithPreorders []PreorderSummary `json:"variantsWithPreorders,omitempty"`
}

// PreorderConverter confirms preorder sales against available stock, or
// reports unmet demand for manual allocation.
type PreorderConverter struct {
	saleRepo sales.SaleRepository
	stock    StockReserver
}

// NewPreorderConverter creates a preorder converter.
func NewPreorderConverter(saleRepo sales.SaleRepository, stock StockReserver) *PreorderConverter {
	return &PreorderConverter{saleRepo: saleRepo, stock: stock}
}

// Convert runs the selected mode over the given variants. AUTO confirms
// each preorder sale in full when stock covers every requested line; a
// sale is never partially converted. MANUAL mutates nothing and reports
// demand per variant. Failures become warnings; the pass never fails the
// enclosing receipt.
func (c *PreorderConverter) Convert(ctx context.Context, mode ConvertMode, variantIDs []id.ID) *ConvertResult {
	result := &ConvertResult{Mode: mode}

	if mode == ConvertSkip || len(variantIDs) == 0 {
		return result
	}

	lines, err := c.saleRepo.ListPreorderLines(ctx, variantIDs)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("load preorder lines: %v", err))
		return result
	}
	if len(lines) == 0 {
		return result
	}

	switch mode {
	case ConvertAuto:
		c.convertAuto(ctx, lines, result)
	case ConvertManual:
		c.reportManual(ctx, lines, result)
	}

	return result
}

// convertAuto walks preorder sales oldest first; each sale converts only
// when every one of its lines can be fully reserved.
func (c *PreorderConverter) convertAuto(ctx context.Context, lines []*sales.PreorderLine, result *ConvertResult) {
	type saleDemand struct {
		saleID     id.ID
		saleNumber string
		createdAt  int64
		lines      []*sales.PreorderLine
	}

	bySale := make(map[id.ID]*saleDemand)
	order := make([]*saleDemand, 0)
	for _, line := range lines {
		d, ok := bySale[line.SaleID]
		if !ok {
			d = &saleDemand{
				saleID:     line.SaleID,
				saleNumber: line.SaleNumber,
				createdAt:  line.CreatedAt.UnixNano(),
			}
			bySale[line.SaleID] = d
			order = append(order, d)
		}
		d.lines = append(d.lines, line)
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].createdAt < order[j].createdAt })

	for _, demand := range order {
		// A sale's lines may repeat a variant, so coverage is checked
		// against summed demand per variant, not per line.
		perVariant := make(map[id.ID]int64)
		variantOrder := make([]id.ID, 0, len(demand.lines))
		for _, line := range demand.lines {
			if _, ok := perVariant[line.VariantID]; !ok {
				variantOrder = append(variantOrder, line.VariantID)
			}
			perVariant[line.VariantID] += line.Quantity
		}

		covered := true
		for _, variantID := range variantOrder {
			available, err := c.stock.AvailableForUpdate(ctx, variantID)
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("sale %s: read stock: %v", demand.saleNumber, err))
				covered = false
				break
			}
			if available < perVariant[variantID] {
				result.Failed = append(result.Failed, FailedConversion{
					SaleID:     demand.saleID,
					SaleNumber: demand.saleNumber,
					Reason: fmt.Sprintf("variant %s: requested %d, available %d",
						variantID, perVariant[variantID], available),
				})
				covered = false
				break
			}
		}
		if !covered {
			continue
		}

		taken := make(map[id.ID]int64)
		var reservedTotal int64
		reserveErr := func() error {
			for _, variantID := range variantOrder {
				want := perVariant[variantID]
				reserved, err := c.stock.Reserve(ctx, variantID, want)
				taken[variantID] += reserved
				if err != nil {
					return err
				}
				if reserved < want {
					// Availability was checked under lock above, so a
					// short reservation means ledger corruption upstream.
					return apperror.NewInsufficientStock(variantID.String(), want, reserved)
				}
				reservedTotal += reserved
			}
			return nil
		}()
		if reserveErr == nil {
			if err := c.confirmSale(ctx, demand.saleID); err != nil {
				reserveErr = fmt.Errorf("confirm: %w", err)
			}
		}
		if reserveErr != nil {
			c.unwind(ctx, taken, result, demand.saleNumber)
			result.Failed = append(result.Failed, FailedConversion{
				SaleID:     demand.saleID,
				SaleNumber: demand.saleNumber,
				Reason:     reserveErr.Error(),
			})
			continue
		}

		result.Success = append(result.Success, ConvertedSale{
			SaleID:     demand.saleID,
			SaleNumber: demand.saleNumber,
			Reserved:   reservedTotal,
		})
	}

	if len(result.Success) > 0 {
		logger.Info(ctx, "preorders converted", "count", len(result.Success))
	}
}

// unwind gives back reservations taken for a sale that did not convert.
// A failed release is ledger-level trouble and is surfaced as a warning.
func (c *PreorderConverter) unwind(ctx context.Context, taken map[id.ID]int64, result *ConvertResult, saleNumber string) {
	for variantID, amount := range taken {
		if amount == 0 {
			continue
		}
		if err := c.stock.Release(ctx, variantID, amount); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("sale %s: release %d of variant %s: %v", saleNumber, amount, variantID, err))
		}
	}
}

func (c *PreorderConverter) reportManual(ctx context.Context, lines []*sales.PreorderLine, result *ConvertResult) {
	type agg struct {
		count     int
		requested int64
	}
	byVariant := make(map[id.ID]*agg)
	variantOrder := make([]id.ID, 0)
	for _, line := range lines {
		a, ok := byVariant[line.VariantID]
		if !ok {
			a = &agg{}
			byVariant[line.VariantID] = a
			variantOrder = append(variantOrder, line.VariantID)
		}
		a.count++
		a.requested += line.Quantity
	}

	for _, variantID := range variantOrder {
		available, err := c.stock.AvailableForUpdate(ctx, variantID)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("variant %s: read stock: %v", variantID, err))
			continue
		}
		a := byVariant[variantID]
		result.VariantsWithPreorders = append(result.VariantsWithPreorders, PreorderSummary{
			VariantID:      variantID,
			AvailableStock: available,
			PreorderCount:  a.count,
			TotalRequested: a.requested,
		})
	}
}

func (c *PreorderConverter) confirmSale(ctx context.Context, saleID id.ID) error {
	sale, err := c.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return err
	}
	sale.Status = sales.StatusConfirmed
	sale.ShortageQuantity = 0
	return c.saleRepo.Update(ctx, sale)
}
