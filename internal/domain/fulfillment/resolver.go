// Package fulfillment resolves outstanding backorders and converts
// preorders against freshly received stock.
package fulfillment

import (
	"context"
	"fmt"

	appctx "caravan/internal/core/context"
	"caravan/internal/core/id"
	"caravan/internal/domain/sales"
	"caravan/pkg/logger"
)

// StockReserver is the slice of the inventory ledger this package needs.
// Implemented by inventory.Service.
type StockReserver interface {
	// AvailableForUpdate returns total available stock for a variant,
	// locking the underlying rows.
	AvailableForUpdate(ctx context.Context, variantID id.ID) (int64, error)

	// Reserve moves up to want units from available to reserved,
	// oldest lot first, returning the amount actually reserved.
	Reserve(ctx context.Context, variantID id.ID, want int64) (int64, error)

	// Release moves amount units back from reserved to available,
	// undoing an earlier Reserve.
	Release(ctx context.Context, variantID id.ID, amount int64) error
}

// ResolvedBackorder reports one fully resolved shortage.
type ResolvedBackorder struct {
	BackorderID id.ID `json:"backorderId"`
	SaleID      id.ID `json:"saleId"`
	VariantID   id.ID `json:"variantId"`
	Reserved    int64 `json:"reserved"`
}

// PartialBackorder reports one partially reserved shortage.
type PartialBackorder struct {
	BackorderID id.ID `json:"backorderId"`
	SaleID      id.ID `json:"saleId"`
	VariantID   id.ID `json:"variantId"`
	Reserved    int64 `json:"reserved"`
	Remaining   int64 `json:"remaining"`
}

// ResolveResult aggregates one resolver pass.
type ResolveResult struct {
	Resolved          []ResolvedBackorder `json:"resolved"`
	PartiallyResolved []PartialBackorder  `json:"partiallyResolved"`
	Warnings          []string            `json:"warnings,omitempty"`
}

// BackorderResolver reserves freshly available stock against pending
// shortage records, highest priority first, oldest first within a tier.
type BackorderResolver struct {
	backorders sales.BackorderRepository
	saleRepo   sales.SaleRepository
	stock      StockReserver
}

// NewBackorderResolver creates a backorder resolver.
func NewBackorderResolver(backorders sales.BackorderRepository, saleRepo sales.SaleRepository, stock StockReserver) *BackorderResolver {
	return &BackorderResolver{
		backorders: backorders,
		saleRepo:   saleRepo,
		stock:      stock,
	}
}

// Resolve runs one resolver pass over the given variants. Available stock
// is re-read after every reservation, so resolution is strictly sequential
// and a lower-priority backorder can never consume stock a higher-priority
// one still needs. Per-backorder failures become warnings; the pass itself
// never fails the enclosing receipt.
func (r *BackorderResolver) Resolve(ctx context.Context, variantIDs []id.ID) *ResolveResult {
	result := &ResolveResult{}

	if len(variantIDs) == 0 {
		return result
	}

	pending, err := r.backorders.ListPendingForUpdate(ctx, variantIDs)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("load pending backorders: %v", err))
		return result
	}

	for _, tracking := range pending {
		if err := r.resolveOne(ctx, tracking, result); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("backorder %s: %v", tracking.ID, err))
		}
	}

	if len(result.Resolved) > 0 || len(result.PartiallyResolved) > 0 {
		logger.Info(ctx, "backorders resolved",
			"resolved", len(result.Resolved),
			"partial", len(result.PartiallyResolved),
		)
	}

	return result
}

func (r *BackorderResolver) resolveOne(ctx context.Context, tracking *sales.BackorderTracking, result *ResolveResult) error {
	available, err := r.stock.AvailableForUpdate(ctx, tracking.VariantID)
	if err != nil {
		return fmt.Errorf("read available stock: %w", err)
	}

	switch {
	case available >= tracking.ShortageQuantity:
		reserved, err := r.stock.Reserve(ctx, tracking.VariantID, tracking.ShortageQuantity)
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		actor := appctx.GetActorID(ctx)
		tracking.AppendNote(fmt.Sprintf("fully resolved: reserved %d units", reserved))
		tracking.MarkResolved(actor)
		tracking.ShortageQuantity = 0
		if err := r.backorders.Update(ctx, tracking); err != nil {
			return fmt.Errorf("update tracking: %w", err)
		}

		if err := r.promoteSale(ctx, tracking.SaleID); err != nil {
			return fmt.Errorf("promote sale: %w", err)
		}

		result.Resolved = append(result.Resolved, ResolvedBackorder{
			BackorderID: tracking.ID,
			SaleID:      tracking.SaleID,
			VariantID:   tracking.VariantID,
			Reserved:    reserved,
		})

	case available > 0:
		reserved, err := r.stock.Reserve(ctx, tracking.VariantID, available)
		if err != nil {
			return fmt.Errorf("reserve: %w", err)
		}
		tracking.ShortageQuantity -= reserved
		tracking.AppendNote(fmt.Sprintf("partially resolved: reserved %d units, %d remaining",
			reserved, tracking.ShortageQuantity))
		if err := r.backorders.Update(ctx, tracking); err != nil {
			return fmt.Errorf("update tracking: %w", err)
		}

		result.PartiallyResolved = append(result.PartiallyResolved, PartialBackorder{
			BackorderID: tracking.ID,
			SaleID:      tracking.SaleID,
			VariantID:   tracking.VariantID,
			Reserved:    reserved,
			Remaining:   tracking.ShortageQuantity,
		})

	default:
		// No stock left for this variant; skip unchanged.
	}

	return nil
}

// promoteSale promotes a PARTIALLY_CONFIRMED sale to CONFIRMED and clears
// its shortage quantity once its backorder is fully resolved.
func (r *BackorderResolver) promoteSale(ctx context.Context, saleID id.ID) error {
	sale, err := r.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return err
	}
	if sale.Status != sales.StatusPartiallyConfirmed {
		return nil
	}
	sale.Status = sales.StatusConfirmed
	sale.ShortageQuantity = 0
	return r.saleRepo.Update(ctx, sale)
}
