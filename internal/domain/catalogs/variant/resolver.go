package variant

import (
	"context"
	"fmt"
	"time"

	"caravan/internal/core/apperror"
	"caravan/internal/core/codegen"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
	"caravan/internal/domain/catalogs/product"
	"caravan/pkg/logger"
)

// Resolver finds or lazily creates stock-keeping variants for products.
// Codes are deterministic: <product code>-<condition suffix>-<NNNN>, the
// running number coming from a per-product+condition sequence.
type Resolver struct {
	repo  Repository
	codes codegen.Generator
}

// NewResolver creates a variant resolver.
func NewResolver(repo Repository, codes codegen.Generator) *Resolver {
	return &Resolver{repo: repo, codes: codes}
}

// EnsureNormal returns the product's normal-condition variant, creating it
// when absent. In both cases the variant's cost price is overwritten with
// unitCost: cost price always reflects the latest receipt, not a weighted
// average.
func (r *Resolver) EnsureNormal(ctx context.Context, prod *product.Product, unitCost types.Money) (*Variant, bool, error) {
	v, err := r.repo.FindByProductAndCondition(ctx, prod.ID, ConditionNormal)
	if err != nil {
		return nil, false, fmt.Errorf("find normal variant: %w", err)
	}

	if v != nil {
		if err := r.repo.UpdateCostPrice(ctx, v.ID, unitCost); err != nil {
			return nil, false, fmt.Errorf("update variant cost price: %w", err)
		}
		v.CostPrice = unitCost
		v.UpdatedAt = time.Now().UTC()
		return v, false, nil
	}

	v, err = r.create(ctx, prod, ConditionNormal, unitCost)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// EnsureDamaged returns the product's damaged-condition variant, creating
// it lazily the first time damage occurs. Cost price is seeded from the
// product and not overwritten on later calls.
func (r *Resolver) EnsureDamaged(ctx context.Context, prod *product.Product) (*Variant, bool, error) {
	v, err := r.repo.FindByProductAndCondition(ctx, prod.ID, ConditionDamaged)
	if err != nil {
		return nil, false, fmt.Errorf("find damaged variant: %w", err)
	}
	if v != nil {
		return v, false, nil
	}

	v, err = r.create(ctx, prod, ConditionDamaged, prod.CostPrice)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Resolver) create(ctx context.Context, prod *product.Product, condition ConditionType, costPrice types.Money) (*Variant, error) {
	rule, ok := condition.Rule()
	if !ok {
		return nil, apperror.NewValidation("unknown condition type").
			WithDetail("condition", string(condition))
	}

	seq, err := r.codes.Next(ctx, sequenceKey(prod.Code, rule.Suffix))
	if err != nil {
		return nil, fmt.Errorf("next variant code: %w", err)
	}

	code := fmt.Sprintf("%s-%s-%04d", prod.Code, rule.Suffix, seq)

	now := time.Now().UTC()
	v := &Variant{
		ID:        id.New(),
		ProductID: prod.ID,
		Code:      code,
		SKU:       "SKU-" + code,
		Condition: condition,
		CostPrice: costPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rule.SeedPricesFromProduct {
		v.BasePrice = prod.StandardPrice
		v.CurrentPrice = prod.StandardPrice
	}

	if err := r.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	logger.Info(ctx, "variant created",
		"variant_id", v.ID,
		"product_id", prod.ID,
		"code", v.Code,
		"condition", string(condition),
	)

	return v, nil
}

func sequenceKey(productCode, suffix string) string {
	return "variant:" + productCode + ":" + suffix
}
