// Package variant provides stock-keeping variants of products,
// distinguished by condition type.
package variant

import (
	"context"
	"time"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// ConditionType is the closed set of stock-keeping conditions.
// Code generation for each condition is driven by the rule table below,
// never by string comparison at call sites.
type ConditionType string

const (
	ConditionNormal      ConditionType = "normal"
	ConditionDamaged     ConditionType = "damaged"
	ConditionLimited     ConditionType = "limited"
	ConditionRefurbished ConditionType = "refurbished"
	ConditionSample      ConditionType = "sample"
)

// GenerationRule describes how variant codes are derived for a condition.
type GenerationRule struct {
	// Suffix is the condition marker embedded in generated codes.
	Suffix string

	// SeedPricesFromProduct seeds base/current price from the owning
	// product when the variant is created lazily.
	SeedPricesFromProduct bool
}

// generationRules maps each condition to its code generation rule.
var generationRules = map[ConditionType]GenerationRule{
	ConditionNormal:      {Suffix: "A", SeedPricesFromProduct: true},
	ConditionDamaged:     {Suffix: "D", SeedPricesFromProduct: true},
	ConditionLimited:     {Suffix: "L", SeedPricesFromProduct: true},
	ConditionRefurbished: {Suffix: "R", SeedPricesFromProduct: true},
	ConditionSample:      {Suffix: "X", SeedPricesFromProduct: false},
}

// Valid reports whether the condition is a member of the closed set.
func (c ConditionType) Valid() bool {
	_, ok := generationRules[c]
	return ok
}

// Rule returns the generation rule for the condition.
func (c ConditionType) Rule() (GenerationRule, bool) {
	r, ok := generationRules[c]
	return r, ok
}

// Variant is a concrete stock-keeping unit of a product.
// Invariant: CostPrice always reflects the most recent receipt's landed
// unit cost for this variant (overwritten, not averaged).
type Variant struct {
	ID        id.ID         `db:"id" json:"id"`
	ProductID id.ID         `db:"product_id" json:"productId"`
	Code      string        `db:"code" json:"code"`
	SKU       string        `db:"sku" json:"sku"`
	Condition ConditionType `db:"condition" json:"condition"`

	BasePrice    types.Money `db:"base_price" json:"basePrice"`
	CurrentPrice types.Money `db:"current_price" json:"currentPrice"`
	CostPrice    types.Money `db:"cost_price" json:"costPrice"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks entity invariants.
func (v *Variant) Validate(ctx context.Context) error {
	if id.IsNil(v.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if v.Code == "" {
		return apperror.NewValidation("variant code is required").
			WithDetail("field", "code")
	}
	if !v.Condition.Valid() {
		return apperror.NewValidation("unknown condition type").
			WithDetail("field", "condition").
			WithDetail("value", string(v.Condition))
	}
	return nil
}

// Repository defines persistence operations for variants.
type Repository interface {
	// GetByID retrieves a variant. Returns NOT_FOUND AppError if absent.
	GetByID(ctx context.Context, variantID id.ID) (*Variant, error)

	// FindByProductAndCondition returns the product's variant for a
	// condition, or nil when none exists yet.
	FindByProductAndCondition(ctx context.Context, productID id.ID, condition ConditionType) (*Variant, error)

	// Create inserts a new variant.
	Create(ctx context.Context, v *Variant) error

	// UpdateCostPrice overwrites the variant's cost price.
	UpdateCostPrice(ctx context.Context, variantID id.ID, cost types.Money) error
}
