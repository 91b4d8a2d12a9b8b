// Package product provides the Product catalog (sellable item families).
package product

import (
	"context"
	"time"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// Product represents a sellable item family. Concrete stock-keeping units
// are Variants; the product carries the standard price and the current
// cost price, which receiving overwrites with each receipt's landed cost.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	StandardPrice types.Money `db:"standard_price" json:"standardPrice"`
	CostPrice     types.Money `db:"cost_price" json:"costPrice"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a product with generated ID.
func New(code, name string, standardPrice types.Money) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:            id.New(),
		Code:          code,
		Name:          name,
		StandardPrice: standardPrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks entity invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Code == "" {
		return apperror.NewValidation("product code is required").
			WithDetail("field", "code")
	}
	if p.Name == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Repository defines persistence operations for products.
type Repository interface {
	// GetByID retrieves a product. Returns NOT_FOUND AppError if absent.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs batch-loads products for a set of ids.
	GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)

	// UpdateCostPrice overwrites the product's current cost price.
	// Receiving calls this with each line's landed unit cost.
	UpdateCostPrice(ctx context.Context, productID id.ID, cost types.Money) error
}
