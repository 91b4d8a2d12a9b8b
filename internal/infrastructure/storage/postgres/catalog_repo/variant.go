package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
	"caravan/internal/domain/catalogs/variant"
	"caravan/internal/infrastructure/storage/postgres"
)

const variantsTable = "cat_variants"

var variantColumns = []string{
	"id", "product_id", "code", "sku", "condition",
	"base_price", "current_price", "cost_price",
	"created_at", "updated_at",
}

// VariantRepo implements variant.Repository.
type VariantRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txm *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a variant by id.
func (r *VariantRepo) GetByID(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	q := r.builder.Select(variantColumns...).
		From(variantsTable).
		Where(squirrel.Eq{"id": variantID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v variant.Variant
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", variantID.String())
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return &v, nil
}

// FindByProductAndCondition returns the product's variant for a condition,
// or nil when none exists.
func (r *VariantRepo) FindByProductAndCondition(ctx context.Context, productID id.ID, condition variant.ConditionType) (*variant.Variant, error) {
	q := r.builder.Select(variantColumns...).
		From(variantsTable).
		Where(squirrel.Eq{
			"product_id": productID,
			"condition":  condition,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v variant.Variant
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find variant: %w", err)
	}

	return &v, nil
}

// Create inserts a new variant.
func (r *VariantRepo) Create(ctx context.Context, v *variant.Variant) error {
	q := r.builder.Insert(variantsTable).
		Columns(variantColumns...).
		Values(
			v.ID, v.ProductID, v.Code, v.SKU, v.Condition,
			v.BasePrice, v.CurrentPrice, v.CostPrice,
			v.CreatedAt, v.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}

	return nil
}

// UpdateCostPrice overwrites the variant's cost price.
func (r *VariantRepo) UpdateCostPrice(ctx context.Context, variantID id.ID, cost types.Money) error {
	q := r.builder.Update(variantsTable).
		Set("cost_price", cost).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": variantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update cost price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("variant", variantID.String())
	}

	return nil
}

// Ensure interface compliance.
var _ variant.Repository = (*VariantRepo)(nil)
