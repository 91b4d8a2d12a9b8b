// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories (products and their sale variants).
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
	"caravan/internal/domain/catalogs/product"
	"caravan/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var productColumns = []string{
	"id", "code", "name",
	"standard_price", "cost_price",
	"created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetByIDs batch-loads products into an id-indexed map.
func (r *ProductRepo) GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	if len(productIDs) == 0 {
		return map[id.ID]*product.Product{}, nil
	}

	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	result := make(map[id.ID]*product.Product, len(rows))
	for _, p := range rows {
		result[p.ID] = p
	}
	return result, nil
}

// UpdateCostPrice overwrites the product's cost price.
func (r *ProductRepo) UpdateCostPrice(ctx context.Context, productID id.ID, cost types.Money) error {
	q := r.builder.Update(productsTable).
		Set("cost_price", cost).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": productID})

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
		return apperror.NewNotFound("product", productID.String())
	}

	return nil
}

// Ensure interface compliance.
var _ product.Repository = (*ProductRepo)(nil)
