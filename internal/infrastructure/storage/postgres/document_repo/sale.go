package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/domain/sales"
	"caravan/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleItemsTable = "doc_sale_items"
)

// SaleRepo implements sales.SaleRepository.
type SaleRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a sale header.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	q := r.builder.Select(
		"id", "number", "status", "shortage_quantity",
		"created_at", "updated_at",
	).From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sales.Sale
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	return &s, nil
}

// Update persists status and shortage quantity transitions.
func (r *SaleRepo) Update(ctx context.Context, sale *sales.Sale) error {
	q := r.builder.Update(salesTable).
		Set("status", sale.Status).
		Set("shortage_quantity", sale.ShortageQuantity).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": sale.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", sale.ID.String())
	}

	return nil
}

// ListPreorderLines returns PREORDER demand rows for the given variants,
// oldest sale first.
func (r *SaleRepo) ListPreorderLines(ctx context.Context, variantIDs []id.ID) ([]*sales.PreorderLine, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}

	q := r.builder.Select(
		"i.sale_id", "s.number AS sale_number",
		"i.variant_id", "i.quantity", "s.created_at",
	).From(saleItemsTable+" i").
		Join(salesTable+" s ON s.id = i.sale_id").
		Where(squirrel.Eq{"s.status": sales.StatusPreorder}).
		Where(squirrel.Eq{"i.variant_id": variantIDs}).
		OrderBy("s.created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []*sales.PreorderLine
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("list preorder lines: %w", err)
	}

	return lines, nil
}

// Ensure interface compliance.
var _ sales.SaleRepository = (*SaleRepo)(nil)
