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

const backordersTable = "doc_backorder_tracking"

// BackorderRepo implements sales.BackorderRepository.
type BackorderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBackorderRepo creates a new backorder tracking repository.
func NewBackorderRepo(txm *postgres.TxManager) *BackorderRepo {
	return &BackorderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// pendingQuery builds the locked PENDING selection: higher priority
// first, FIFO within a priority tier.
func (r *BackorderRepo) pendingQuery(variantIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.Select(
		"id", "sale_id", "variant_id",
		"shortage_quantity", "priority", "status", "notes",
		"resolved_at", "resolved_by",
		"created_at", "updated_at",
	).From(backordersTable).
		Where(squirrel.Eq{
			"status":     sales.BackorderPending,
			"variant_id": variantIDs,
		}).
		OrderBy("priority DESC", "created_at ASC").
		Suffix("FOR UPDATE")
}

// ListPendingForUpdate returns locked PENDING rows for the given
// variants, higher priority first, FIFO within a priority tier.
func (r *BackorderRepo) ListPendingForUpdate(ctx context.Context, variantIDs []id.ID) ([]*sales.BackorderTracking, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}

	sql, args, err := r.pendingQuery(variantIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*sales.BackorderTracking
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list pending backorders: %w", err)
	}

	return rows, nil
}

// Update persists shortage quantity, status, notes and resolution fields.
func (r *BackorderRepo) Update(ctx context.Context, tracking *sales.BackorderTracking) error {
	q := r.builder.Update(backordersTable).
		Set("shortage_quantity", tracking.ShortageQuantity).
		Set("status", tracking.Status).
		Set("notes", tracking.Notes).
		Set("resolved_at", tracking.ResolvedAt).
		Set("resolved_by", tracking.ResolvedBy).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": tracking.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update backorder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("backorder", tracking.ID.String())
	}

	return nil
}

// Ensure interface compliance.
var _ sales.BackorderRepository = (*BackorderRepo)(nil)
