// Package document_repo provides PostgreSQL implementations for document
// repositories: purchases, goods receipts, sales and backorder tracking.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/domain/purchases"
	"caravan/internal/infrastructure/storage/postgres"
)

const (
	purchasesTable     = "doc_purchases"
	purchaseItemsTable = "doc_purchase_items"
)

var purchaseColumns = []string{
	"id", "number", "supplier", "status", "currency",
	"received_at", "created_at", "updated_at",
}

// PurchaseRepo implements purchases.Repository.
type PurchaseRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewPurchaseRepo creates a new purchase repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a purchase with its items.
func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID id.ID) (*purchases.Purchase, error) {
	q := r.builder.Select(purchaseColumns...).
		From(purchasesTable).
		Where(squirrel.Eq{"id": purchaseID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.fetch(ctx, purchaseID, sql, args)
}

// GetForUpdate retrieves a purchase with its items, locking the header
// row. The lock serializes concurrent receipts of the same purchase.
func (r *PurchaseRepo) GetForUpdate(ctx context.Context, purchaseID id.ID) (*purchases.Purchase, error) {
	sql := `
		SELECT id, number, supplier, status, currency,
			   received_at, created_at, updated_at
		FROM doc_purchases
		WHERE id = $1
		FOR UPDATE
	`

	return r.fetch(ctx, purchaseID, sql, []any{purchaseID})
}

func (r *PurchaseRepo) fetch(ctx context.Context, purchaseID id.ID, sql string, args []any) (*purchases.Purchase, error) {
	var p purchases.Purchase
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase", purchaseID.String())
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	items, err := r.getItems(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	p.Items = items

	return &p, nil
}

func (r *PurchaseRepo) getItems(ctx context.Context, purchaseID id.ID) ([]purchases.PurchaseItem, error) {
	q := r.builder.Select(
		"id", "purchase_id", "product_id", "quantity", "unit_price", "weight",
	).From(purchaseItemsTable).
		Where(squirrel.Eq{"purchase_id": purchaseID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []purchases.PurchaseItem
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SetReceived advances the purchase to RECEIVED and stamps the time.
func (r *PurchaseRepo) SetReceived(ctx context.Context, purchaseID id.ID, receivedAt time.Time) error {
	q := r.builder.Update(purchasesTable).
		Set("status", purchases.StatusReceived).
		Set("received_at", receivedAt).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": purchaseID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set received: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase", purchaseID.String())
	}

	return nil
}

// Ensure interface compliance.
var _ purchases.Repository = (*PurchaseRepo)(nil)
