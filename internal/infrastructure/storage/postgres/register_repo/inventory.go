// Package register_repo provides the PostgreSQL implementation of the
// inventory ledger: per-warehouse stock records plus the append-only
// movement log.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"caravan/internal/core/id"
	"caravan/internal/domain/inventory"
	"caravan/internal/infrastructure/storage/postgres"
)

const (
	inventoryTable = "reg_inventory"
	movementsTable = "reg_inventory_movements"
)

var movementColumns = []string{
	"id", "variant_id", "warehouse",
	"movement_type", "quantity_change", "quantity_before", "quantity_after",
	"unit_cost", "total_cost",
	"reason", "reference_type", "reference_id", "actor_id",
	"created_at",
}

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewInventoryRepo creates a new inventory repository.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetForUpdate returns the locked record for (variant, warehouse),
// or nil when no record exists yet.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, variantID id.ID, warehouse inventory.Warehouse) (*inventory.Record, error) {
	sql := `
		SELECT id, variant_id, warehouse, quantity, reserved, available,
			   created_at, updated_at
		FROM reg_inventory
		WHERE variant_id = $1 AND warehouse = $2
		FOR UPDATE
	`

	var rec inventory.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, variantID, warehouse); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get record for update: %w", err)
	}

	return &rec, nil
}

// ListByVariantForUpdate returns all locked records for a variant,
// oldest first. Oldest-first is the lot consumption order.
func (r *InventoryRepo) ListByVariantForUpdate(ctx context.Context, variantID id.ID) ([]*inventory.Record, error) {
	sql := `
		SELECT id, variant_id, warehouse, quantity, reserved, available,
			   created_at, updated_at
		FROM reg_inventory
		WHERE variant_id = $1
		ORDER BY created_at ASC
		FOR UPDATE
	`

	var records []*inventory.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, variantID); err != nil {
		return nil, fmt.Errorf("list records for update: %w", err)
	}

	return records, nil
}

// ListByVariant returns an unlocked snapshot of a variant's records.
func (r *InventoryRepo) ListByVariant(ctx context.Context, variantID id.ID) ([]*inventory.Record, error) {
	q := r.builder.Select(
		"id", "variant_id", "warehouse", "quantity", "reserved", "available",
		"created_at", "updated_at",
	).From(inventoryTable).
		Where(squirrel.Eq{"variant_id": variantID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []*inventory.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return records, nil
}

// Create inserts a new record.
func (r *InventoryRepo) Create(ctx context.Context, rec *inventory.Record) error {
	q := r.builder.Insert(inventoryTable).
		Columns(
			"id", "variant_id", "warehouse", "quantity", "reserved", "available",
			"created_at", "updated_at",
		).
		Values(
			rec.ID, rec.VariantID, rec.Warehouse, rec.Quantity, rec.Reserved, rec.Available,
			rec.CreatedAt, rec.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	return nil
}

// UpdateCounts persists quantity/reserved/available for a record.
func (r *InventoryRepo) UpdateCounts(ctx context.Context, rec *inventory.Record) error {
	q := r.builder.Update(inventoryTable).
		Set("quantity", rec.Quantity).
		Set("reserved", rec.Reserved).
		Set("available", rec.Available).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": rec.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s vanished during update", rec.ID)
	}

	return nil
}

// AppendMovements appends audit rows to the movement log.
func (r *InventoryRepo) AppendMovements(ctx context.Context, movements []*inventory.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.VariantID, m.Warehouse,
				m.Type, m.QuantityChange, m.QuantityBefore, m.QuantityAfter,
				m.UnitCost, m.TotalCost,
				m.Reason, m.ReferenceType, m.ReferenceID, m.ActorID,
				m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: non-transactional insert. Prefer calling within tx.
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.VariantID, m.Warehouse,
			m.Type, m.QuantityChange, m.QuantityBefore, m.QuantityAfter,
			m.UnitCost, m.TotalCost,
			m.Reason, m.ReferenceType, m.ReferenceID, m.ActorID,
			m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// ListMovements returns the movement log for a variant in timestamp order.
func (r *InventoryRepo) ListMovements(ctx context.Context, variantID id.ID, filter inventory.MovementFilter) ([]*inventory.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"variant_id": variantID})

	if filter.Warehouse != nil {
		q = q.Where(squirrel.Eq{"warehouse": *filter.Warehouse})
	}

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*inventory.Movement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// Ensure interface compliance.
var _ inventory.Repository = (*InventoryRepo)(nil)
