// Package inventory provides the multi-warehouse inventory ledger:
// per-(variant, warehouse) stock records and the append-only movement log.
package inventory

import (
	"fmt"
	"time"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// Warehouse is a stock location bucket. Each (variant, warehouse) pair has
// independent quantity/reserved/available counters.
type Warehouse string

const (
	WarehouseCompany Warehouse = "COMPANY"
	WarehousePrivate Warehouse = "PRIVATE"
)

// Valid reports whether the warehouse is a member of the closed set.
func (w Warehouse) Valid() bool {
	return w == WarehouseCompany || w == WarehousePrivate
}

// Record is one inventory row, uniquely keyed by (variant, warehouse).
// Invariants: available = quantity - reserved, reserved <= quantity,
// all three non-negative. Created lazily on first movement into the pair.
type Record struct {
	ID        id.ID     `db:"id" json:"id"`
	VariantID id.ID     `db:"variant_id" json:"variantId"`
	Warehouse Warehouse `db:"warehouse" json:"warehouse"`

	Quantity  int64 `db:"quantity" json:"quantity"`
	Reserved  int64 `db:"reserved" json:"reserved"`
	Available int64 `db:"available" json:"available"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CheckInvariant verifies the record's counter invariants.
// A violation means ledger corruption, not a recoverable condition.
func (r *Record) CheckInvariant() error {
	if r.Quantity < 0 || r.Reserved < 0 || r.Available < 0 {
		return apperror.NewLedgerCorruption("negative inventory counter").
			WithDetail("variant_id", r.VariantID.String()).
			WithDetail("warehouse", string(r.Warehouse)).
			WithDetail("quantity", r.Quantity).
			WithDetail("reserved", r.Reserved).
			WithDetail("available", r.Available)
	}
	if r.Available != r.Quantity-r.Reserved {
		return apperror.NewLedgerCorruption("available != quantity - reserved").
			WithDetail("variant_id", r.VariantID.String()).
			WithDetail("warehouse", string(r.Warehouse)).
			WithDetail("quantity", r.Quantity).
			WithDetail("reserved", r.Reserved).
			WithDetail("available", r.Available)
	}
	return nil
}

// MovementType classifies ledger movements.
type MovementType string

const (
	MovementReceipt    MovementType = "RECEIPT"
	MovementDamageOut  MovementType = "DAMAGE_OUT"
	MovementDamageIn   MovementType = "DAMAGE_IN"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Movement is one append-only audit row. Movements are immutable: they are
// never updated or deleted, and replaying them in order must reproduce the
// current quantity of their (variant, warehouse) pair exactly.
type Movement struct {
	ID        id.ID     `db:"id" json:"id"`
	VariantID id.ID     `db:"variant_id" json:"variantId"`
	Warehouse Warehouse `db:"warehouse" json:"warehouse"`

	Type           MovementType `db:"movement_type" json:"movementType"`
	QuantityChange int64        `db:"quantity_change" json:"quantityChange"`
	QuantityBefore int64        `db:"quantity_before" json:"quantityBefore"`
	QuantityAfter  int64        `db:"quantity_after" json:"quantityAfter"`

	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	TotalCost types.Money `db:"total_cost" json:"totalCost"`

	Reason        string `db:"reason" json:"reason,omitempty"`
	ReferenceType string `db:"reference_type" json:"referenceType"`
	ReferenceID   id.ID  `db:"reference_id" json:"referenceId"`
	ActorID       string `db:"actor_id" json:"actorId"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ReplayMovements folds a movement slice (in timestamp order) and returns
// the resulting quantity, verifying each row's before/after snapshot.
// Used by tests and the integrity flag on stock snapshots.
func ReplayMovements(movements []*Movement) (int64, error) {
	var quantity int64
	for i, m := range movements {
		if m.QuantityAfter != m.QuantityBefore+m.QuantityChange {
			return 0, fmt.Errorf("movement %d: after %d != before %d + change %d",
				i, m.QuantityAfter, m.QuantityBefore, m.QuantityChange)
		}
		if m.QuantityBefore != quantity {
			return 0, fmt.Errorf("movement %d: before %d does not continue running quantity %d",
				i, m.QuantityBefore, quantity)
		}
		quantity = m.QuantityAfter
	}
	return quantity, nil
}
