package inventory

import (
	"context"
	"fmt"
	"time"

	"caravan/internal/core/apperror"
	appctx "caravan/internal/core/context"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
	"caravan/pkg/logger"
)

// Service is the single place that touches raw stock numbers. Every
// quantity change goes through Apply, which pairs the counter mutation
// with exactly one movement row.
type Service struct {
	repo Repository
}

// NewService creates an inventory ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ApplyInput describes one signed stock mutation.
type ApplyInput struct {
	VariantID id.ID
	Warehouse Warehouse
	Delta     int64
	UnitCost  types.Money
	Type      MovementType
	Reason    string

	// Reference points at the originating document (type + id).
	ReferenceType string
	ReferenceID   id.ID
}

// Apply applies a signed quantity delta to the (variant, warehouse) record,
// creating it lazily, and appends one movement row with before/after
// snapshots. Reserved is untouched: reservation changes flow only through
// Reserve. A delta that would drive quantity negative is ledger corruption
// and aborts the enclosing transaction.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*Movement, error) {
	if !in.Warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("warehouse", string(in.Warehouse))
	}
	if in.Delta == 0 {
		return nil, apperror.NewValidation("delta must be non-zero")
	}

	rec, err := s.repo.GetForUpdate(ctx, in.VariantID, in.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("get inventory record: %w", err)
	}

	if rec == nil {
		now := time.Now().UTC()
		rec = &Record{
			ID:        id.New(),
			VariantID: in.VariantID,
			Warehouse: in.Warehouse,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("create inventory record: %w", err)
		}
	}

	before := rec.Quantity
	after := before + in.Delta

	if after < 0 {
		return nil, apperror.NewLedgerCorruption("stock mutation would drive quantity negative").
			WithDetail("variant_id", in.VariantID.String()).
			WithDetail("warehouse", string(in.Warehouse)).
			WithDetail("quantity", before).
			WithDetail("delta", in.Delta)
	}
	if in.Delta < 0 && rec.Available+in.Delta < 0 {
		// Removing more than is available would eat into reserved stock.
		return nil, apperror.NewInsufficientStock(in.VariantID.String(), -in.Delta, rec.Available)
	}

	rec.Quantity = after
	rec.Available += in.Delta
	rec.UpdatedAt = time.Now().UTC()

	if err := rec.CheckInvariant(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCounts(ctx, rec); err != nil {
		return nil, fmt.Errorf("update inventory counts: %w", err)
	}

	movement := &Movement{
		ID:             id.New(),
		VariantID:      in.VariantID,
		Warehouse:      in.Warehouse,
		Type:           in.Type,
		QuantityChange: in.Delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		UnitCost:       in.UnitCost,
		TotalCost:      in.UnitCost.Mul(types.NewMoneyFromInt(abs(in.Delta))),
		Reason:         in.Reason,
		ReferenceType:  in.ReferenceType,
		ReferenceID:    in.ReferenceID,
		ActorID:        appctx.GetActorID(ctx),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.AppendMovements(ctx, []*Movement{movement}); err != nil {
		return nil, fmt.Errorf("append movement: %w", err)
	}

	logger.Debug(ctx, "stock applied",
		"variant_id", in.VariantID,
		"warehouse", string(in.Warehouse),
		"delta", in.Delta,
		"quantity_after", after,
	)

	return movement, nil
}

// DamageTransfer summarizes a completed damage transfer for one line.
type DamageTransfer struct {
	FromVariantID id.ID `json:"fromVariantId"`
	ToVariantID   id.ID `json:"toVariantId"`
	Quantity      int64 `json:"quantity"`
}

// TransferDamage moves quantity units from the normal variant's available
// stock into the damaged variant, as a compensating pair of Apply calls
// inside the caller's transaction. The caller treats failures here as
// per-line warnings, not receipt-fatal errors.
func (s *Service) TransferDamage(ctx context.Context, normalID, damagedID id.ID, warehouse Warehouse, quantity int64, unitCost types.Money, refType string, refID id.ID) (*DamageTransfer, error) {
	if quantity <= 0 {
		return nil, apperror.NewValidation("damage quantity must be positive")
	}

	reason := fmt.Sprintf("damage transfer of %d units", quantity)

	if _, err := s.Apply(ctx, ApplyInput{
		VariantID:     normalID,
		Warehouse:     warehouse,
		Delta:         -quantity,
		UnitCost:      unitCost,
		Type:          MovementDamageOut,
		Reason:        reason,
		ReferenceType: refType,
		ReferenceID:   refID,
	}); err != nil {
		return nil, fmt.Errorf("damage out: %w", err)
	}

	if _, err := s.Apply(ctx, ApplyInput{
		VariantID:     damagedID,
		Warehouse:     warehouse,
		Delta:         quantity,
		UnitCost:      unitCost,
		Type:          MovementDamageIn,
		Reason:        reason,
		ReferenceType: refType,
		ReferenceID:   refID,
	}); err != nil {
		return nil, fmt.Errorf("damage in: %w", err)
	}

	return &DamageTransfer{
		FromVariantID: normalID,
		ToVariantID:   damagedID,
		Quantity:      quantity,
	}, nil
}

// AvailableForUpdate returns the variant's total available stock across
// warehouses, locking the underlying rows for the rest of the transaction.
func (s *Service) AvailableForUpdate(ctx context.Context, variantID id.ID) (int64, error) {
	lots, err := s.repo.ListByVariantForUpdate(ctx, variantID)
	if err != nil {
		return 0, fmt.Errorf("list inventory lots: %w", err)
	}
	var total int64
	for _, lot := range lots {
		total += lot.Available
	}
	return total, nil
}

// Reserve moves up to want units from available to reserved, walking the
// variant's lots oldest first. Quantity is unchanged, so no movement row
// is appended. Returns the amount actually reserved.
func (s *Service) Reserve(ctx context.Context, variantID id.ID, want int64) (int64, error) {
	if want <= 0 {
		return 0, apperror.NewValidation("reservation quantity must be positive")
	}

	lots, err := s.repo.ListByVariantForUpdate(ctx, variantID)
	if err != nil {
		return 0, fmt.Errorf("list inventory lots: %w", err)
	}

	remaining := want
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := lot.Available
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}

		lot.Reserved += take
		lot.Available -= take
		lot.UpdatedAt = time.Now().UTC()

		if err := lot.CheckInvariant(); err != nil {
			return 0, err
		}
		if err := s.repo.UpdateCounts(ctx, lot); err != nil {
			return 0, fmt.Errorf("update reservation counts: %w", err)
		}
		remaining -= take
	}

	reserved := want - remaining
	if reserved > 0 {
		logger.Debug(ctx, "stock reserved",
			"variant_id", variantID,
			"requested", want,
			"reserved", reserved,
		)
	}
	return reserved, nil
}

// Release moves amount units back from reserved to available, walking the
// variant's lots oldest first. It is the undo of Reserve and, like it,
// appends no movement row. Releasing more than is currently reserved
// means the counters have drifted and is ledger corruption.
func (s *Service) Release(ctx context.Context, variantID id.ID, amount int64) error {
	if amount <= 0 {
		return apperror.NewValidation("release quantity must be positive")
	}

	lots, err := s.repo.ListByVariantForUpdate(ctx, variantID)
	if err != nil {
		return fmt.Errorf("list inventory lots: %w", err)
	}

	remaining := amount
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		give := lot.Reserved
		if give > remaining {
			give = remaining
		}
		if give == 0 {
			continue
		}

		lot.Reserved -= give
		lot.Available += give
		lot.UpdatedAt = time.Now().UTC()

		if err := lot.CheckInvariant(); err != nil {
			return err
		}
		if err := s.repo.UpdateCounts(ctx, lot); err != nil {
			return fmt.Errorf("update release counts: %w", err)
		}
		remaining -= give
	}

	if remaining > 0 {
		return apperror.NewLedgerCorruption(fmt.Sprintf(
			"variant %s: released %d of %d, nothing left reserved",
			variantID, amount-remaining, amount))
	}

	logger.Debug(ctx, "stock released",
		"variant_id", variantID,
		"released", amount,
	)
	return nil
}

// StockByWarehouse returns the current per-warehouse counters for a variant.
func (s *Service) StockByWarehouse(ctx context.Context, variantID id.ID) ([]*Record, error) {
	return s.repo.ListByVariant(ctx, variantID)
}

// MovementHistory returns the movement log for a variant.
func (s *Service) MovementHistory(ctx context.Context, variantID id.ID, filter MovementFilter) ([]*Movement, error) {
	return s.repo.ListMovements(ctx, variantID, filter)
}

// VerifyLedger replays the full movement log for one record's
// (variant, warehouse) pair and checks the result against the stored
// quantity. Reservations leave no movements, so only Quantity is
// checked. A broken before/after chain counts as a mismatch, not an
// error.
func (s *Service) VerifyLedger(ctx context.Context, rec *Record) (bool, error) {
	wh := rec.Warehouse
	movements, err := s.repo.ListMovements(ctx, rec.VariantID, MovementFilter{Warehouse: &wh})
	if err != nil {
		return false, fmt.Errorf("list movements: %w", err)
	}

	replayed, err := ReplayMovements(movements)
	if err != nil {
		logger.Warn(ctx, "movement chain broken",
			"variant_id", rec.VariantID,
			"warehouse", rec.Warehouse,
			"error", err)
		return false, nil
	}

	return replayed == rec.Quantity, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
