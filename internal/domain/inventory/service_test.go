package inventory

import (
	"context"
	"testing"
	"time"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/core/types"
)

// memRepo is an in-memory Repository for ledger tests. Lots keep their
// insertion order, which stands in for created_at ASC.
type memRepo struct {
	records   []*Record
	movements []*Movement
}

func (m *memRepo) GetForUpdate(_ context.Context, variantID id.ID, warehouse Warehouse) (*Record, error) {
	for _, r := range m.records {
		if r.VariantID == variantID && r.Warehouse == warehouse {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListByVariantForUpdate(_ context.Context, variantID id.ID) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if r.VariantID == variantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) ListByVariant(ctx context.Context, variantID id.ID) ([]*Record, error) {
	return m.ListByVariantForUpdate(ctx, variantID)
}

func (m *memRepo) Create(_ context.Context, rec *Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memRepo) UpdateCounts(_ context.Context, rec *Record) error {
	return nil
}

func (m *memRepo) AppendMovements(_ context.Context, movements []*Movement) error {
	m.movements = append(m.movements, movements...)
	return nil
}

func (m *memRepo) ListMovements(_ context.Context, variantID id.ID, filter MovementFilter) ([]*Movement, error) {
	var out []*Movement
	for _, mv := range m.movements {
		if mv.VariantID != variantID {
			continue
		}
		if filter.Warehouse != nil && mv.Warehouse != *filter.Warehouse {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func seedRecord(repo *memRepo, variantID id.ID, warehouse Warehouse, quantity, reserved int64) *Record {
	rec := &Record{
		ID:        id.New(),
		VariantID: variantID,
		Warehouse: warehouse,
		Quantity:  quantity,
		Reserved:  reserved,
		Available: quantity - reserved,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	repo.records = append(repo.records, rec)
	return rec
}

func TestApplyCreatesRecordLazily(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()

	mv, err := svc.Apply(context.Background(), ApplyInput{
		VariantID:     variantID,
		Warehouse:     WarehouseCompany,
		Delta:         10,
		UnitCost:      types.MustMoney("110"),
		Type:          MovementReceipt,
		ReferenceType: "goods_receipt",
		ReferenceID:   id.New(),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(repo.records) != 1 {
		t.Fatalf("got %d records, want 1", len(repo.records))
	}
	rec := repo.records[0]
	if rec.Quantity != 10 || rec.Available != 10 || rec.Reserved != 0 {
		t.Errorf("record counters = %d/%d/%d, want 10/0/10",
			rec.Quantity, rec.Reserved, rec.Available)
	}

	if mv.QuantityBefore != 0 || mv.QuantityAfter != 10 || mv.QuantityChange != 10 {
		t.Errorf("movement snapshots = %d/%d/%d, want 0/10/10",
			mv.QuantityBefore, mv.QuantityAfter, mv.QuantityChange)
	}
	if !mv.TotalCost.Equal(types.MustMoney("1100")) {
		t.Errorf("movement total cost = %s, want 1100", mv.TotalCost.String())
	}
	if len(repo.movements) != 1 {
		t.Errorf("got %d movement rows, want 1", len(repo.movements))
	}
}

func TestApplyRejectsNegativeQuantity(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 5, 0)

	_, err := svc.Apply(context.Background(), ApplyInput{
		VariantID: variantID,
		Warehouse: WarehouseCompany,
		Delta:     -6,
		Type:      MovementAdjustment,
	})
	if !apperror.IsLedgerCorruption(err) {
		t.Fatalf("Apply() error = %v, want ledger corruption", err)
	}
	if len(repo.movements) != 0 {
		t.Error("failed apply must not append a movement")
	}
}

func TestApplyRejectsEatingReserved(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 10, 7)

	// Quantity would stay positive (10-5=5) but available is only 3.
	_, err := svc.Apply(context.Background(), ApplyInput{
		VariantID: variantID,
		Warehouse: WarehouseCompany,
		Delta:     -5,
		Type:      MovementAdjustment,
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInsufficientStock {
		t.Fatalf("Apply() error = %v, want %s", err, apperror.CodeInsufficientStock)
	}
}

func TestApplyValidation(t *testing.T) {
	svc := NewService(&memRepo{})

	tests := []struct {
		name string
		in   ApplyInput
	}{
		{"unknown warehouse", ApplyInput{VariantID: id.New(), Warehouse: "DOCK", Delta: 1}},
		{"zero delta", ApplyInput{VariantID: id.New(), Warehouse: WarehouseCompany, Delta: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(context.Background(), tt.in)
			appErr, ok := apperror.AsAppError(err)
			if !ok || appErr.Code != apperror.CodeValidation {
				t.Errorf("Apply() error = %v, want %s", err, apperror.CodeValidation)
			}
		})
	}
}

func TestApplyConservesInvariant(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()

	deltas := []int64{12, -4, 3, -10}
	for _, d := range deltas {
		if _, err := svc.Apply(context.Background(), ApplyInput{
			VariantID: variantID,
			Warehouse: WarehouseCompany,
			Delta:     d,
			Type:      MovementAdjustment,
		}); err != nil {
			t.Fatalf("Apply(%d) error = %v", d, err)
		}
	}

	rec := repo.records[0]
	if rec.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", rec.Quantity)
	}
	if rec.Available != rec.Quantity-rec.Reserved {
		t.Errorf("available %d != quantity %d - reserved %d",
			rec.Available, rec.Quantity, rec.Reserved)
	}

	// The movement log must replay to the final quantity.
	replayed, err := ReplayMovements(repo.movements)
	if err != nil {
		t.Fatalf("ReplayMovements() error = %v", err)
	}
	if replayed != rec.Quantity {
		t.Errorf("replayed quantity = %d, want %d", replayed, rec.Quantity)
	}
}

func TestTransferDamage(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	normal := id.New()
	damaged := id.New()
	seedRecord(repo, normal, WarehouseCompany, 10, 0)

	transfer, err := svc.TransferDamage(context.Background(), normal, damaged,
		WarehouseCompany, 3, types.MustMoney("50"), "goods_receipt", id.New())
	if err != nil {
		t.Fatalf("TransferDamage() error = %v", err)
	}

	if transfer.FromVariantID != normal || transfer.ToVariantID != damaged || transfer.Quantity != 3 {
		t.Errorf("transfer = %+v", transfer)
	}

	var normalRec, damagedRec *Record
	for _, r := range repo.records {
		switch r.VariantID {
		case normal:
			normalRec = r
		case damaged:
			damagedRec = r
		}
	}
	if normalRec.Quantity != 7 {
		t.Errorf("normal quantity = %d, want 7", normalRec.Quantity)
	}
	if damagedRec == nil || damagedRec.Quantity != 3 {
		t.Errorf("damaged record = %+v, want quantity 3", damagedRec)
	}

	if len(repo.movements) != 2 {
		t.Fatalf("got %d movements, want 2", len(repo.movements))
	}
	if repo.movements[0].Type != MovementDamageOut || repo.movements[1].Type != MovementDamageIn {
		t.Errorf("movement types = %s/%s, want DAMAGE_OUT/DAMAGE_IN",
			repo.movements[0].Type, repo.movements[1].Type)
	}
}

func TestTransferDamageInsufficientStock(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	normal := id.New()
	seedRecord(repo, normal, WarehouseCompany, 2, 0)

	_, err := svc.TransferDamage(context.Background(), normal, id.New(),
		WarehouseCompany, 5, types.Zero(), "goods_receipt", id.New())
	if err == nil {
		t.Fatal("TransferDamage() = nil, want error")
	}
}

func TestReservePartial(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 5, 2)
	seedRecord(repo, variantID, WarehousePrivate, 4, 0)

	// First lot offers 3 available, second 4; wanting 10 reserves 7.
	got, err := svc.Reserve(context.Background(), variantID, 10)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if got != 7 {
		t.Errorf("Reserve() = %d, want 7", got)
	}

	if repo.records[0].Reserved != 5 || repo.records[0].Available != 0 {
		t.Errorf("lot 0: reserved=%d available=%d, want 5/0",
			repo.records[0].Reserved, repo.records[0].Available)
	}
	if repo.records[1].Reserved != 4 || repo.records[1].Available != 0 {
		t.Errorf("lot 1: reserved=%d available=%d, want 4/0",
			repo.records[1].Reserved, repo.records[1].Available)
	}

	// Reservations are counter moves only, never ledger movements.
	if len(repo.movements) != 0 {
		t.Errorf("got %d movements, want 0", len(repo.movements))
	}
}

func TestReserveStopsWhenSatisfied(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 10, 0)
	seedRecord(repo, variantID, WarehousePrivate, 10, 0)

	got, err := svc.Reserve(context.Background(), variantID, 6)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if got != 6 {
		t.Errorf("Reserve() = %d, want 6", got)
	}
	if repo.records[1].Reserved != 0 {
		t.Errorf("second lot touched: reserved=%d, want 0", repo.records[1].Reserved)
	}
}

func TestReleaseRestoresAvailability(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 10, 3)
	seedRecord(repo, variantID, WarehousePrivate, 5, 4)

	if err := svc.Release(context.Background(), variantID, 5); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if repo.records[0].Reserved != 0 || repo.records[0].Available != 10 {
		t.Errorf("first lot = reserved %d available %d, want 0/10",
			repo.records[0].Reserved, repo.records[0].Available)
	}
	if repo.records[1].Reserved != 2 || repo.records[1].Available != 3 {
		t.Errorf("second lot = reserved %d available %d, want 2/3",
			repo.records[1].Reserved, repo.records[1].Available)
	}
	if len(repo.movements) != 0 {
		t.Errorf("movements appended = %d, want 0", len(repo.movements))
	}
}

func TestReleaseMoreThanReservedIsCorruption(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 10, 2)

	err := svc.Release(context.Background(), variantID, 3)
	if !apperror.IsLedgerCorruption(err) {
		t.Fatalf("Release() error = %v, want ledger corruption", err)
	}
}

func TestAvailableForUpdate(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()
	seedRecord(repo, variantID, WarehouseCompany, 8, 3)
	seedRecord(repo, variantID, WarehousePrivate, 2, 0)
	seedRecord(repo, id.New(), WarehouseCompany, 99, 0)

	got, err := svc.AvailableForUpdate(context.Background(), variantID)
	if err != nil {
		t.Fatalf("AvailableForUpdate() error = %v", err)
	}
	if got != 7 {
		t.Errorf("AvailableForUpdate() = %d, want 7", got)
	}
}

func TestVerifyLedger(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	variantID := id.New()

	for _, delta := range []int64{12, -4, 3} {
		if _, err := svc.Apply(context.Background(), ApplyInput{
			VariantID:     variantID,
			Warehouse:     WarehouseCompany,
			Delta:         delta,
			UnitCost:      types.MustMoney("10"),
			Type:          MovementAdjustment,
			ReferenceType: "adjustment",
			ReferenceID:   id.New(),
		}); err != nil {
			t.Fatalf("Apply(%d) error = %v", delta, err)
		}
	}
	rec := repo.records[0]

	ok, err := svc.VerifyLedger(context.Background(), rec)
	if err != nil {
		t.Fatalf("VerifyLedger() error = %v", err)
	}
	if !ok {
		t.Error("VerifyLedger() = false, want true")
	}

	// Counter drift against the log.
	rec.Quantity = 99
	if ok, _ := svc.VerifyLedger(context.Background(), rec); ok {
		t.Error("VerifyLedger() = true after counter drift, want false")
	}
	rec.Quantity = 11

	// Broken before/after chain is a mismatch, not an error.
	repo.movements[1].QuantityAfter = 100
	ok, err = svc.VerifyLedger(context.Background(), rec)
	if err != nil {
		t.Fatalf("VerifyLedger() error = %v", err)
	}
	if ok {
		t.Error("VerifyLedger() = true on broken chain, want false")
	}
}

func TestReplayMovementsDetectsGap(t *testing.T) {
	movements := []*Movement{
		{QuantityBefore: 0, QuantityChange: 5, QuantityAfter: 5},
		{QuantityBefore: 6, QuantityChange: 1, QuantityAfter: 7},
	}
	if _, err := ReplayMovements(movements); err == nil {
		t.Error("ReplayMovements() = nil, want continuity error")
	}
}
