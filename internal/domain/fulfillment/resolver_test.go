package fulfillment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"caravan/internal/core/id"
	"caravan/internal/domain/sales"
)

// fakeStock is an in-memory StockReserver with a per-variant available
// counter. Reserve takes as much as it can, like the lot walker does.
type fakeStock struct {
	available map[id.ID]int64
	released  map[id.ID]int64

	availableErr error
	reserveErr   error
	releaseErr   error
}

func (f *fakeStock) AvailableForUpdate(_ context.Context, variantID id.ID) (int64, error) {
	if f.availableErr != nil {
		return 0, f.availableErr
	}
	return f.available[variantID], nil
}

func (f *fakeStock) Reserve(_ context.Context, variantID id.ID, want int64) (int64, error) {
	if f.reserveErr != nil {
		return 0, f.reserveErr
	}
	take := f.available[variantID]
	if take > want {
		take = want
	}
	f.available[variantID] -= take
	return take, nil
}

func (f *fakeStock) Release(_ context.Context, variantID id.ID, amount int64) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.available[variantID] += amount
	if f.released == nil {
		f.released = make(map[id.ID]int64)
	}
	f.released[variantID] += amount
	return nil
}

type fakeBackorderRepo struct {
	pending []*sales.BackorderTracking
	updated []*sales.BackorderTracking
	listErr error
}

// ListPendingForUpdate sorts like the repository contract: priority
// DESC, created_at ASC within a tier.
func (f *fakeBackorderRepo) ListPendingForUpdate(_ context.Context, _ []id.ID) ([]*sales.BackorderTracking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*sales.BackorderTracking, len(f.pending))
	copy(out, f.pending)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeBackorderRepo) Update(_ context.Context, tracking *sales.BackorderTracking) error {
	f.updated = append(f.updated, tracking)
	return nil
}

type fakeSaleRepo struct {
	sales   map[id.ID]*sales.Sale
	lines   []*sales.PreorderLine
	updated []*sales.Sale
	listErr error
}

func (f *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*sales.Sale, error) {
	s, ok := f.sales[saleID]
	if !ok {
		return nil, errors.New("sale not found")
	}
	return s, nil
}

func (f *fakeSaleRepo) Update(_ context.Context, sale *sales.Sale) error {
	f.updated = append(f.updated, sale)
	return nil
}

func (f *fakeSaleRepo) ListPreorderLines(_ context.Context, _ []id.ID) ([]*sales.PreorderLine, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.lines, nil
}

func pendingBackorder(saleID, variantID id.ID, shortage int64, priority int) *sales.BackorderTracking {
	return &sales.BackorderTracking{
		ID:               id.New(),
		SaleID:           saleID,
		VariantID:        variantID,
		ShortageQuantity: shortage,
		Priority:         priority,
		Status:           sales.BackorderPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestResolveFullAndPromote(t *testing.T) {
	variantID := id.New()
	saleID := id.New()
	tracking := pendingBackorder(saleID, variantID, 5, 0)

	stock := &fakeStock{available: map[id.ID]int64{variantID: 8}}
	saleRepo := &fakeSaleRepo{sales: map[id.ID]*sales.Sale{
		saleID: {ID: saleID, Status: sales.StatusPartiallyConfirmed, ShortageQuantity: 5},
	}}
	backorders := &fakeBackorderRepo{pending: []*sales.BackorderTracking{tracking}}

	result := NewBackorderResolver(backorders, saleRepo, stock).
		Resolve(context.Background(), []id.ID{variantID})

	if len(result.Resolved) != 1 || len(result.PartiallyResolved) != 0 {
		t.Fatalf("resolved=%d partial=%d, want 1/0", len(result.Resolved), len(result.PartiallyResolved))
	}
	if result.Resolved[0].Reserved != 5 {
		t.Errorf("reserved = %d, want 5", result.Resolved[0].Reserved)
	}

	if tracking.Status != sales.BackorderResolved {
		t.Errorf("tracking status = %s, want RESOLVED", tracking.Status)
	}
	if tracking.ShortageQuantity != 0 {
		t.Errorf("tracking shortage = %d, want 0", tracking.ShortageQuantity)
	}
	if tracking.ResolvedAt == nil {
		t.Error("tracking has no resolved timestamp")
	}
	if !strings.Contains(tracking.Notes, "fully resolved") {
		t.Errorf("tracking notes = %q, want resolution note", tracking.Notes)
	}

	sale := saleRepo.sales[saleID]
	if sale.Status != sales.StatusConfirmed || sale.ShortageQuantity != 0 {
		t.Errorf("sale = %s/%d, want CONFIRMED/0", sale.Status, sale.ShortageQuantity)
	}

	if stock.available[variantID] != 3 {
		t.Errorf("remaining available = %d, want 3", stock.available[variantID])
	}
}

func TestResolvePartial(t *testing.T) {
	variantID := id.New()
	saleID := id.New()
	tracking := pendingBackorder(saleID, variantID, 10, 0)

	stock := &fakeStock{available: map[id.ID]int64{variantID: 4}}
	saleRepo := &fakeSaleRepo{sales: map[id.ID]*sales.Sale{
		saleID: {ID: saleID, Status: sales.StatusPartiallyConfirmed},
	}}
	backorders := &fakeBackorderRepo{pending: []*sales.BackorderTracking{tracking}}

	result := NewBackorderResolver(backorders, saleRepo, stock).
		Resolve(context.Background(), []id.ID{variantID})

	if len(result.PartiallyResolved) != 1 {
		t.Fatalf("partial=%d, want 1", len(result.PartiallyResolved))
	}
	p := result.PartiallyResolved[0]
	if p.Reserved != 4 || p.Remaining != 6 {
		t.Errorf("partial = reserved %d remaining %d, want 4/6", p.Reserved, p.Remaining)
	}

	if tracking.Status != sales.BackorderPending {
		t.Errorf("tracking status = %s, must stay PENDING", tracking.Status)
	}
	if tracking.ShortageQuantity != 6 {
		t.Errorf("tracking shortage = %d, want 6", tracking.ShortageQuantity)
	}

	// A partial resolution must not touch the sale.
	if len(saleRepo.updated) != 0 {
		t.Errorf("sale updated %d times, want 0", len(saleRepo.updated))
	}
}

func TestResolvePriorityOrderConsumesStock(t *testing.T) {
	variantID := id.New()
	highSale := id.New()
	lowSale := id.New()

	// The repository contract returns priority DESC, created_at ASC.
	high := pendingBackorder(highSale, variantID, 6, 10)
	low := pendingBackorder(lowSale, variantID, 6, 1)

	stock := &fakeStock{available: map[id.ID]int64{variantID: 8}}
	saleRepo := &fakeSaleRepo{sales: map[id.ID]*sales.Sale{
		highSale: {ID: highSale, Status: sales.StatusPartiallyConfirmed},
		lowSale:  {ID: lowSale, Status: sales.StatusPartiallyConfirmed},
	}}
	backorders := &fakeBackorderRepo{pending: []*sales.BackorderTracking{high, low}}

	result := NewBackorderResolver(backorders, saleRepo, stock).
		Resolve(context.Background(), []id.ID{variantID})

	if len(result.Resolved) != 1 || result.Resolved[0].BackorderID != high.ID {
		t.Fatalf("resolved = %+v, want only the high-priority backorder", result.Resolved)
	}
	if len(result.PartiallyResolved) != 1 || result.PartiallyResolved[0].BackorderID != low.ID {
		t.Fatalf("partial = %+v, want the low-priority backorder", result.PartiallyResolved)
	}
	if result.PartiallyResolved[0].Reserved != 2 {
		t.Errorf("low-priority reserved = %d, want the 2 leftover units",
			result.PartiallyResolved[0].Reserved)
	}
}

func TestResolveFIFOWithinTier(t *testing.T) {
	variantID := id.New()
	oldSale := id.New()
	newSale := id.New()
	base := time.Now().UTC()

	// Same priority tier: the older backorder is served first even when
	// the repository receives the rows newest first.
	older := pendingBackorder(oldSale, variantID, 4, 5)
	older.CreatedAt = base.Add(-time.Hour)
	newer := pendingBackorder(newSale, variantID, 4, 5)
	newer.CreatedAt = base

	stock := &fakeStock{available: map[id.ID]int64{variantID: 6}}
	saleRepo := &fakeSaleRepo{sales: map[id.ID]*sales.Sale{
		oldSale: {ID: oldSale, Status: sales.StatusPartiallyConfirmed},
		newSale: {ID: newSale, Status: sales.StatusPartiallyConfirmed},
	}}
	backorders := &fakeBackorderRepo{pending: []*sales.BackorderTracking{newer, older}}

	result := NewBackorderResolver(backorders, saleRepo, stock).
		Resolve(context.Background(), []id.ID{variantID})

	if len(result.Resolved) != 1 || result.Resolved[0].BackorderID != older.ID {
		t.Fatalf("resolved = %+v, want only the older backorder", result.Resolved)
	}
	if len(result.PartiallyResolved) != 1 || result.PartiallyResolved[0].BackorderID != newer.ID {
		t.Fatalf("partial = %+v, want the newer backorder", result.PartiallyResolved)
	}
	if result.PartiallyResolved[0].Reserved != 2 {
		t.Errorf("newer reserved = %d, want the 2 leftover units",
			result.PartiallyResolved[0].Reserved)
	}
}

func TestResolveSkipsWhenNoStock(t *testing.T) {
	variantID := id.New()
	tracking := pendingBackorder(id.New(), variantID, 5, 0)

	stock := &fakeStock{available: map[id.ID]int64{}}
	backorders := &fakeBackorderRepo{pending: []*sales.BackorderTracking{tracking}}

	result := NewBackorderResolver(backorders, &fakeSaleRepo{}, stock).
		Resolve(context.Background(), []id.ID{variantID})

	if len(result.Resolved) != 0 || len(result.PartiallyResolved) != 0 || len(result.Warnings) != 0 {
		t.Errorf("result = %+v, want empty pass", result)
	}
	if len(backorders.updated) != 0 {
		t.Error("tracking updated despite zero stock")
	}
}

func TestResolveListFailureIsWarning(t *testing.T) {
	backorders := &fakeBackorderRepo{listErr: errors.New("db down")}

	result := NewBackorderResolver(backorders, &fakeSaleRepo{}, &fakeStock{}).
		Resolve(context.Background(), []id.ID{id.New()})

	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "load pending backorders") {
		t.Errorf("warning = %q", result.Warnings[0])
	}
}

func TestResolveEmptyVariants(t *testing.T) {
	backorders := &fakeBackorderRepo{listErr: errors.New("must not be called")}

	result := NewBackorderResolver(backorders, &fakeSaleRepo{}, &fakeStock{}).
		Resolve(context.Background(), nil)

	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", result.Warnings)
	}
}

func TestResolveConfirmedSaleNotDemoted(t *testing.T) {
	variantID := id.New()
	saleID := id.New()
	tracking := pendingBackorder(saleID, variantID, 2, 0)

	stock := &fakeStock{available: map[id.ID]int64{variantID: 2}}
	saleRepo := &fakeSaleRepo{sales: map[id.ID]*sales.Sale{
		saleID: {ID: saleID, Status: sales.StatusConfirmed},
	}}
	backorders := &fakeBackorderRepo{pending: []*sales.BackorderTracking{tracking}}

	result := NewBackorderResolver(backorders, saleRepo, stock).
		Resolve(context.Background(), []id.ID{variantID})

	if len(result.Resolved) != 1 {
		t.Fatalf("resolved = %d, want 1", len(result.Resolved))
	}
	// Promotion applies only to PARTIALLY_CONFIRMED sales.
	if len(saleRepo.updated) != 0 {
		t.Errorf("sale updated %d times, want 0", len(saleRepo.updated))
	}
}
