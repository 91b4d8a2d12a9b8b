package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"caravan/internal/core/id"
	"caravan/internal/domain/sales"
)

func preorderLine(saleID id.ID, number string, variantID id.ID, quantity int64, createdAt time.Time) *sales.PreorderLine {
	return &sales.PreorderLine{
		SaleID:     saleID,
		SaleNumber: number,
		VariantID:  variantID,
		Quantity:   quantity,
		CreatedAt:  createdAt,
	}
}

func TestConvertSkip(t *testing.T) {
	saleRepo := &fakeSaleRepo{listErr: errors.New("must not be called")}
	conv := NewPreorderConverter(saleRepo, &fakeStock{})

	result := conv.Convert(context.Background(), ConvertSkip, []id.ID{id.New()})

	if result.Mode != ConvertSkip {
		t.Errorf("mode = %s, want SKIP", result.Mode)
	}
	if len(result.Success) != 0 || len(result.Failed) != 0 || len(result.Warnings) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestConvertAutoFullCoverage(t *testing.T) {
	variantID := id.New()
	saleID := id.New()
	base := time.Now().UTC()

	stock := &fakeStock{available: map[id.ID]int64{variantID: 10}}
	saleRepo := &fakeSaleRepo{
		sales: map[id.ID]*sales.Sale{
			saleID: {ID: saleID, Number: "SO-001", Status: sales.StatusPreorder, ShortageQuantity: 4},
		},
		lines: []*sales.PreorderLine{preorderLine(saleID, "SO-001", variantID, 4, base)},
	}

	result := NewPreorderConverter(saleRepo, stock).
		Convert(context.Background(), ConvertAuto, []id.ID{variantID})

	if len(result.Success) != 1 {
		t.Fatalf("success = %+v, want one conversion", result.Success)
	}
	if result.Success[0].SaleNumber != "SO-001" || result.Success[0].Reserved != 4 {
		t.Errorf("conversion = %+v", result.Success[0])
	}

	sale := saleRepo.sales[saleID]
	if sale.Status != sales.StatusConfirmed || sale.ShortageQuantity != 0 {
		t.Errorf("sale = %s/%d, want CONFIRMED/0", sale.Status, sale.ShortageQuantity)
	}
	if stock.available[variantID] != 6 {
		t.Errorf("available = %d, want 6", stock.available[variantID])
	}
}

func TestConvertAutoNeverPartial(t *testing.T) {
	covered := id.New()
	short := id.New()
	saleID := id.New()
	base := time.Now().UTC()

	// One line is coverable, the other is not; the sale must stay a
	// preorder and no stock may be reserved.
	stock := &fakeStock{available: map[id.ID]int64{covered: 10, short: 1}}
	saleRepo := &fakeSaleRepo{
		sales: map[id.ID]*sales.Sale{
			saleID: {ID: saleID, Number: "SO-002", Status: sales.StatusPreorder},
		},
		lines: []*sales.PreorderLine{
			preorderLine(saleID, "SO-002", covered, 5, base),
			preorderLine(saleID, "SO-002", short, 3, base),
		},
	}

	result := NewPreorderConverter(saleRepo, stock).
		Convert(context.Background(), ConvertAuto, []id.ID{covered, short})

	if len(result.Success) != 0 {
		t.Fatalf("success = %+v, want none", result.Success)
	}
	if len(result.Failed) != 1 || result.Failed[0].SaleID != saleID {
		t.Fatalf("failed = %+v, want the short sale", result.Failed)
	}
	if stock.available[covered] != 10 {
		t.Errorf("covered variant available = %d, reservation leaked", stock.available[covered])
	}
	if saleRepo.sales[saleID].Status != sales.StatusPreorder {
		t.Errorf("sale status = %s, want PREORDER", saleRepo.sales[saleID].Status)
	}
}

func TestConvertAutoSumsDemandPerVariant(t *testing.T) {
	variantID := id.New()
	saleID := id.New()
	base := time.Now().UTC()

	// Two lines of 4 on the same variant: each is coverable on its own,
	// the sale as a whole is not. Nothing may be reserved.
	stock := &fakeStock{available: map[id.ID]int64{variantID: 6}}
	saleRepo := &fakeSaleRepo{
		sales: map[id.ID]*sales.Sale{
			saleID: {ID: saleID, Number: "SO-010", Status: sales.StatusPreorder},
		},
		lines: []*sales.PreorderLine{
			preorderLine(saleID, "SO-010", variantID, 4, base),
			preorderLine(saleID, "SO-010", variantID, 4, base),
		},
	}

	result := NewPreorderConverter(saleRepo, stock).
		Convert(context.Background(), ConvertAuto, []id.ID{variantID})

	if len(result.Success) != 0 {
		t.Fatalf("success = %+v, want none", result.Success)
	}
	if len(result.Failed) != 1 || result.Failed[0].SaleID != saleID {
		t.Fatalf("failed = %+v, want the sale rejected once", result.Failed)
	}
	if stock.available[variantID] != 6 {
		t.Errorf("available = %d, want 6 untouched", stock.available[variantID])
	}
	if saleRepo.sales[saleID].Status != sales.StatusPreorder {
		t.Errorf("sale status = %s, want PREORDER", saleRepo.sales[saleID].Status)
	}
}

func TestConvertAutoUnwindsOnConfirmFailure(t *testing.T) {
	variantID := id.New()
	saleID := id.New()
	base := time.Now().UTC()

	// The sale is missing from the repo, so confirmation fails after the
	// reservation was taken; the reservation must be given back.
	stock := &fakeStock{available: map[id.ID]int64{variantID: 10}}
	saleRepo := &fakeSaleRepo{
		sales: map[id.ID]*sales.Sale{},
		lines: []*sales.PreorderLine{preorderLine(saleID, "SO-011", variantID, 4, base)},
	}

	result := NewPreorderConverter(saleRepo, stock).
		Convert(context.Background(), ConvertAuto, []id.ID{variantID})

	if len(result.Success) != 0 {
		t.Fatalf("success = %+v, want none", result.Success)
	}
	if len(result.Failed) != 1 || result.Failed[0].SaleID != saleID {
		t.Fatalf("failed = %+v, want the unconfirmed sale", result.Failed)
	}
	if stock.available[variantID] != 10 {
		t.Errorf("available = %d, want 10 after unwind", stock.available[variantID])
	}
	if stock.released[variantID] != 4 {
		t.Errorf("released = %d, want 4", stock.released[variantID])
	}
}

func TestConvertAutoOldestFirst(t *testing.T) {
	variantID := id.New()
	oldSale := id.New()
	newSale := id.New()
	base := time.Now().UTC()

	// Stock covers either sale alone but not both; the older one wins.
	stock := &fakeStock{available: map[id.ID]int64{variantID: 5}}
	saleRepo := &fakeSaleRepo{
		sales: map[id.ID]*sales.Sale{
			oldSale: {ID: oldSale, Number: "SO-010", Status: sales.StatusPreorder},
			newSale: {ID: newSale, Number: "SO-011", Status: sales.StatusPreorder},
		},
		lines: []*sales.PreorderLine{
			preorderLine(newSale, "SO-011", variantID, 4, base.Add(time.Hour)),
			preorderLine(oldSale, "SO-010", variantID, 4, base),
		},
	}

	result := NewPreorderConverter(saleRepo, stock).
		Convert(context.Background(), ConvertAuto, []id.ID{variantID})

	if len(result.Success) != 1 || result.Success[0].SaleID != oldSale {
		t.Fatalf("success = %+v, want the older sale", result.Success)
	}
	if len(result.Failed) != 1 || result.Failed[0].SaleID != newSale {
		t.Fatalf("failed = %+v, want the newer sale", result.Failed)
	}
}

func TestConvertManualReportsDemand(t *testing.T) {
	variantA := id.New()
	variantB := id.New()
	saleOne := id.New()
	saleTwo := id.New()
	base := time.Now().UTC()

	stock := &fakeStock{available: map[id.ID]int64{variantA: 7, variantB: 0}}
	saleRepo := &fakeSaleRepo{
		sales: map[id.ID]*sales.Sale{
			saleOne: {ID: saleOne, Status: sales.StatusPreorder},
			saleTwo: {ID: saleTwo, Status: sales.StatusPreorder},
		},
		lines: []*sales.PreorderLine{
			preorderLine(saleOne, "SO-020", variantA, 3, base),
			preorderLine(saleTwo, "SO-021", variantA, 5, base),
			preorderLine(saleTwo, "SO-021", variantB, 2, base),
		},
	}

	result := NewPreorderConverter(saleRepo, stock).
		Convert(context.Background(), ConvertManual, []id.ID{variantA, variantB})

	if len(result.VariantsWithPreorders) != 2 {
		t.Fatalf("summaries = %+v, want 2", result.VariantsWithPreorders)
	}

	byVariant := make(map[id.ID]PreorderSummary)
	for _, s := range result.VariantsWithPreorders {
		byVariant[s.VariantID] = s
	}
	a := byVariant[variantA]
	if a.PreorderCount != 2 || a.TotalRequested != 8 || a.AvailableStock != 7 {
		t.Errorf("variant A summary = %+v, want count 2, requested 8, available 7", a)
	}
	b := byVariant[variantB]
	if b.PreorderCount != 1 || b.TotalRequested != 2 || b.AvailableStock != 0 {
		t.Errorf("variant B summary = %+v, want count 1, requested 2, available 0", b)
	}

	// MANUAL mutates nothing.
	if len(saleRepo.updated) != 0 {
		t.Errorf("sale updated %d times, want 0", len(saleRepo.updated))
	}
	if stock.available[variantA] != 7 {
		t.Errorf("available = %d, reservation leaked", stock.available[variantA])
	}
}

func TestConvertListFailureIsWarning(t *testing.T) {
	saleRepo := &fakeSaleRepo{listErr: errors.New("db down")}

	result := NewPreorderConverter(saleRepo, &fakeStock{}).
		Convert(context.Background(), ConvertAuto, []id.ID{id.New()})

	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}
}

func TestConvertModeValid(t *testing.T) {
	tests := []struct {
		mode ConvertMode
		want bool
	}{
		{ConvertAuto, true},
		{ConvertManual, true},
		{ConvertSkip, true},
		{ConvertMode(""), false},
		{ConvertMode("LATER"), false},
	}

	for _, tt := range tests {
		if got := tt.mode.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}
