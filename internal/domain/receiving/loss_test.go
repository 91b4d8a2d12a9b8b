package receiving

import (
	"testing"

	"caravan/internal/core/id"
)

func TestSplitLossProportional(t *testing.T) {
	lines := []CostLine{
		{ProductID: id.New(), Quantity: 10},
		{ProductID: id.New(), Quantity: 5},
	}

	out := SplitLoss(lines, 15, 3, nil)
	if len(out) != 2 {
		t.Fatalf("got %d lines, want 2", len(out))
	}

	// floor(10*3/15) = 2, floor(5*3/15) = 1.
	if out[0].Loss != 2 || out[0].StockIncrease != 8 {
		t.Errorf("line 0: loss=%d increase=%d, want 2/8", out[0].Loss, out[0].StockIncrease)
	}
	if out[1].Loss != 1 || out[1].StockIncrease != 4 {
		t.Errorf("line 1: loss=%d increase=%d, want 1/4", out[1].Loss, out[1].StockIncrease)
	}
	if out[0].Explicit || out[1].Explicit {
		t.Error("proportional lines must not be marked explicit")
	}
}

func TestSplitLossFloorResidue(t *testing.T) {
	lines := []CostLine{
		{ProductID: id.New(), Quantity: 1},
		{ProductID: id.New(), Quantity: 1},
		{ProductID: id.New(), Quantity: 1},
	}

	// floor(1*2/3) = 0 on every line: the whole declared loss is residue.
	out := SplitLoss(lines, 3, 2, nil)
	for i, l := range out {
		if l.Loss != 0 {
			t.Errorf("line %d: loss=%d, want 0", i, l.Loss)
		}
	}
	if got := UnallocatedLoss(2, out); got != 2 {
		t.Errorf("UnallocatedLoss = %d, want 2", got)
	}
}

func TestSplitLossExplicitDamageMap(t *testing.T) {
	damaged := id.New()
	intact := id.New()
	lines := []CostLine{
		{ProductID: damaged, Quantity: 10},
		{ProductID: intact, Quantity: 10},
	}

	out := SplitLoss(lines, 20, 4, map[id.ID]int64{damaged: 4})

	if !out[0].Explicit || out[0].Loss != 4 || out[0].StockIncrease != 6 {
		t.Errorf("damaged line: explicit=%v loss=%d increase=%d, want true/4/6",
			out[0].Explicit, out[0].Loss, out[0].StockIncrease)
	}
	// The undamaged line still takes its proportional share of the
	// declared total: floor(10*4/20) = 2.
	if out[1].Explicit || out[1].Loss != 2 {
		t.Errorf("intact line: explicit=%v loss=%d, want false/2", out[1].Explicit, out[1].Loss)
	}
}

func TestSplitLossFullLineLoss(t *testing.T) {
	gone := id.New()
	lines := []CostLine{
		{ProductID: gone, Quantity: 5},
		{ProductID: id.New(), Quantity: 5},
	}

	out := SplitLoss(lines, 10, 5, map[id.ID]int64{gone: 5})
	if out[0].StockIncrease != 0 {
		t.Errorf("fully lost line: increase=%d, want 0", out[0].StockIncrease)
	}
}

func TestUnallocatedLoss(t *testing.T) {
	tests := []struct {
		name  string
		loss  int64
		split []LineLoss
		want  int64
	}{
		{"exact", 3, []LineLoss{{Loss: 2}, {Loss: 1}}, 0},
		{"residue", 5, []LineLoss{{Loss: 2}, {Loss: 1}}, 2},
		{"overassigned clamps", 2, []LineLoss{{Loss: 3}}, 0},
		{"no loss", 0, []LineLoss{{Loss: 0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnallocatedLoss(tt.loss, tt.split); got != tt.want {
				t.Errorf("UnallocatedLoss = %d, want %d", got, tt.want)
			}
		})
	}
}
