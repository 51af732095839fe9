package optimize

import (
	"math"
	"testing"

	"github.com/mkowalik/gradnet/tensor"
)

func TestHebbianRuleDelta(t *testing.T) {
	// delta = lr * y * x^T
	rule := NewHebbianRule(2, 2)
	x := tensor.FromData([]float64{1, 2}, 2, 1)
	y := tensor.FromData([]float64{1, 0}, 2, 1)

	delta := rule.ComputeUpdate(x, y, 0.5)
	want := []float64{0.5, 1, 0, 0}
	for i, v := range want {
		if math.Abs(delta.Data[i]-v) > 1e-12 {
			t.Fatalf("delta = %v, want %v", delta.Data, want)
		}
	}
}

func TestHebbianRuleApplyAdds(t *testing.T) {
	rule := NewHebbianRule(1, 2)
	p := tensor.FromData([]float64{1, 1}, 1, 2)
	x := tensor.FromData([]float64{2, 4}, 2, 1)
	y := tensor.FromData([]float64{1}, 1, 1)

	ApplyRule(rule, p, x, y, 0.5)
	if math.Abs(p.Data[0]-2) > 1e-12 || math.Abs(p.Data[1]-3) > 1e-12 {
		t.Errorf("p = %v, want [2 3]", p.Data)
	}
}

func TestNormalizedHebbianRuleNormalizesRows(t *testing.T) {
	rule := NewNormalizedHebbianRule(1, 2)
	p := tensor.FromData([]float64{3, 4}, 1, 2)
	x := tensor.New(2, 1)
	y := tensor.New(1, 1)

	// Zero activations leave only the row normalization.
	ApplyRule(rule, p, x, y, 0.1)
	if math.Abs(p.Data[0]-0.6) > 1e-12 || math.Abs(p.Data[1]-0.8) > 1e-12 {
		t.Errorf("p = %v, want unit row [0.6 0.8]", p.Data)
	}
}

func TestNormalizedHebbianRuleDividesByBatch(t *testing.T) {
	rule := NewNormalizedHebbianRule(1, 1)
	x := tensor.FromData([]float64{1, 1}, 1, 2)
	y := tensor.FromData([]float64{1, 1}, 1, 2)

	// y * x^T = 2, scaled by lr/batch = 0.5/2.
	delta := rule.ComputeUpdate(x, y, 0.5)
	if math.Abs(delta.Data[0]-0.5) > 1e-12 {
		t.Errorf("delta = %v, want 0.5", delta.Data[0])
	}
}

func TestNormalizedZeroSumHebbianRule(t *testing.T) {
	rule := NewNormalizedZeroSumHebbianRule(2, 2)
	rule.Seed(7)

	// One patch, filter 0 wins.
	x := tensor.FromData([]float64{3, 4}, 2, 1)
	y := tensor.FromData([]float64{2, 1}, 2, 1)

	delta := rule.ComputeUpdate(x, y, 1.0)

	// Winner row: patch [3 4] shifted to zero sum [-0.5 0.5], normalized.
	s := math.Sqrt(0.5)
	if math.Abs(delta.At(0, 0)-(-0.5/s)) > 1e-12 || math.Abs(delta.At(0, 1)-0.5/s) > 1e-12 {
		t.Errorf("winner row = [%v %v]", delta.At(0, 0), delta.At(0, 1))
	}
	// Loser row untouched.
	if delta.At(1, 0) != 0 || delta.At(1, 1) != 0 {
		t.Errorf("loser row = [%v %v], want zeros", delta.At(1, 0), delta.At(1, 1))
	}
	// Zero-sum property of the winner row.
	if math.Abs(delta.At(0, 0)+delta.At(0, 1)) > 1e-12 {
		t.Error("winner row is not zero-sum")
	}
}

func TestNormalizedZeroSumSkipsTiedColumns(t *testing.T) {
	rule := NewNormalizedZeroSumHebbianRule(2, 2)
	rule.Seed(7)

	x := tensor.FromData([]float64{3, 4}, 2, 1)
	y := tensor.FromData([]float64{1, 1}, 2, 1)

	delta := rule.ComputeUpdate(x, y, 1.0)
	for i, v := range delta.Data {
		if v != 0 {
			t.Fatalf("delta[%d] = %v, want all zeros when filters tie", i, v)
		}
	}
}

func TestBinaryCorrelatorLearningRule(t *testing.T) {
	rule := NewBinaryCorrelatorLearningRule(1, 2)
	x := tensor.FromData([]float64{1, 0}, 2, 1)
	y := tensor.FromData([]float64{1}, 1, 1)

	// N_on = 1, nu_ia = lr * 1 * (2 - 1) = lr.
	delta := rule.ComputeUpdate(x, y, 0.1)
	if math.Abs(delta.Data[0]-0.1) > 1e-12 {
		t.Errorf("co-active delta = %v, want +0.1", delta.Data[0])
	}
	if math.Abs(delta.Data[1]-(-0.1)) > 1e-12 {
		t.Errorf("half-active delta = %v, want -0.1", delta.Data[1])
	}
}

func TestBinaryCorrelatorInactivePairsUntouched(t *testing.T) {
	rule := NewBinaryCorrelatorLearningRule(1, 2)
	x := tensor.FromData([]float64{0, 0}, 2, 1)
	y := tensor.FromData([]float64{0}, 1, 1)

	delta := rule.ComputeUpdate(x, y, 0.1)
	if delta.Data[0] != 0 || delta.Data[1] != 0 {
		t.Errorf("delta = %v, want zeros", delta.Data)
	}
}
