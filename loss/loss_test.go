package loss

import (
	"math"
	"testing"

	"github.com/mkowalik/gradnet/tensor"
)

func TestSquaredError(t *testing.T) {
	target := tensor.FromData([]float64{1, 0}, 2, 1)
	predicted := tensor.FromData([]float64{0.5, 0.5}, 2, 1)
	l := NewSquaredError()

	if got := l.Value(target, predicted); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("value = %v, want 0.25", got)
	}
	if got := l.Mean(target, predicted); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("mean = %v, want 0.25", got)
	}
	grad := l.Gradient(target, predicted)
	if math.Abs(grad.Data[0]-(-0.5)) > 1e-12 || math.Abs(grad.Data[1]-0.5) > 1e-12 {
		t.Errorf("gradient = %v, want [-0.5 0.5]", grad.Data)
	}
}

func TestSquaredErrorMeanDividesByBatch(t *testing.T) {
	target := tensor.FromData([]float64{1, 1}, 1, 2)
	predicted := tensor.FromData([]float64{0, 0}, 1, 2)
	l := NewSquaredError()

	if got := l.Value(target, predicted); got != 1 {
		t.Errorf("value = %v, want 1", got)
	}
	if got := l.Mean(target, predicted); got != 0.5 {
		t.Errorf("mean = %v, want 0.5", got)
	}
}

func TestCrossEntropy(t *testing.T) {
	target := tensor.FromData([]float64{1, 0}, 2, 1)
	predicted := tensor.FromData([]float64{0.5, 0.5}, 2, 1)
	l := NewCrossEntropy()

	if got := l.Value(target, predicted); math.Abs(got-math.Ln2) > 1e-9 {
		t.Errorf("value = %v, want ln 2", got)
	}
	grad := l.Gradient(target, predicted)
	if math.Abs(grad.Data[0]-(-0.5)) > 1e-12 || math.Abs(grad.Data[1]-0.5) > 1e-12 {
		t.Errorf("gradient = %v, want [-0.5 0.5]", grad.Data)
	}
}

func TestCrossEntropySurvivesZeroPrediction(t *testing.T) {
	target := tensor.FromData([]float64{1}, 1, 1)
	predicted := tensor.FromData([]float64{0}, 1, 1)
	l := NewCrossEntropy()

	v := l.Value(target, predicted)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		t.Errorf("value = %v, want finite", v)
	}
}

func TestLogLikelihood(t *testing.T) {
	target := tensor.FromData([]float64{0, 1, 0}, 3, 1)
	predicted := tensor.FromData([]float64{0.2, 0.7, 0.1}, 3, 1)
	l := NewLogLikelihood()

	if got := l.Value(target, predicted); math.Abs(got-(-math.Log(0.7))) > 1e-12 {
		t.Errorf("value = %v, want %v", got, -math.Log(0.7))
	}

	// The gradient was never finished upstream; it must be all zeros.
	grad := l.Gradient(target, predicted)
	for i, v := range grad.Data {
		if v != 0 {
			t.Errorf("gradient[%d] = %v, want 0", i, v)
		}
	}
}

func TestShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on shape mismatch")
		}
	}()
	NewSquaredError().Value(tensor.New(2, 1), tensor.New(3, 1))
}
