package layers

import (
	"math"
	"testing"

	"github.com/mkowalik/gradnet/loss"
	"github.com/mkowalik/gradnet/tensor"
)

// The 5x5 single-channel fixture with one 3x3 filter, stride 1. The image
// and filter are the classic convolved-feature walkthrough.
func conv5x5Fixture() (*Convolution, *tensor.Tensor, []float64) {
	l := NewConvolution(5, 5, 1, 1, 3, 1)
	l.p.Get("W00").CopyFrom(tensor.FromData([]float64{
		1, 0, 1,
		0, 1, 0,
		1, 0, 1,
	}, 1, 9))
	l.p.Get("b").Zero()

	input := tensor.FromData([]float64{
		1, 1, 1, 0, 0,
		0, 1, 1, 1, 0,
		0, 0, 1, 1, 1,
		0, 0, 1, 1, 0,
		0, 1, 1, 0, 0,
	}, 25, 1)
	want := []float64{4, 3, 4, 2, 4, 3, 2, 3, 4}
	return l, input, want
}

func TestConvolutionForward5x5(t *testing.T) {
	l, input, want := conv5x5Fixture()

	if l.OutputSize() != 9 {
		t.Fatalf("output size = %d, want 9", l.OutputSize())
	}
	y := Apply(l, input)
	for i, v := range want {
		if math.Abs(y.Data[i]-v) > 1e-12 {
			t.Fatalf("y = %v, want %v", y.Data, want)
		}
	}

	// A second pass must give identical results.
	y = Apply(l, input)
	for i, v := range want {
		if math.Abs(y.Data[i]-v) > 1e-12 {
			t.Fatalf("second pass y = %v, want %v", y.Data, want)
		}
	}
}

func TestConvolutionBiasAddsPerFilter(t *testing.T) {
	l, input, want := conv5x5Fixture()
	l.p.Get("b").SetAll(10)

	y := Apply(l, input)
	for i, v := range want {
		if math.Abs(y.Data[i]-(v+10)) > 1e-12 {
			t.Fatalf("y = %v, want bias-shifted %v", y.Data, want)
		}
	}
}

func TestConvolutionShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when filters do not tile the input")
		}
	}()
	// (6-3) is not divisible by stride 2.
	NewConvolution(6, 6, 1, 1, 3, 2)
}

func TestConvolutionStride2Geometry(t *testing.T) {
	l := NewConvolution(5, 7, 1, 3, 3, 2)
	d := l.Dims()
	if d.OutputHeight != 2 || d.OutputWidth != 3 || d.OutputDepth != 3 {
		t.Errorf("output dims %dx%dx%d, want 2x3x3", d.OutputHeight, d.OutputWidth, d.OutputDepth)
	}
	if l.OutputSize() != 18 {
		t.Errorf("output size = %d", l.OutputSize())
	}
}

func TestConvolutionParamLayout(t *testing.T) {
	l := NewConvolution(4, 4, 2, 3, 2, 2)
	for f := 0; f < 3; f++ {
		for c := 0; c < 2; c++ {
			w := l.p.Get(weightKey(f, c))
			if w.Rows != 1 || w.Cols != 4 {
				t.Errorf("W%d%d shape %dx%d, want 1x4", f, c, w.Rows, w.Cols)
			}
		}
	}
	b := l.p.Get("b")
	if b.Rows != 3 || b.Cols != 1 {
		t.Errorf("b shape %dx%d, want 3x1", b.Rows, b.Cols)
	}
}

func TestConvolutionNumericalGradient(t *testing.T) {
	l := NewConvolution(4, 4, 2, 2, 2, 2)
	lf := loss.NewSquaredError()

	x := tensor.New(l.InputSize(), 1)
	x.Rand(-1, 1)
	target := tensor.New(l.OutputSize(), 1)
	target.Rand(-1, 1)

	keys := append([]string{}, l.p.Keys()...)
	for _, key := range keys {
		numerical := NumericalGradient(l, x, target, l.p.Get(key), lf, 1e-5)

		y := Apply(l, x)
		dy := lf.Gradient(target, y)
		l.ResetGrads()
		Backpropagate(l, dy)
		analytic := l.g.Get(key)

		for i := range analytic.Data {
			if diff := math.Abs(analytic.Data[i] - numerical.Data[i]); diff > 1e-6 {
				t.Errorf("%s[%d]: analytic %v vs numerical %v (diff %v)",
					key, i, analytic.Data[i], numerical.Data[i], diff)
			}
		}
	}
}

func TestConvolutionInputGradientNumerically(t *testing.T) {
	l := NewConvolution(3, 3, 1, 2, 2, 1)
	lf := loss.NewSquaredError()

	x := tensor.New(l.InputSize(), 1)
	x.Rand(-1, 1)
	target := tensor.New(l.OutputSize(), 1)
	target.Rand(-1, 1)

	y := Apply(l, x)
	dy := lf.Gradient(target, y)
	l.ResetGrads()
	dx := Backpropagate(l, dy).Clone()

	const delta = 1e-5
	for i := range x.Data {
		x.Data[i] += delta
		plus := lf.Value(target, Apply(l, x))
		x.Data[i] -= 2 * delta
		minus := lf.Value(target, Apply(l, x))
		x.Data[i] += delta
		numerical := (plus - minus) / (2 * delta)
		if diff := math.Abs(dx.Data[i] - numerical); diff > 1e-6 {
			t.Errorf("dx[%d]: analytic %v vs numerical %v (diff %v)",
				i, dx.Data[i], numerical, diff)
		}
	}
}

func TestConvolutionBatchedForwardMatchesSingle(t *testing.T) {
	l := NewConvolution(4, 4, 1, 2, 2, 2)

	x1 := tensor.New(16, 1)
	x1.Rand(-1, 1)
	x2 := tensor.New(16, 1)
	x2.Rand(-1, 1)

	batch := tensor.New(16, 2)
	batch.SetCol(0, x1)
	batch.SetCol(1, x2)

	yBatch := Apply(l, batch).Clone()
	y1 := Apply(l, x1).Clone()
	y2 := Apply(l, x2).Clone()

	for r := 0; r < yBatch.Rows; r++ {
		if math.Abs(yBatch.At(r, 0)-y1.Data[r]) > 1e-12 ||
			math.Abs(yBatch.At(r, 1)-y2.Data[r]) > 1e-12 {
			t.Fatalf("batched forward differs from per-sample forward at row %d", r)
		}
	}
}
