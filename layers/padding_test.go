package layers

import (
	"testing"

	"github.com/mkowalik/gradnet/tensor"
)

func TestPaddingForward(t *testing.T) {
	l := NewPadding(2, 2, 1, 1)
	x := tensor.FromData([]float64{1, 2, 3, 4}, 4, 1)
	y := Apply(l, x)

	want := []float64{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}
	if y.Rows != 16 {
		t.Fatalf("output size %d, want 16", y.Rows)
	}
	for i, v := range want {
		if y.Data[i] != v {
			t.Fatalf("y = %v, want %v", y.Data, want)
		}
	}
}

func TestPaddingBackwardCrops(t *testing.T) {
	l := NewPadding(2, 2, 1, 1)
	Apply(l, tensor.New(4, 1))

	dy := tensor.New(16, 1)
	dy.Enumerate()
	dx := Backpropagate(l, dy)

	want := []float64{5, 6, 9, 10}
	for i, v := range want {
		if dx.Data[i] != v {
			t.Fatalf("dx = %v, want %v", dx.Data, want)
		}
	}
}

func TestCroppingForward(t *testing.T) {
	l := NewCropping(4, 4, 1, 1)
	x := tensor.New(16, 1)
	x.Enumerate()
	y := Apply(l, x)

	want := []float64{5, 6, 9, 10}
	if y.Rows != 4 {
		t.Fatalf("output size %d, want 4", y.Rows)
	}
	for i, v := range want {
		if y.Data[i] != v {
			t.Fatalf("y = %v, want %v", y.Data, want)
		}
	}
}

func TestCroppingBackwardZeroPads(t *testing.T) {
	l := NewCropping(4, 4, 1, 1)
	Apply(l, tensor.New(16, 1))

	dy := tensor.FromData([]float64{1, 2, 3, 4}, 4, 1)
	dx := Backpropagate(l, dy)

	want := []float64{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}
	for i, v := range want {
		if dx.Data[i] != v {
			t.Fatalf("dx = %v, want %v", dx.Data, want)
		}
	}
}

func TestPaddingCroppingRoundTrip(t *testing.T) {
	pad := NewPadding(3, 3, 2, 2)
	crop := NewCropping(7, 7, 2, 2)

	x := tensor.New(18, 1)
	x.Rand(-1, 1)

	padded := Apply(pad, x)
	restored := Apply(crop, padded)
	if !restored.Equal(x) {
		t.Error("cropping must invert padding")
	}
}

func TestPaddingMultiChannel(t *testing.T) {
	l := NewPadding(1, 1, 2, 1)
	x := tensor.FromData([]float64{5, 9}, 2, 1)
	y := Apply(l, x)

	// Each channel becomes 3x3 with the value centered.
	if y.Rows != 18 {
		t.Fatalf("output size %d, want 18", y.Rows)
	}
	if y.Data[4] != 5 || y.Data[13] != 9 {
		t.Errorf("centers = %v, %v, want 5, 9", y.Data[4], y.Data[13])
	}
	if y.Sum() != 14 {
		t.Errorf("sum = %v, want 14", y.Sum())
	}
}
