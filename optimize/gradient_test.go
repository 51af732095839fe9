package optimize

import (
	"math"
	"testing"

	"github.com/mkowalik/gradnet/tensor"
)

const convergenceEps = 1e-5

// descend iterates x := x - opt.ComputeUpdate(x, grad(x), lr) until the
// landscape value is within eps of the minimum, asserting finiteness along
// the way. Returns the iteration count.
func descend(t *testing.T, opt Optimizer, fun DifferentiableFunction, x *tensor.Tensor, lr float64, maxIterations int) int {
	t.Helper()
	for iteration := 0; iteration < maxIterations; iteration++ {
		dx := fun.Gradient(x)
		ApplyUpdate(opt, x, dx, lr, 0)

		value := fun.Value(x)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			t.Fatalf("%s: value not finite at iteration %d", opt.Name(), iteration)
		}
		if !x.IsFinite() {
			t.Fatalf("%s: arguments not finite at iteration %d", opt.Name(), iteration)
		}
		if math.Abs(value-fun.MinValue()) < convergenceEps {
			return iteration
		}
	}
	t.Fatalf("%s: did not converge within %d iterations (value %v)",
		opt.Name(), maxIterations, fun.Value(x))
	return maxIterations
}

func sphereStart(dims int) *tensor.Tensor {
	x := tensor.New(dims, 1)
	x.Enumerate()
	return x
}

func TestOptimizerConvergenceSphere1D(t *testing.T) {
	cases := []struct {
		name          string
		factory       Factory
		lr            float64
		maxIterations int
	}{
		{"GradientDescent", func(r, c int) Optimizer { return NewGradientDescent(r, c) }, 0.1, 10000},
		{"Momentum", func(r, c int) Optimizer { return NewMomentum(r, c) }, 0.01, 100000},
		{"AdaGrad", func(r, c int) Optimizer { return NewAdaGrad(r, c) }, 0.5, 100000},
		{"RMSProp", func(r, c int) Optimizer { return NewRMSProp(r, c) }, 1e-4, 2000000},
		{"AdaDelta", func(r, c int) Optimizer { return NewAdaDelta(r, c) }, 0.001, 3000000},
		{"Adam", func(r, c int) Optimizer { return NewAdam(r, c) }, 1e-4, 2000000},
		{"GradPID", func(r, c int) Optimizer { return NewGradPID(r, c) }, 0.1, 100000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fun := NewSphere(1)
			x := tensor.FromData([]float64{4}, 1, 1)
			iterations := descend(t, tc.factory(1, 1), fun, x, tc.lr, tc.maxIterations)
			t.Logf("converged after %d iterations", iterations)
		})
	}
}

func TestOptimizerConvergenceSphere20D(t *testing.T) {
	cases := []struct {
		name          string
		factory       Factory
		lr            float64
		maxIterations int
	}{
		{"GradientDescent", func(r, c int) Optimizer { return NewGradientDescent(r, c) }, 0.1, 10000},
		{"Momentum", func(r, c int) Optimizer { return NewMomentum(r, c) }, 0.01, 100000},
		{"AdaGrad", func(r, c int) Optimizer { return NewAdaGrad(r, c) }, 0.5, 100000},
		{"RMSProp", func(r, c int) Optimizer { return NewRMSProp(r, c) }, 1e-4, 2000000},
		{"AdaDelta", func(r, c int) Optimizer { return NewAdaDelta(r, c) }, 0.001, 3000000},
		{"Adam", func(r, c int) Optimizer { return NewAdam(r, c) }, 1e-4, 2000000},
		{"GradPID", func(r, c int) Optimizer { return NewGradPID(r, c) }, 0.1, 100000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fun := NewSphere(20)
			x := sphereStart(20)
			iterations := descend(t, tc.factory(20, 1), fun, x, tc.lr, tc.maxIterations)
			t.Logf("converged after %d iterations", iterations)
		})
	}
}

func TestGradientDescentDelta(t *testing.T) {
	opt := NewGradientDescent(2, 1)
	p := tensor.FromData([]float64{1, 2}, 2, 1)
	g := tensor.FromData([]float64{3, -4}, 2, 1)

	delta := opt.ComputeUpdate(p, g, 0.5)
	if delta.Data[0] != 1.5 || delta.Data[1] != -2 {
		t.Errorf("delta = %v", delta.Data)
	}
}

func TestApplyUpdateWithDecay(t *testing.T) {
	opt := NewGradientDescent(1, 1)
	p := tensor.FromData([]float64{10}, 1, 1)
	g := tensor.FromData([]float64{2}, 1, 1)

	// p := (1-0.1)*10 - 0.5*2 = 8
	ApplyUpdate(opt, p, g, 0.5, 0.1)
	if math.Abs(p.Data[0]-8) > 1e-12 {
		t.Errorf("p = %v, want 8", p.Data[0])
	}
}

func TestMomentumAccumulatesVelocity(t *testing.T) {
	opt := NewMomentum(1, 1)
	p := tensor.FromData([]float64{0}, 1, 1)
	g := tensor.FromData([]float64{1}, 1, 1)

	d1 := opt.ComputeUpdate(p, g, 0.1).Data[0]
	d2 := opt.ComputeUpdate(p, g, 0.1).Data[0]
	if math.Abs(d1-0.1) > 1e-12 {
		t.Errorf("first delta = %v, want 0.1", d1)
	}
	if math.Abs(d2-0.19) > 1e-12 {
		t.Errorf("second delta = %v, want 0.19", d2)
	}
}

func TestAdamFirstStepIsLearningRate(t *testing.T) {
	// With bias correction the very first Adam step is lr * g/|g|.
	opt := NewAdam(1, 1)
	p := tensor.FromData([]float64{1}, 1, 1)
	g := tensor.FromData([]float64{42}, 1, 1)

	delta := opt.ComputeUpdate(p, g, 0.001).Data[0]
	if math.Abs(delta-0.001) > 1e-6 {
		t.Errorf("first delta = %v, want ~0.001", delta)
	}
}

func TestSizeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on size mismatch")
		}
	}()
	NewGradientDescent(2, 2).ComputeUpdate(tensor.New(2, 2), tensor.New(3, 3), 0.1)
}
