package layers

import (
	"math"

	"github.com/mkowalik/gradnet/optimize"
)

// The elementwise activation layers share one shape-preserving skeleton;
// only the transfer function and its derivative differ. Derivatives are
// computed from the cached output, never the input.

type activation struct {
	base
	fn    func(x float64) float64
	deriv func(y float64) float64
}

func newActivation(size int, tag string, fn func(float64) float64, deriv func(float64) float64) activation {
	return activation{
		base: newBase(Dims{
			InputHeight: size, InputWidth: 1, InputDepth: 1,
			OutputHeight: size, OutputWidth: 1, OutputDepth: 1,
		}, tag, tag),
		fn:    fn,
		deriv: deriv,
	}
}

func (l *activation) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	for i, v := range x.Data {
		y.Data[i] = l.fn(v)
	}
}

func (l *activation) Backward() {
	y := l.s.Get("y")
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	for i := range dx.Data {
		dx.Data[i] = dy.Data[i] * l.deriv(y.Data[i])
	}
}

func (l *activation) Update(lr, decay float64) {}

func (l *activation) InstallOptimizer(f optimize.Factory) {}

// ReLU clamps negative inputs to zero.
type ReLU struct {
	activation
}

func NewReLU(size int) *ReLU {
	return &ReLU{newActivation(size, "ReLU",
		func(x float64) float64 {
			if x > 0 {
				return x
			}
			return 0
		},
		func(y float64) float64 {
			if y > 0 {
				return 1
			}
			return 0
		})}
}

// Sigmoid is the logistic function 1/(1+exp(-x)).
type Sigmoid struct {
	activation
}

func NewSigmoid(size int) *Sigmoid {
	return &Sigmoid{newActivation(size, "Sigmoid",
		func(x float64) float64 {
			return 1.0 / (1.0 + math.Exp(-x))
		},
		func(y float64) float64 {
			return y * (1 - y)
		})}
}

// ELU is exponential-linear: x for x > 0, exp(x)-1 otherwise.
type ELU struct {
	activation
}

func NewELU(size int) *ELU {
	return &ELU{newActivation(size, "ELU",
		func(x float64) float64 {
			if x > 0 {
				return x
			}
			return math.Exp(x) - 1
		},
		func(y float64) float64 {
			if y > 0 {
				return 1
			}
			return math.Exp(y)
		})}
}
