package layers

import (
	"math"

	"github.com/mkowalik/gradnet/optimize"
)

// Linear is the fully connected affine layer y = W*x + b.
type Linear struct {
	base
}

// NewLinear creates a fully connected layer. W is Xavier-initialized to
// uniform +-sqrt(6/(in+out)); b starts at zero.
func NewLinear(inputs, outputs int) *Linear {
	return newLinearTagged(inputs, outputs, "Linear")
}

// NewSparseLinear is an alias of Linear carrying its own type tag. No
// sparsity is enforced; the distinction exists for archive compatibility.
func NewSparseLinear(inputs, outputs int) *Linear {
	return newLinearTagged(inputs, outputs, "SparseLinear")
}

func newLinearTagged(inputs, outputs int, tag string) *Linear {
	l := &Linear{
		base: newBase(Dims{
			InputHeight: inputs, InputWidth: 1, InputDepth: 1,
			OutputHeight: outputs, OutputWidth: 1, OutputDepth: 1,
		}, tag, tag),
	}
	l.p.Add("W", outputs, inputs)
	l.p.Add("b", outputs, 1)
	l.g.Add("W", outputs, inputs)
	l.g.Add("b", outputs, 1)

	r := math.Sqrt(6.0 / float64(inputs+outputs))
	l.p.Get("W").Rand(-r, r)

	l.InstallOptimizer(func(rows, cols int) optimize.Optimizer {
		return optimize.NewGradientDescent(rows, cols)
	})
	return l
}

func (l *Linear) Forward(testMode bool) {
	x := l.s.Get("x")
	W := l.p.Get("W")
	b := l.p.Get("b")
	y := l.s.Get("y")

	y.CopyFrom(W.MatMul(x))
	for r := 0; r < y.Rows; r++ {
		bv := b.Data[r]
		row := y.Data[r*y.Cols : (r+1)*y.Cols]
		for c := range row {
			row[c] += bv
		}
	}
}

func (l *Linear) Backward() {
	dy := l.g.Get("y")
	x := l.s.Get("x")
	W := l.p.Get("W")

	l.g.Get("W").CopyFrom(dy.MatMul(x.Transpose()))
	l.g.Get("b").CopyFrom(dy.RowSums())
	l.g.Get("x").CopyFrom(W.Transpose().MatMul(dy))
}

func (l *Linear) Update(lr, decay float64) {
	optimize.ApplyUpdate(l.opt["W"], l.p.Get("W"), l.g.Get("W"), lr, decay)
	optimize.ApplyUpdate(l.opt["b"], l.p.Get("b"), l.g.Get("b"), lr, 0)
}
