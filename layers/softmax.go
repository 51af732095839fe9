package layers

import (
	"math"

	"github.com/mkowalik/gradnet/optimize"
)

// Softmax normalizes every column into a probability distribution. The
// per-column maximum is subtracted before exponentiation to prevent
// overflow.
type Softmax struct {
	base
}

func NewSoftmax(inputs int) *Softmax {
	l := &Softmax{
		base: newBase(Dims{
			InputHeight: inputs, InputWidth: 1, InputDepth: 1,
			OutputHeight: inputs, OutputWidth: 1, OutputDepth: 1,
		}, "Softmax", "Softmax"),
	}
	l.m.Add("e", inputs, 1)
	return l
}

func (l *Softmax) ResizeBatch(batchSize int) {
	l.base.ResizeBatch(batchSize)
	l.m.Get("e").Resize(l.dims.InputSize(), batchSize)
}

func (l *Softmax) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	e := l.m.Get("e")

	max := x.ColMax()
	for c := 0; c < x.Cols; c++ {
		sum := 0.0
		for r := 0; r < x.Rows; r++ {
			v := math.Exp(x.At(r, c) - max[c])
			e.Set(r, c, v)
			sum += v
		}
		for r := 0; r < x.Rows; r++ {
			y.Set(r, c, e.At(r, c)/sum)
		}
	}
}

// Backward applies the elementwise derivative dx = dy * y * (1 - y). This is
// not the full softmax Jacobian: the same local derivative is applied to any
// incoming dy, including the p - t gradient of a cross-entropy loss.
func (l *Softmax) Backward() {
	y := l.s.Get("y")
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	for i := range dx.Data {
		dx.Data[i] = dy.Data[i] * y.Data[i] * (1 - y.Data[i])
	}
}

func (l *Softmax) Update(lr, decay float64) {}

func (l *Softmax) InstallOptimizer(f optimize.Factory) {}
