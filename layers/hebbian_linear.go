package layers

import (
	"math"

	"github.com/mkowalik/gradnet/optimize"
)

// HebbianLinear is a fully connected layer trained without gradients: its
// update feeds the input and binarized output activations through a Hebbian
// learning rule. Backward is illegal on this layer.
type HebbianLinear struct {
	base
	rule optimize.LearningRule
}

func NewHebbianLinear(inputs, outputs int) *HebbianLinear {
	l := &HebbianLinear{
		base: newBase(Dims{
			InputHeight: inputs, InputWidth: 1, InputDepth: 1,
			OutputHeight: outputs, OutputWidth: 1, OutputDepth: 1,
		}, "HebbianLinear", "HebbianLinear"),
	}
	l.p.Add("W", outputs, inputs)
	l.g.Add("W", outputs, inputs)
	r := math.Sqrt(6.0 / float64(inputs+outputs))
	l.p.Get("W").Rand(-r, r)

	l.InstallRule(func(rows, cols int) optimize.LearningRule {
		return optimize.NewHebbianRule(rows, cols)
	})
	return l
}

// InstallRule replaces the layer's Hebbian learning rule.
func (l *HebbianLinear) InstallRule(f optimize.RuleFactory) {
	W := l.p.Get("W")
	l.rule = f(W.Rows, W.Cols)
}

// InstallOptimizer is a no-op: the layer learns through its rule, not a
// gradient optimizer.
func (l *HebbianLinear) InstallOptimizer(f optimize.Factory) {}

func (l *HebbianLinear) Forward(testMode bool) {
	x := l.s.Get("x")
	W := l.p.Get("W")
	y := l.s.Get("y")

	y.CopyFrom(W.MatMul(x))
	for i, v := range y.Data {
		if v > 0.8 {
			y.Data[i] = 1
		} else {
			y.Data[i] = 0
		}
	}
}

func (l *HebbianLinear) Backward() {
	panic(hebbianBackwardDiagnostic)
}

func (l *HebbianLinear) Update(lr, decay float64) {
	optimize.ApplyRule(l.rule, l.p.Get("W"), l.s.Get("x"), l.s.Get("y"), lr)
}
