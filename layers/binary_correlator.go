package layers

import (
	"github.com/mkowalik/gradnet/optimize"
)

// BinaryCorrelator learns binary correlations between input and output bit
// vectors. A permanence matrix "p" accumulates the Hebbian updates; the
// binary connectivity matrix memory["c"] holds its thresholded form, and the
// forward pass fires an output bit when the connected-input overlap exceeds
// the proximal threshold.
type BinaryCorrelator struct {
	base
	permanenceThreshold float64
	proximalThreshold   float64
	rule                optimize.LearningRule
}

func NewBinaryCorrelator(inputs, outputs int, permanenceThreshold, proximalThreshold float64) *BinaryCorrelator {
	l := &BinaryCorrelator{
		base: newBase(Dims{
			InputHeight: inputs, InputWidth: 1, InputDepth: 1,
			OutputHeight: outputs, OutputWidth: 1, OutputDepth: 1,
		}, "BinaryCorrelator", "BinaryCorrelator"),
		permanenceThreshold: permanenceThreshold,
		proximalThreshold:   proximalThreshold,
	}
	l.p.Add("p", outputs, inputs)
	l.g.Add("p", outputs, inputs)
	l.m.Add("c", outputs, inputs)
	l.p.Get("p").Rand(0, 1)
	l.refreshConnectivity()

	l.InstallRule(func(rows, cols int) optimize.LearningRule {
		return optimize.NewBinaryCorrelatorLearningRule(rows, cols)
	})
	return l
}

// PermanenceThreshold returns the permanence cut-off for connectivity.
func (l *BinaryCorrelator) PermanenceThreshold() float64 { return l.permanenceThreshold }

// ProximalThreshold returns the activation cut-off for output bits.
func (l *BinaryCorrelator) ProximalThreshold() float64 { return l.proximalThreshold }

// InstallRule replaces the layer's Hebbian learning rule.
func (l *BinaryCorrelator) InstallRule(f optimize.RuleFactory) {
	p := l.p.Get("p")
	l.rule = f(p.Rows, p.Cols)
}

// InstallOptimizer is a no-op: the layer learns through its rule.
func (l *BinaryCorrelator) InstallOptimizer(f optimize.Factory) {}

func (l *BinaryCorrelator) refreshConnectivity() {
	p := l.p.Get("p")
	c := l.m.Get("c")
	for i, v := range p.Data {
		if v > l.permanenceThreshold {
			c.Data[i] = 1
		} else {
			c.Data[i] = 0
		}
	}
}

func (l *BinaryCorrelator) Forward(testMode bool) {
	x := l.s.Get("x")
	c := l.m.Get("c")
	y := l.s.Get("y")

	y.CopyFrom(c.MatMul(x))
	for i, v := range y.Data {
		if v > l.proximalThreshold {
			y.Data[i] = 1
		} else {
			y.Data[i] = 0
		}
	}
}

func (l *BinaryCorrelator) Backward() {
	panic(hebbianBackwardDiagnostic)
}

func (l *BinaryCorrelator) Update(lr, decay float64) {
	optimize.ApplyRule(l.rule, l.p.Get("p"), l.s.Get("x"), l.s.Get("y"), lr)
	l.refreshConnectivity()
}
