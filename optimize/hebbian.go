package optimize

import (
	"math"
	"math/rand"

	"github.com/mkowalik/gradnet/tensor"
)

// LearningRule computes a parameter update from pre- and post-synaptic
// activations rather than a gradient. x is (in, batch), y is (out, batch)
// and the delta matches the (out, in) parameter.
type LearningRule interface {
	ComputeUpdate(x, y *tensor.Tensor, lr float64) *tensor.Tensor
	Name() string
}

// RuleFactory builds a fresh learning rule for a parameter of the given
// shape.
type RuleFactory func(rows, cols int) LearningRule

// rowNormalizer is implemented by rules that renormalize the parameter rows
// after the additive update.
type rowNormalizer interface {
	normalizeRows(p *tensor.Tensor)
}

// ApplyRule runs one Hebbian step on a parameter: p := p + delta, followed by
// the rule's row renormalization if it has one.
func ApplyRule(rule LearningRule, p, x, y *tensor.Tensor, lr float64) {
	delta := rule.ComputeUpdate(x, y, lr)
	assertSameSize(p, delta, rule.Name())
	p.AddInPlace(delta)
	if n, ok := rule.(rowNormalizer); ok {
		n.normalizeRows(p)
	}
}

func normalizeRowsL2(p *tensor.Tensor) {
	for r := 0; r < p.Rows; r++ {
		row := p.Data[r*p.Cols : (r+1)*p.Cols]
		norm := 0.0
		for _, v := range row {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for i := range row {
			row[i] /= norm
		}
	}
}

// HebbianRule is the classical fire-together-wire-together update
// delta = lr * y * x^T.
type HebbianRule struct {
	delta *tensor.Tensor
}

func NewHebbianRule(rows, cols int) *HebbianRule {
	return &HebbianRule{delta: tensor.New(rows, cols)}
}

func (o *HebbianRule) ComputeUpdate(x, y *tensor.Tensor, lr float64) *tensor.Tensor {
	o.delta.CopyFrom(y.MatMul(x.Transpose()))
	o.delta.ScaleInPlace(lr)
	return o.delta
}

func (*HebbianRule) Name() string { return "HebbianRule" }

// NormalizedHebbianRule averages the Hebbian update over the batch and keeps
// every weight row on the unit sphere.
type NormalizedHebbianRule struct {
	delta *tensor.Tensor
}

func NewNormalizedHebbianRule(rows, cols int) *NormalizedHebbianRule {
	return &NormalizedHebbianRule{delta: tensor.New(rows, cols)}
}

func (o *NormalizedHebbianRule) ComputeUpdate(x, y *tensor.Tensor, lr float64) *tensor.Tensor {
	o.delta.CopyFrom(y.MatMul(x.Transpose()))
	o.delta.ScaleInPlace(lr / float64(x.Cols))
	return o.delta
}

func (o *NormalizedHebbianRule) normalizeRows(p *tensor.Tensor) {
	normalizeRowsL2(p)
}

func (*NormalizedHebbianRule) Name() string { return "NormalizedHebbianRule" }

// NormalizedZeroSumHebbianRule is a winner-take-all variant for edge
// detection: per output column the strongest filter row receives the input
// patch, shifted to zero mean and L2-normalized. Columns are visited in a
// shuffled order so no filter is systematically favored by patch position.
type NormalizedZeroSumHebbianRule struct {
	delta *tensor.Tensor
	rng   *rand.Rand
}

func NewNormalizedZeroSumHebbianRule(rows, cols int) *NormalizedZeroSumHebbianRule {
	return &NormalizedZeroSumHebbianRule{
		delta: tensor.New(rows, cols),
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
}

// Seed re-seeds the column shuffle for deterministic tests.
func (o *NormalizedZeroSumHebbianRule) Seed(seed int64) {
	o.rng = rand.New(rand.NewSource(seed))
}

func (o *NormalizedZeroSumHebbianRule) ComputeUpdate(x, y *tensor.Tensor, lr float64) *tensor.Tensor {
	o.delta.Zero()
	argmax := y.ColMaxIndex()
	argmin := y.ColMinIndex()

	order := o.rng.Perm(y.Cols)
	for _, i := range order {
		// If all filters respond equally there is nothing to learn from
		// this patch.
		if argmax[i] == argmin[i] {
			continue
		}
		row := o.delta.Data[argmax[i]*o.delta.Cols : (argmax[i]+1)*o.delta.Cols]
		mean := 0.0
		for r := 0; r < x.Rows; r++ {
			row[r] = x.At(r, i)
			mean += row[r]
		}
		mean /= float64(len(row))
		norm := 0.0
		for j := range row {
			row[j] -= mean
			norm += row[j] * row[j]
		}
		norm = math.Sqrt(norm)
		if norm != 0 {
			for j := range row {
				row[j] /= norm
			}
		}
	}
	o.delta.ScaleInPlace(lr)
	return o.delta
}

func (o *NormalizedZeroSumHebbianRule) normalizeRows(p *tensor.Tensor) {
	normalizeRowsL2(p)
}

func (*NormalizedZeroSumHebbianRule) Name() string { return "NormalizedZeroSumHebbianRule" }

// BinaryCorrelatorLearningRule rewards co-active input/output bit pairs and
// penalizes half-active pairs. The penalty rate scales with the number of
// active output bits.
type BinaryCorrelatorLearningRule struct {
	delta *tensor.Tensor
}

func NewBinaryCorrelatorLearningRule(rows, cols int) *BinaryCorrelatorLearningRule {
	return &BinaryCorrelatorLearningRule{delta: tensor.New(rows, cols)}
}

func (o *BinaryCorrelatorLearningRule) ComputeUpdate(x, y *tensor.Tensor, lr float64) *tensor.Tensor {
	nuAA := lr
	nOn := y.Sum()
	nuIA := lr * nOn * (float64(x.Rows) - nOn)

	o.delta.Zero()
	for b := 0; b < x.Cols; b++ {
		for i := 0; i < x.Rows; i++ {
			xi := x.At(i, b) != 0
			for j := 0; j < y.Rows; j++ {
				yj := y.At(j, b) != 0
				switch {
				case xi && yj:
					o.delta.Data[j*o.delta.Cols+i] += nuAA
				case xi || yj:
					o.delta.Data[j*o.delta.Cols+i] -= nuIA
				}
			}
		}
	}
	return o.delta
}

func (*BinaryCorrelatorLearningRule) Name() string { return "BinaryCorrelatorLearningRule" }
