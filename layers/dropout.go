package layers

import (
	"fmt"
	"math/rand"

	"github.com/mkowalik/gradnet/optimize"
)

// Dropout zeroes a random subset of activations during training and scales
// the survivors by 1/keepRatio (inverted dropout), so inference needs no
// rescaling. In test mode the input passes through untouched.
type Dropout struct {
	base
	keepRatio float64
	rng       *rand.Rand
}

func NewDropout(inputs int, keepRatio float64) *Dropout {
	if keepRatio <= 0 || keepRatio > 1 {
		panic(fmt.Sprintf("dropout: keep ratio %v outside (0, 1]", keepRatio))
	}
	l := &Dropout{
		base: newBase(Dims{
			InputHeight: inputs, InputWidth: 1, InputDepth: 1,
			OutputHeight: inputs, OutputWidth: 1, OutputDepth: 1,
		}, "Dropout", "Dropout"),
		keepRatio: keepRatio,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
	l.m.Add("mask", inputs, 1)
	return l
}

// Seed re-seeds the mask generator for deterministic tests.
func (l *Dropout) Seed(seed int64) {
	l.rng = rand.New(rand.NewSource(seed))
}

// KeepRatio returns the configured survival probability.
func (l *Dropout) KeepRatio() float64 {
	return l.keepRatio
}

func (l *Dropout) ResizeBatch(batchSize int) {
	l.base.ResizeBatch(batchSize)
	l.m.Get("mask").Resize(l.dims.InputSize(), batchSize)
}

func (l *Dropout) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	if testMode {
		y.CopyFrom(x)
		return
	}

	mask := l.m.Get("mask")
	for i := range mask.Data {
		if l.rng.Float64() < l.keepRatio {
			mask.Data[i] = 1
		} else {
			mask.Data[i] = 0
		}
		y.Data[i] = x.Data[i] * mask.Data[i] / l.keepRatio
	}
}

// Backward always applies the mask: the backward pass only runs during
// training.
func (l *Dropout) Backward() {
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	mask := l.m.Get("mask")
	for i := range dx.Data {
		dx.Data[i] = dy.Data[i] * mask.Data[i]
	}
}

func (l *Dropout) Update(lr, decay float64) {}

func (l *Dropout) InstallOptimizer(f optimize.Factory) {}
