package layers

import (
	"fmt"

	"github.com/mkowalik/gradnet/optimize"
)

// MaxPooling reduces every non-overlapping K*K window to its maximum. The
// within-sample index of each winning element is recorded in
// memory["pooling_map"] so the backward pass can route gradients to exactly
// the cells that produced the pooled values.
type MaxPooling struct {
	base
	windowSize int
}

func NewMaxPooling(inputHeight, inputWidth, depth, windowSize int) *MaxPooling {
	if windowSize <= 0 || inputHeight%windowSize != 0 || inputWidth%windowSize != 0 {
		panic(fmt.Sprintf("maxpooling: %dx%d input not tiled exactly by window %d",
			inputHeight, inputWidth, windowSize))
	}
	l := &MaxPooling{
		base: newBase(Dims{
			InputHeight: inputHeight, InputWidth: inputWidth, InputDepth: depth,
			OutputHeight: inputHeight / windowSize, OutputWidth: inputWidth / windowSize, OutputDepth: depth,
		}, "MaxPooling", "MaxPooling"),
		windowSize: windowSize,
	}
	l.m.Add("pooling_map", l.dims.OutputSize(), 1)
	return l
}

// WindowSize returns the pooling window extent (stride equals window).
func (l *MaxPooling) WindowSize() int { return l.windowSize }

func (l *MaxPooling) ResizeBatch(batchSize int) {
	l.base.ResizeBatch(batchSize)
	l.m.Get("pooling_map").Resize(l.dims.OutputSize(), batchSize)
}

func (l *MaxPooling) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	poolingMap := l.m.Get("pooling_map")
	d := l.dims
	k := l.windowSize

	parallelFor(l.batchSize, func(ib int) {
		for c := 0; c < d.InputDepth; c++ {
			for oh := 0; oh < d.OutputHeight; oh++ {
				for ow := 0; ow < d.OutputWidth; ow++ {
					maxIdx := c*d.InputHeight*d.InputWidth + oh*k*d.InputWidth + ow*k
					maxVal := x.At(maxIdx, ib)
					for ph := 0; ph < k; ph++ {
						for pw := 0; pw < k; pw++ {
							idx := c*d.InputHeight*d.InputWidth + (oh*k+ph)*d.InputWidth + ow*k + pw
							if v := x.At(idx, ib); v > maxVal {
								maxVal = v
								maxIdx = idx
							}
						}
					}
					out := c*d.OutputHeight*d.OutputWidth + oh*d.OutputWidth + ow
					y.Set(out, ib, maxVal)
					poolingMap.Set(out, ib, float64(maxIdx))
				}
			}
		}
	})
}

func (l *MaxPooling) Backward() {
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	poolingMap := l.m.Get("pooling_map")

	dx.Zero()
	parallelFor(l.batchSize, func(ib int) {
		for o := 0; o < l.dims.OutputSize(); o++ {
			dx.Set(int(poolingMap.At(o, ib)), ib, dy.At(o, ib))
		}
	})
}

func (l *MaxPooling) Update(lr, decay float64) {}

func (l *MaxPooling) InstallOptimizer(f optimize.Factory) {}
