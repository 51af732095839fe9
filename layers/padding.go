package layers

import (
	"fmt"

	"github.com/mkowalik/gradnet/optimize"
)

// Padding adds a zero border of the given width around every channel.
// Backward crops the border off the incoming gradient.
type Padding struct {
	base
	padding int
}

func NewPadding(inputHeight, inputWidth, depth, padding int) *Padding {
	if padding < 0 {
		panic(fmt.Sprintf("padding: invalid border %d", padding))
	}
	return &Padding{
		base: newBase(Dims{
			InputHeight: inputHeight, InputWidth: inputWidth, InputDepth: depth,
			OutputHeight: inputHeight + 2*padding, OutputWidth: inputWidth + 2*padding, OutputDepth: depth,
		}, "Padding", "Padding"),
		padding: padding,
	}
}

// PaddingSize returns the border width.
func (l *Padding) PaddingSize() int { return l.padding }

func (l *Padding) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	d := l.dims
	p := l.padding

	y.Zero()
	parallelFor(l.batchSize, func(ib int) {
		for c := 0; c < d.InputDepth; c++ {
			for r := 0; r < d.InputHeight; r++ {
				for w := 0; w < d.InputWidth; w++ {
					src := c*d.InputHeight*d.InputWidth + r*d.InputWidth + w
					dst := c*d.OutputHeight*d.OutputWidth + (r+p)*d.OutputWidth + w + p
					y.Set(dst, ib, x.At(src, ib))
				}
			}
		}
	})
}

func (l *Padding) Backward() {
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	d := l.dims
	p := l.padding

	dx.Zero()
	parallelFor(l.batchSize, func(ib int) {
		for c := 0; c < d.InputDepth; c++ {
			for r := 0; r < d.InputHeight; r++ {
				for w := 0; w < d.InputWidth; w++ {
					src := c*d.OutputHeight*d.OutputWidth + (r+p)*d.OutputWidth + w + p
					dst := c*d.InputHeight*d.InputWidth + r*d.InputWidth + w
					dx.Set(dst, ib, dy.At(src, ib))
				}
			}
		}
	})
}

func (l *Padding) Update(lr, decay float64) {}

func (l *Padding) InstallOptimizer(f optimize.Factory) {}
