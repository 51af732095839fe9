package layers

import (
	"fmt"

	"github.com/mkowalik/gradnet/optimize"
)

// Cropping removes a border of the given width from every channel.
// Backward zero-pads the incoming gradient back to the input shape.
type Cropping struct {
	base
	cropping int
}

func NewCropping(inputHeight, inputWidth, depth, cropping int) *Cropping {
	if cropping < 0 || 2*cropping >= inputHeight || 2*cropping >= inputWidth {
		panic(fmt.Sprintf("cropping: border %d does not fit %dx%d input", cropping, inputHeight, inputWidth))
	}
	return &Cropping{
		base: newBase(Dims{
			InputHeight: inputHeight, InputWidth: inputWidth, InputDepth: depth,
			OutputHeight: inputHeight - 2*cropping, OutputWidth: inputWidth - 2*cropping, OutputDepth: depth,
		}, "Cropping", "Cropping"),
		cropping: cropping,
	}
}

// CroppingSize returns the border width.
func (l *Cropping) CroppingSize() int { return l.cropping }

func (l *Cropping) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	d := l.dims
	p := l.cropping

	parallelFor(l.batchSize, func(ib int) {
		for c := 0; c < d.InputDepth; c++ {
			for r := 0; r < d.OutputHeight; r++ {
				for w := 0; w < d.OutputWidth; w++ {
					src := c*d.InputHeight*d.InputWidth + (r+p)*d.InputWidth + w + p
					dst := c*d.OutputHeight*d.OutputWidth + r*d.OutputWidth + w
					y.Set(dst, ib, x.At(src, ib))
				}
			}
		}
	})
}

func (l *Cropping) Backward() {
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	d := l.dims
	p := l.cropping

	dx.Zero()
	parallelFor(l.batchSize, func(ib int) {
		for c := 0; c < d.InputDepth; c++ {
			for r := 0; r < d.OutputHeight; r++ {
				for w := 0; w < d.OutputWidth; w++ {
					src := c*d.OutputHeight*d.OutputWidth + r*d.OutputWidth + w
					dst := c*d.InputHeight*d.InputWidth + (r+p)*d.InputWidth + w + p
					dx.Set(dst, ib, dy.At(src, ib))
				}
			}
		}
	})
}

func (l *Cropping) Update(lr, decay float64) {}

func (l *Cropping) InstallOptimizer(f optimize.Factory) {}
