package layers

import (
	"fmt"
	"math"
	"sync"

	"github.com/mkowalik/gradnet/optimize"
)

// Convolution applies a bank of square filters with a fixed stride. The
// filters must tile the input exactly: (H'-1)*S + K == H for both extents.
// Each (filter, channel) pair owns one flattened K*K weight row stored under
// "W<f><c>"; the bias vector "b" holds one value per filter.
type Convolution struct {
	base
	filters    int
	kernelSize int
	stride     int
}

func NewConvolution(inputHeight, inputWidth, inputDepth, filters, kernelSize, stride int) *Convolution {
	if kernelSize <= 0 || stride <= 0 || filters <= 0 {
		panic(fmt.Sprintf("convolution: invalid geometry filters=%d kernel=%d stride=%d", filters, kernelSize, stride))
	}
	if (inputHeight-kernelSize)%stride != 0 || (inputWidth-kernelSize)%stride != 0 {
		panic(fmt.Sprintf("convolution: %dx%d input not tiled exactly by kernel %d stride %d",
			inputHeight, inputWidth, kernelSize, stride))
	}
	outH := (inputHeight-kernelSize)/stride + 1
	outW := (inputWidth-kernelSize)/stride + 1

	l := &Convolution{
		base: newBase(Dims{
			InputHeight: inputHeight, InputWidth: inputWidth, InputDepth: inputDepth,
			OutputHeight: outH, OutputWidth: outW, OutputDepth: filters,
		}, "Convolution", "Convolution"),
		filters:    filters,
		kernelSize: kernelSize,
		stride:     stride,
	}

	r := math.Sqrt(6.0 / float64(inputHeight*inputWidth*inputDepth+outH*outW*filters))
	for f := 0; f < filters; f++ {
		for c := 0; c < inputDepth; c++ {
			key := weightKey(f, c)
			l.p.Add(key, 1, kernelSize*kernelSize)
			l.p.Get(key).Rand(-r, r)
			l.g.Add(key, 1, kernelSize*kernelSize)
		}
	}
	l.p.Add("b", filters, 1)
	l.g.Add("b", filters, 1)

	l.InstallOptimizer(func(rows, cols int) optimize.Optimizer {
		return optimize.NewGradientDescent(rows, cols)
	})
	return l
}

func weightKey(filter, channel int) string {
	return fmt.Sprintf("W%d%d", filter, channel)
}

// Filters returns the number of filters in the bank.
func (l *Convolution) Filters() int { return l.filters }

// KernelSize returns the square kernel extent.
func (l *Convolution) KernelSize() int { return l.kernelSize }

// Stride returns the filter step.
func (l *Convolution) Stride() int { return l.stride }

func (l *Convolution) Forward(testMode bool) {
	x := l.s.Get("x")
	y := l.s.Get("y")
	b := l.p.Get("b")
	d := l.dims
	k := l.kernelSize

	// Snapshot the weight rows once; the bag lookup is not free inside the
	// innermost loop.
	weights := make([][]float64, l.filters*d.InputDepth)
	for f := 0; f < l.filters; f++ {
		for c := 0; c < d.InputDepth; c++ {
			weights[f*d.InputDepth+c] = l.p.Get(weightKey(f, c)).Data
		}
	}

	parallelFor(l.batchSize, func(ib int) {
		for f := 0; f < l.filters; f++ {
			for oy := 0; oy < d.OutputHeight; oy++ {
				for ox := 0; ox < d.OutputWidth; ox++ {
					sum := b.Data[f]
					for c := 0; c < d.InputDepth; c++ {
						w := weights[f*d.InputDepth+c]
						for py := 0; py < k; py++ {
							xRow := c*d.InputHeight*d.InputWidth + (oy*l.stride+py)*d.InputWidth + ox*l.stride
							for px := 0; px < k; px++ {
								sum += w[py*k+px] * x.At(xRow+px, ib)
							}
						}
					}
					y.Set(f*d.OutputHeight*d.OutputWidth+oy*d.OutputWidth+ox, ib, sum)
				}
			}
		}
	})
}

func (l *Convolution) Backward() {
	x := l.s.Get("x")
	dy := l.g.Get("y")
	dx := l.g.Get("x")
	d := l.dims
	k := l.kernelSize

	dx.Zero()

	weights := make([][]float64, l.filters*d.InputDepth)
	gradW := make([][]float64, l.filters*d.InputDepth)
	for f := 0; f < l.filters; f++ {
		for c := 0; c < d.InputDepth; c++ {
			weights[f*d.InputDepth+c] = l.p.Get(weightKey(f, c)).Data
			gradW[f*d.InputDepth+c] = l.g.Get(weightKey(f, c)).Data
		}
	}
	gradB := l.g.Get("b").Data

	// Parameter gradients are shared across samples; each worker reduces
	// into local buffers and merges them inside a critical section. The
	// input gradient columns are per-sample and need no locking.
	var mu sync.Mutex
	parallelFor(l.batchSize, func(ib int) {
		localW := make([][]float64, len(gradW))
		for i := range localW {
			localW[i] = make([]float64, k*k)
		}
		localB := make([]float64, l.filters)

		for f := 0; f < l.filters; f++ {
			for oy := 0; oy < d.OutputHeight; oy++ {
				for ox := 0; ox < d.OutputWidth; ox++ {
					g := dy.At(f*d.OutputHeight*d.OutputWidth+oy*d.OutputWidth+ox, ib)
					localB[f] += g
					for c := 0; c < d.InputDepth; c++ {
						w := weights[f*d.InputDepth+c]
						lw := localW[f*d.InputDepth+c]
						for py := 0; py < k; py++ {
							xRow := c*d.InputHeight*d.InputWidth + (oy*l.stride+py)*d.InputWidth + ox*l.stride
							for px := 0; px < k; px++ {
								lw[py*k+px] += g * x.At(xRow+px, ib)
								dx.Data[(xRow+px)*dx.Cols+ib] += g * w[py*k+px]
							}
						}
					}
				}
			}
		}

		mu.Lock()
		for i := range gradW {
			for j := range gradW[i] {
				gradW[i][j] += localW[i][j]
			}
		}
		for f := range gradB {
			gradB[f] += localB[f]
		}
		mu.Unlock()
	})
}

func (l *Convolution) Update(lr, decay float64) {
	for f := 0; f < l.filters; f++ {
		for c := 0; c < l.dims.InputDepth; c++ {
			key := weightKey(f, c)
			optimize.ApplyUpdate(l.opt[key], l.p.Get(key), l.g.Get(key), lr, decay)
		}
	}
	optimize.ApplyUpdate(l.opt["b"], l.p.Get("b"), l.g.Get("b"), lr, 0)
}
