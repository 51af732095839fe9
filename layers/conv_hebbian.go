package layers

import (
	"fmt"

	"github.com/mkowalik/gradnet/optimize"
)

// ConvHebbian learns convolutional edge-detector filters without gradients.
// Forward packs the input patches into memory["x2col"], computes
// y = W * x2col followed by ReLU, and Update feeds x2col and y through the
// zero-sum winner-take-all rule. The layer processes one sample at a time.
type ConvHebbian struct {
	base
	filters    int
	filterSize int
	stride     int
	rule       optimize.LearningRule
}

func NewConvHebbian(inputHeight, inputWidth, inputDepth, filters, filterSize, stride int) *ConvHebbian {
	if inputDepth != 1 {
		panic(fmt.Sprintf("convhebbian: only single-channel input supported, got depth %d", inputDepth))
	}
	if filterSize <= 0 || stride <= 0 || (inputHeight-filterSize)%stride != 0 || (inputWidth-filterSize)%stride != 0 {
		panic(fmt.Sprintf("convhebbian: %dx%d input not tiled exactly by filter %d stride %d",
			inputHeight, inputWidth, filterSize, stride))
	}
	outH := (inputHeight-filterSize)/stride + 1
	outW := (inputWidth-filterSize)/stride + 1

	l := &ConvHebbian{
		base: newBase(Dims{
			InputHeight: inputHeight, InputWidth: inputWidth, InputDepth: inputDepth,
			OutputHeight: outH, OutputWidth: outW, OutputDepth: filters,
		}, "ConvHebbian", "ConvHebbian"),
		filters:    filters,
		filterSize: filterSize,
		stride:     stride,
	}
	l.p.Add("W", filters, filterSize*filterSize)
	l.g.Add("W", filters, filterSize*filterSize)
	l.m.Add("x2col", filterSize*filterSize, outH*outW)

	// Start from random filters shifted to zero sum, so the winner-take-all
	// updates compete from a symmetric position.
	W := l.p.Get("W")
	W.Rand(0, 1)
	for r := 0; r < W.Rows; r++ {
		row := W.Data[r*W.Cols : (r+1)*W.Cols]
		mean := 0.0
		for _, v := range row {
			mean += v
		}
		mean /= float64(len(row))
		norm := 0.0
		for i := range row {
			row[i] -= mean
			norm += row[i] * row[i]
		}
		if norm != 0 {
			for i := range row {
				row[i] /= norm
			}
		}
	}

	l.InstallRule(func(rows, cols int) optimize.LearningRule {
		return optimize.NewNormalizedZeroSumHebbianRule(rows, cols)
	})
	return l
}

// Filters returns the number of filters.
func (l *ConvHebbian) Filters() int { return l.filters }

// FilterSize returns the square filter extent.
func (l *ConvHebbian) FilterSize() int { return l.filterSize }

// Stride returns the patch step.
func (l *ConvHebbian) Stride() int { return l.stride }

// InstallRule replaces the layer's Hebbian learning rule.
func (l *ConvHebbian) InstallRule(f optimize.RuleFactory) {
	W := l.p.Get("W")
	l.rule = f(W.Rows, W.Cols)
}

// InstallOptimizer is a no-op: the layer learns through its rule.
func (l *ConvHebbian) InstallOptimizer(f optimize.Factory) {}

func (l *ConvHebbian) Forward(testMode bool) {
	x := l.s.Get("x")
	W := l.p.Get("W")
	y := l.s.Get("y")
	x2col := l.m.Get("x2col")
	d := l.dims
	k := l.filterSize

	for oy := 0; oy < d.OutputHeight; oy++ {
		for ox := 0; ox < d.OutputWidth; ox++ {
			col := oy*d.OutputWidth + ox
			for py := 0; py < k; py++ {
				for px := 0; px < k; px++ {
					src := (oy*l.stride+py)*d.InputWidth + ox*l.stride + px
					x2col.Set(py*k+px, col, x.At(src, 0))
				}
			}
		}
	}

	// (filters, patches) flattens row-major into the (filters*outH*outW, 1)
	// output column.
	prod := W.MatMul(x2col)
	for i, v := range prod.Data {
		if v < 0 {
			v = 0
		}
		y.Set(i, 0, v)
	}
}

func (l *ConvHebbian) Backward() {
	panic(hebbianBackwardDiagnostic)
}

func (l *ConvHebbian) Update(lr, decay float64) {
	patches := l.dims.OutputHeight * l.dims.OutputWidth
	y2d := l.s.Get("y").Col(0)
	y2d.Reshape(l.filters, patches)
	optimize.ApplyRule(l.rule, l.p.Get("W"), l.m.Get("x2col"), y2d, lr)
}
