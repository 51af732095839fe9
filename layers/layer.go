package layers

import (
	"fmt"

	"github.com/mkowalik/gradnet/loss"
	"github.com/mkowalik/gradnet/optimize"
	"github.com/mkowalik/gradnet/tensor"
)

// Dims is the immutable shape metadata every layer carries. Sizes are the
// products of the three extents.
type Dims struct {
	InputHeight  int
	InputWidth   int
	InputDepth   int
	OutputHeight int
	OutputWidth  int
	OutputDepth  int
}

func (d Dims) InputSize() int {
	return d.InputHeight * d.InputWidth * d.InputDepth
}

func (d Dims) OutputSize() int {
	return d.OutputHeight * d.OutputWidth * d.OutputDepth
}

// Layer is the uniform contract every layer implements. A layer owns four
// bags: state (x, y), gradients (x, y and one entry per parameter),
// parameters and memory (scratch).
//
// Forward reads state["x"] and writes state["y"]; Backward reads grad["y"]
// and writes grad["x"] plus the parameter gradients. Update applies one
// optimizer step per learnable parameter; non-learnable layers implement it
// as a no-op.
type Layer interface {
	Forward(testMode bool)
	Backward()
	ResetGrads()
	Update(lr, decay float64)
	ResizeBatch(batchSize int)
	InstallOptimizer(f optimize.Factory)

	TypeTag() string
	DisplayName() string
	Dims() Dims
	InputSize() int
	OutputSize() int
	BatchSize() int
	State() *tensor.Bag
	Grad() *tensor.Bag
	Params() *tensor.Bag
	Memory() *tensor.Bag
}

// HebbianLayer is implemented by layers whose Update consumes activations
// through a Hebbian learning rule instead of a gradient optimizer.
type HebbianLayer interface {
	Layer
	InstallRule(f optimize.RuleFactory)
}

// hebbianBackwardDiagnostic is the panic raised when backpropagation reaches
// a Hebbian layer.
const hebbianBackwardDiagnostic = "Backward propagation should not be used with layers using Hebbian learning"

type base struct {
	dims      Dims
	batchSize int
	typeTag   string
	name      string

	s *tensor.Bag
	g *tensor.Bag
	p *tensor.Bag
	m *tensor.Bag

	opt map[string]optimize.Optimizer
}

func newBase(dims Dims, typeTag, name string) base {
	b := base{
		dims:      dims,
		batchSize: 1,
		typeTag:   typeTag,
		name:      name,
		s:         tensor.NewBag("state"),
		g:         tensor.NewBag("gradients"),
		p:         tensor.NewBag("parameters"),
		m:         tensor.NewBag("memory"),
		opt:       make(map[string]optimize.Optimizer),
	}
	b.s.Add("x", dims.InputSize(), 1)
	b.s.Add("y", dims.OutputSize(), 1)
	b.g.Add("x", dims.InputSize(), 1)
	b.g.Add("y", dims.OutputSize(), 1)
	return b
}

func (b *base) TypeTag() string     { return b.typeTag }
func (b *base) DisplayName() string { return b.name }
func (b *base) Dims() Dims          { return b.dims }
func (b *base) InputSize() int      { return b.dims.InputSize() }
func (b *base) OutputSize() int     { return b.dims.OutputSize() }
func (b *base) BatchSize() int      { return b.batchSize }
func (b *base) State() *tensor.Bag  { return b.s }
func (b *base) Grad() *tensor.Bag   { return b.g }
func (b *base) Params() *tensor.Bag { return b.p }
func (b *base) Memory() *tensor.Bag { return b.m }

// ResizeBatch resizes the batch-sized state and gradient buffers. Layers
// with batch-sized scratch override this and resize their memory too.
func (b *base) ResizeBatch(batchSize int) {
	b.batchSize = batchSize
	b.s.Get("x").Resize(b.dims.InputSize(), batchSize)
	b.g.Get("x").Resize(b.dims.InputSize(), batchSize)
	b.s.Get("y").Resize(b.dims.OutputSize(), batchSize)
	b.g.Get("y").Resize(b.dims.OutputSize(), batchSize)
}

// ResetGrads zeroes the gradient of every learnable parameter.
func (b *base) ResetGrads() {
	for _, key := range b.p.Keys() {
		b.g.Get(key).Zero()
	}
}

// InstallOptimizer replaces the per-parameter optimizer array so that every
// parameter gets a fresh optimizer state of its own shape.
func (b *base) InstallOptimizer(f optimize.Factory) {
	b.opt = make(map[string]optimize.Optimizer, b.p.Len())
	for _, key := range b.p.Keys() {
		t := b.p.Get(key)
		b.opt[key] = f(t.Rows, t.Cols)
	}
}

// Apply copies x into the layer's input state, runs the forward pass in
// training mode and returns the output handle.
func Apply(l Layer, x *tensor.Tensor) *tensor.Tensor {
	if x.Rows != l.InputSize() {
		panic(fmt.Sprintf("layers: input size %d does not match layer input %d", x.Rows, l.InputSize()))
	}
	if l.BatchSize() != x.Cols {
		l.ResizeBatch(x.Cols)
	}
	l.State().Get("x").CopyFrom(x)
	l.Forward(false)
	return l.State().Get("y")
}

// Backpropagate copies dy into the layer's output gradient, runs the
// backward pass and returns the input gradient handle.
func Backpropagate(l Layer, dy *tensor.Tensor) *tensor.Tensor {
	l.Grad().Get("y").CopyFrom(dy)
	l.Backward()
	return l.Grad().Get("x")
}

// NumericalGradient estimates dL/dparam by central differences: each element
// is nudged by +-delta and the loss of a fresh forward pass is differenced.
// Test-only; the analytic Backward must agree with this within tolerance.
func NumericalGradient(l Layer, x, target, param *tensor.Tensor, lf loss.Loss, delta float64) *tensor.Tensor {
	grad := tensor.New(param.Rows, param.Cols)
	for i := range param.Data {
		param.Data[i] += delta
		lp := lf.Value(target, Apply(l, x))
		param.Data[i] -= 2 * delta
		lm := lf.Value(target, Apply(l, x))
		param.Data[i] += delta
		grad.Data[i] = (lp - lm) / (2 * delta)
	}
	return grad
}
