package optimize

import (
	"fmt"

	"github.com/mkowalik/gradnet/tensor"
)

// DifferentiableFunction is a test landscape for exercising the optimizers:
// a scalar function of an (n, 1) argument vector with an analytic gradient
// and a known minimum.
type DifferentiableFunction interface {
	Value(x *tensor.Tensor) float64
	Gradient(x *tensor.Tensor) *tensor.Tensor
	MinArguments() *tensor.Tensor
	MinValue() float64
	Dims() int
}

func assertDims(x *tensor.Tensor, dims int) {
	if x.Size() != dims {
		panic(fmt.Sprintf("landscape: argument size %d, expected %d", x.Size(), dims))
	}
}

// Sphere is f(x) = sum(x_i^2) with its minimum 0 at the origin.
type Sphere struct {
	dims    int
	minArgs *tensor.Tensor
}

func NewSphere(dims int) *Sphere {
	if dims <= 0 {
		panic(fmt.Sprintf("landscape: invalid dimension count %d", dims))
	}
	return &Sphere{dims: dims, minArgs: tensor.New(dims, 1)}
}

func (f *Sphere) Value(x *tensor.Tensor) float64 {
	assertDims(x, f.dims)
	val := 0.0
	for _, v := range x.Data {
		val += v * v
	}
	return val
}

func (f *Sphere) Gradient(x *tensor.Tensor) *tensor.Tensor {
	assertDims(x, f.dims)
	dx := tensor.New(f.dims, 1)
	for i, v := range x.Data {
		dx.Data[i] = 2 * v
	}
	return dx
}

func (f *Sphere) MinArguments() *tensor.Tensor { return f.minArgs }
func (f *Sphere) MinValue() float64            { return 0 }
func (f *Sphere) Dims() int                    { return f.dims }

// Beale2D is the classic two-dimensional Beale function with its minimum 0
// at (3, 0.5).
type Beale2D struct {
	minArgs *tensor.Tensor
}

func NewBeale2D() *Beale2D {
	min := tensor.New(2, 1)
	min.Data[0] = 3
	min.Data[1] = 0.5
	return &Beale2D{minArgs: min}
}

func (f *Beale2D) Value(p *tensor.Tensor) float64 {
	assertDims(p, 2)
	x, y := p.Data[0], p.Data[1]
	a := 1.5 - x + x*y
	b := 2.25 - x + x*y*y
	c := 2.625 - x + x*y*y*y
	return a*a + b*b + c*c
}

func (f *Beale2D) Gradient(p *tensor.Tensor) *tensor.Tensor {
	assertDims(p, 2)
	x, y := p.Data[0], p.Data[1]

	ax := 2 * (1.5 - x + x*y) * (-1 + y)
	bx := 2 * (2.25 - x + x*y*y) * (-1 + y*y)
	cx := 2 * (2.625 - x + x*y*y*y) * (-1 + y*y*y)

	ay := 2 * (1.5 - x + x*y) * x
	by := 2 * (2.25 - x + x*y*y) * (2 * x * y)
	cy := 2 * (2.625 - x + x*y*y*y) * (3 * x * y * y)

	dx := tensor.New(2, 1)
	dx.Data[0] = ax + bx + cx
	dx.Data[1] = ay + by + cy
	return dx
}

func (f *Beale2D) MinArguments() *tensor.Tensor { return f.minArgs }
func (f *Beale2D) MinValue() float64            { return 0 }
func (f *Beale2D) Dims() int                    { return 2 }

// Rosenbrock2D is f(x, y) = (a-x)^2 + b*(y-x^2)^2 with its minimum 0 at
// (a, a^2).
type Rosenbrock2D struct {
	a, b    float64
	minArgs *tensor.Tensor
}

func NewRosenbrock2D(a, b float64) *Rosenbrock2D {
	min := tensor.New(2, 1)
	min.Data[0] = a
	min.Data[1] = a * a
	return &Rosenbrock2D{a: a, b: b, minArgs: min}
}

func (f *Rosenbrock2D) Value(p *tensor.Tensor) float64 {
	assertDims(p, 2)
	x, y := p.Data[0], p.Data[1]
	p1 := (f.a - x) * (f.a - x)
	p2 := f.b * (y - x*x) * (y - x*x)
	return p1 + p2
}

func (f *Rosenbrock2D) Gradient(p *tensor.Tensor) *tensor.Tensor {
	assertDims(p, 2)
	x, y := p.Data[0], p.Data[1]
	dx := tensor.New(2, 1)
	dx.Data[0] = -2*(f.a-x) + 2*f.b*(y-x*x)*(-2*x)
	dx.Data[1] = 2 * f.b * (y - x*x)
	return dx
}

func (f *Rosenbrock2D) MinArguments() *tensor.Tensor { return f.minArgs }
func (f *Rosenbrock2D) MinValue() float64            { return 0 }
func (f *Rosenbrock2D) Dims() int                    { return 2 }
