package tensor

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense row-major matrix of float64. Activations throughout the
// framework are laid out as (size, batch): each column holds one sample.
type Tensor struct {
	Rows int
	Cols int
	Data []float64
}

// New returns a zero-filled tensor with the given dimensions.
func New(rows, cols int) *Tensor {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("tensor: invalid dimensions %dx%d", rows, cols))
	}
	return &Tensor{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// FromData builds a tensor around a copy of data, which must hold rows*cols
// elements in row-major order.
func FromData(data []float64, rows, cols int) *Tensor {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("tensor: %d elements cannot fill %dx%d", len(data), rows, cols))
	}
	t := New(rows, cols)
	copy(t.Data, data)
	return t
}

// Size returns the number of elements.
func (t *Tensor) Size() int {
	return len(t.Data)
}

func (t *Tensor) At(r, c int) float64 {
	return t.Data[t.index(r, c)]
}

func (t *Tensor) Set(r, c int, v float64) {
	t.Data[t.index(r, c)] = v
}

func (t *Tensor) index(r, c int) int {
	if r < 0 || r >= t.Rows || c < 0 || c >= t.Cols {
		panic(fmt.Sprintf("tensor: index (%d,%d) out of bounds for %dx%d", r, c, t.Rows, t.Cols))
	}
	return r*t.Cols + c
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return FromData(t.Data, t.Rows, t.Cols)
}

// CopyFrom overwrites the contents with those of o, which must match in shape.
func (t *Tensor) CopyFrom(o *Tensor) {
	t.assertSameShape(o, "copy")
	copy(t.Data, o.Data)
}

func (t *Tensor) Zero() {
	for i := range t.Data {
		t.Data[i] = 0
	}
}

func (t *Tensor) SetAll(v float64) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

func (t *Tensor) Ones() {
	t.SetAll(1)
}

// Enumerate sets element i to float64(i). Used by deterministic tests.
func (t *Tensor) Enumerate() {
	for i := range t.Data {
		t.Data[i] = float64(i)
	}
}

// Rand fills the tensor with uniform values in [lo, hi).
func (t *Tensor) Rand(lo, hi float64) {
	for i := range t.Data {
		t.Data[i] = lo + rand.Float64()*(hi-lo)
	}
}

// Randn fills the tensor with standard-normal values.
func (t *Tensor) Randn() {
	for i := range t.Data {
		t.Data[i] = rand.NormFloat64()
	}
}

func (t *Tensor) assertSameShape(o *Tensor, op string) {
	if t.Rows != o.Rows || t.Cols != o.Cols {
		panic(fmt.Sprintf("tensor: %s shape mismatch %dx%d vs %dx%d", op, t.Rows, t.Cols, o.Rows, o.Cols))
	}
}

// Add returns t + o elementwise.
func (t *Tensor) Add(o *Tensor) *Tensor {
	t.assertSameShape(o, "add")
	out := t.Clone()
	floats.Add(out.Data, o.Data)
	return out
}

// AddInPlace accumulates o into t.
func (t *Tensor) AddInPlace(o *Tensor) {
	t.assertSameShape(o, "add")
	floats.Add(t.Data, o.Data)
}

// Sub returns t - o elementwise.
func (t *Tensor) Sub(o *Tensor) *Tensor {
	t.assertSameShape(o, "sub")
	out := t.Clone()
	floats.Sub(out.Data, o.Data)
	return out
}

// MulElem returns the Hadamard product.
func (t *Tensor) MulElem(o *Tensor) *Tensor {
	t.assertSameShape(o, "mul")
	out := t.Clone()
	floats.Mul(out.Data, o.Data)
	return out
}

// DivElem returns elementwise t / o.
func (t *Tensor) DivElem(o *Tensor) *Tensor {
	t.assertSameShape(o, "div")
	out := t.Clone()
	floats.Div(out.Data, o.Data)
	return out
}

// Neg returns -t.
func (t *Tensor) Neg() *Tensor {
	return t.Scale(-1)
}

// Scale returns a * t.
func (t *Tensor) Scale(a float64) *Tensor {
	out := t.Clone()
	floats.Scale(a, out.Data)
	return out
}

// ScaleInPlace multiplies every element by a.
func (t *Tensor) ScaleInPlace(a float64) {
	floats.Scale(a, t.Data)
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.Data)
}

// SqrtEps returns sqrt(x + 1e-6), the smoothed square root used by the
// adaptive update rules.
func SqrtEps(x float64) float64 {
	return math.Sqrt(x + 1e-6)
}

// MatMul returns the matrix product t * o.
func (t *Tensor) MatMul(o *Tensor) *Tensor {
	if t.Cols != o.Rows {
		panic(fmt.Sprintf("tensor: matmul shape mismatch %dx%d * %dx%d", t.Rows, t.Cols, o.Rows, o.Cols))
	}
	out := New(t.Rows, o.Cols)
	a := mat.NewDense(t.Rows, t.Cols, t.Data)
	b := mat.NewDense(o.Rows, o.Cols, o.Data)
	c := mat.NewDense(out.Rows, out.Cols, out.Data)
	c.Mul(a, b)
	return out
}

// Transpose returns a transposed copy.
func (t *Tensor) Transpose() *Tensor {
	out := New(t.Cols, t.Rows)
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			out.Data[c*out.Cols+r] = t.Data[r*t.Cols+c]
		}
	}
	return out
}

// RowSums returns a (Rows, 1) column holding the sum of each row.
func (t *Tensor) RowSums() *Tensor {
	out := New(t.Rows, 1)
	for r := 0; r < t.Rows; r++ {
		out.Data[r] = floats.Sum(t.Data[r*t.Cols : (r+1)*t.Cols])
	}
	return out
}

// ColMaxIndex returns, per column, the row index of the maximum element.
func (t *Tensor) ColMaxIndex() []int {
	if t.Rows == 0 {
		panic(fmt.Sprintf("tensor: colmax of empty %dx%d tensor", t.Rows, t.Cols))
	}
	idx := make([]int, t.Cols)
	for c := 0; c < t.Cols; c++ {
		best := t.Data[c]
		for r := 1; r < t.Rows; r++ {
			if v := t.Data[r*t.Cols+c]; v > best {
				best = v
				idx[c] = r
			}
		}
	}
	return idx
}

// ColMinIndex returns, per column, the row index of the minimum element.
func (t *Tensor) ColMinIndex() []int {
	if t.Rows == 0 {
		panic(fmt.Sprintf("tensor: colmin of empty %dx%d tensor", t.Rows, t.Cols))
	}
	idx := make([]int, t.Cols)
	for c := 0; c < t.Cols; c++ {
		best := t.Data[c]
		for r := 1; r < t.Rows; r++ {
			if v := t.Data[r*t.Cols+c]; v < best {
				best = v
				idx[c] = r
			}
		}
	}
	return idx
}

// ColMax returns, per column, the maximum element. Softmax uses this for
// overflow prevention.
func (t *Tensor) ColMax() []float64 {
	if t.Rows == 0 {
		panic(fmt.Sprintf("tensor: colmax of empty %dx%d tensor", t.Rows, t.Cols))
	}
	max := make([]float64, t.Cols)
	for c := 0; c < t.Cols; c++ {
		max[c] = t.Data[c]
		for r := 1; r < t.Rows; r++ {
			if v := t.Data[r*t.Cols+c]; v > max[c] {
				max[c] = v
			}
		}
	}
	return max
}

// Reshape changes the dimensions in place, preserving element order. The
// element count must not change.
func (t *Tensor) Reshape(rows, cols int) {
	if rows*cols != len(t.Data) {
		panic(fmt.Sprintf("tensor: cannot reshape %d elements to %dx%d", len(t.Data), rows, cols))
	}
	t.Rows = rows
	t.Cols = cols
}

// Resize changes the dimensions, invalidating the contents. The tensor is
// zero-filled afterwards.
func (t *Tensor) Resize(rows, cols int) {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("tensor: invalid dimensions %dx%d", rows, cols))
	}
	if rows*cols != len(t.Data) {
		t.Data = make([]float64, rows*cols)
	} else {
		t.Zero()
	}
	t.Rows = rows
	t.Cols = cols
}

// Block copies out the (h, w) submatrix whose top-left corner is (r, c).
func (t *Tensor) Block(r, c, h, w int) *Tensor {
	if r < 0 || c < 0 || r+h > t.Rows || c+w > t.Cols {
		panic(fmt.Sprintf("tensor: block (%d,%d,%d,%d) out of bounds for %dx%d", r, c, h, w, t.Rows, t.Cols))
	}
	out := New(h, w)
	for i := 0; i < h; i++ {
		copy(out.Data[i*w:(i+1)*w], t.Data[(r+i)*t.Cols+c:(r+i)*t.Cols+c+w])
	}
	return out
}

// SetBlock copies src into t with its top-left corner at (r, c).
func (t *Tensor) SetBlock(r, c int, src *Tensor) {
	if r < 0 || c < 0 || r+src.Rows > t.Rows || c+src.Cols > t.Cols {
		panic(fmt.Sprintf("tensor: block (%d,%d,%d,%d) out of bounds for %dx%d", r, c, src.Rows, src.Cols, t.Rows, t.Cols))
	}
	for i := 0; i < src.Rows; i++ {
		copy(t.Data[(r+i)*t.Cols+c:(r+i)*t.Cols+c+src.Cols], src.Data[i*src.Cols:(i+1)*src.Cols])
	}
}

// Col copies out column j as a (Rows, 1) tensor.
func (t *Tensor) Col(j int) *Tensor {
	out := New(t.Rows, 1)
	for r := 0; r < t.Rows; r++ {
		out.Data[r] = t.At(r, j)
	}
	return out
}

// SetCol overwrites column j with the (Rows, 1) tensor src.
func (t *Tensor) SetCol(j int, src *Tensor) {
	if src.Rows != t.Rows || src.Cols != 1 {
		panic(fmt.Sprintf("tensor: column shape mismatch %dx%d vs %dx1", src.Rows, src.Cols, t.Rows))
	}
	for r := 0; r < t.Rows; r++ {
		t.Set(r, j, src.Data[r])
	}
}

// Equal reports exact elementwise equality.
func (t *Tensor) Equal(o *Tensor) bool {
	if t.Rows != o.Rows || t.Cols != o.Cols {
		return false
	}
	for i := range t.Data {
		if t.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// IsFinite reports whether every element is finite.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%dx%d)", t.Rows, t.Cols)
}
