package loss

import (
	"fmt"
	"math"

	"github.com/mkowalik/gradnet/tensor"
)

// Loss computes the scalar penalty between a target batch and a predicted
// batch, both laid out as (size, batch) columns.
type Loss interface {
	// Value returns the total loss over the batch.
	Value(target, predicted *tensor.Tensor) float64
	// Mean returns the loss averaged over the batch columns.
	Mean(target, predicted *tensor.Tensor) float64
	// Gradient returns dL/dprediction with the shape of predicted.
	Gradient(target, predicted *tensor.Tensor) *tensor.Tensor
	Name() string
}

func assertSameSize(target, predicted *tensor.Tensor) {
	if target.Rows != predicted.Rows || target.Cols != predicted.Cols {
		panic(fmt.Sprintf("loss: shape mismatch %dx%d vs %dx%d",
			target.Rows, target.Cols, predicted.Rows, predicted.Cols))
	}
}

// SquaredError is L = 0.5 * sum((t - p)^2).
type SquaredError struct{}

func NewSquaredError() *SquaredError {
	return &SquaredError{}
}

func (*SquaredError) Value(target, predicted *tensor.Tensor) float64 {
	assertSameSize(target, predicted)
	sum := 0.0
	for i := range predicted.Data {
		d := target.Data[i] - predicted.Data[i]
		sum += d * d
	}
	return sum / 2.0
}

func (l *SquaredError) Mean(target, predicted *tensor.Tensor) float64 {
	return l.Value(target, predicted) / float64(predicted.Cols)
}

func (*SquaredError) Gradient(target, predicted *tensor.Tensor) *tensor.Tensor {
	assertSameSize(target, predicted)
	dy := tensor.New(predicted.Rows, predicted.Cols)
	for i := range dy.Data {
		dy.Data[i] = -(target.Data[i] - predicted.Data[i])
	}
	return dy
}

func (*SquaredError) Name() string {
	return "SquaredError"
}

// CrossEntropy is L = -sum(t * log(p + 1e-15)). Its gradient is p - t; a
// trailing Softmax layer multiplies it elementwise by y * (1 - y).
type CrossEntropy struct{}

func NewCrossEntropy() *CrossEntropy {
	return &CrossEntropy{}
}

func (*CrossEntropy) Value(target, predicted *tensor.Tensor) float64 {
	assertSameSize(target, predicted)
	const eps = 1e-15
	sum := 0.0
	for i := range predicted.Data {
		sum -= target.Data[i] * math.Log(predicted.Data[i]+eps)
	}
	return sum
}

func (l *CrossEntropy) Mean(target, predicted *tensor.Tensor) float64 {
	return l.Value(target, predicted) / float64(predicted.Cols)
}

func (*CrossEntropy) Gradient(target, predicted *tensor.Tensor) *tensor.Tensor {
	assertSameSize(target, predicted)
	dy := tensor.New(predicted.Rows, predicted.Cols)
	for i := range dy.Data {
		dy.Data[i] = predicted.Data[i] - target.Data[i]
	}
	return dy
}

func (*CrossEntropy) Name() string {
	return "CrossEntropy"
}

// LogLikelihood is L = -sum over batch of log(p at the target class).
//
// The upstream implementation never finished the gradient: it returns zeros,
// so this loss is only usable for reporting, not for training.
type LogLikelihood struct{}

func NewLogLikelihood() *LogLikelihood {
	return &LogLikelihood{}
}

func (*LogLikelihood) Value(target, predicted *tensor.Tensor) float64 {
	assertSameSize(target, predicted)
	classes := target.ColMaxIndex()
	sum := 0.0
	for c, row := range classes {
		sum -= math.Log(predicted.At(row, c))
	}
	return sum
}

func (l *LogLikelihood) Mean(target, predicted *tensor.Tensor) float64 {
	return l.Value(target, predicted) / float64(predicted.Cols)
}

// Gradient returns a zero tensor; see the type comment.
func (*LogLikelihood) Gradient(target, predicted *tensor.Tensor) *tensor.Tensor {
	assertSameSize(target, predicted)
	return tensor.New(predicted.Rows, predicted.Cols)
}

func (*LogLikelihood) Name() string {
	return "LogLikelihood"
}
