package data

import (
	"fmt"

	"github.com/mkowalik/gradnet/tensor"
)

// OneHotEncode turns class labels into a (numClasses, samples) tensor with
// a single 1 per column.
func OneHotEncode(labels []int, numClasses int) *tensor.Tensor {
	out := tensor.New(numClasses, len(labels))
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			panic(fmt.Sprintf("data: label %d outside [0,%d)", label, numClasses))
		}
		out.Set(label, i, 1)
	}
	return out
}

// Batch is one training batch: inputs (inputSize, n) and matching targets
// (labelSize, n).
type Batch struct {
	X *tensor.Tensor
	Y *tensor.Tensor
}

// Batches splits column-aligned inputs and targets into batches of at most
// batchSize columns, in order. The final batch may be smaller.
func Batches(x, y *tensor.Tensor, batchSize int) []Batch {
	if x.Cols != y.Cols {
		panic(fmt.Sprintf("data: %d inputs vs %d targets", x.Cols, y.Cols))
	}
	if batchSize <= 0 {
		panic(fmt.Sprintf("data: invalid batch size %d", batchSize))
	}

	var out []Batch
	for start := 0; start < x.Cols; start += batchSize {
		end := start + batchSize
		if end > x.Cols {
			end = x.Cols
		}
		out = append(out, Batch{
			X: x.Block(0, start, x.Rows, end-start),
			Y: y.Block(0, start, y.Rows, end-start),
		})
	}
	return out
}
