package optimize

import (
	"fmt"

	"github.com/mkowalik/gradnet/tensor"
)

// Optimizer computes a parameter update from a gradient. One instance is
// attached per named parameter; it owns any per-parameter state (moments,
// accumulators) sized at construction.
type Optimizer interface {
	// ComputeUpdate returns the delta to subtract from the parameter.
	// The returned tensor is owned by the optimizer and valid until the
	// next call.
	ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor
	Name() string
}

// Factory builds a fresh optimizer for a parameter of the given shape.
// Installing a strategy on a layer replaces every parameter's optimizer with
// a new instance, discarding accumulated state.
type Factory func(rows, cols int) Optimizer

// ApplyUpdate runs one optimizer step on a parameter:
// p := (1 - decay) * p - delta.
func ApplyUpdate(opt Optimizer, p, grad *tensor.Tensor, lr, decay float64) {
	delta := opt.ComputeUpdate(p, grad, lr)
	for i := range p.Data {
		p.Data[i] = (1-decay)*p.Data[i] - delta.Data[i]
	}
}

func assertSameSize(a, b *tensor.Tensor, op string) {
	if a.Size() != b.Size() {
		panic(fmt.Sprintf("optimize: %s size mismatch %d vs %d", op, a.Size(), b.Size()))
	}
}
