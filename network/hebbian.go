package network

import (
	"fmt"

	"github.com/mkowalik/gradnet/tensor"
)

// HebbianNetwork drives a stack of Hebbian layers: training is forward
// followed by update, with no loss and no backward pass. Only the forward
// state buffers are aliased between layers; the gradient buffers stay
// untouched.
type HebbianNetwork struct {
	*Network
}

func NewHebbian(name string) *HebbianNetwork {
	return &HebbianNetwork{Network: New(name)}
}

// Forward runs the stack, aliasing only the state buffers on the first
// call.
func (n *HebbianNetwork) Forward(x *tensor.Tensor, testMode bool) {
	if len(n.layerList) == 0 {
		panic("network: forward on empty network")
	}
	first := n.layerList[0]
	if x.Rows != first.InputSize() {
		panic(fmt.Sprintf("network: input size %d does not match first layer input %d",
			x.Rows, first.InputSize()))
	}

	if !n.connected {
		for i := 0; i+1 < len(n.layerList); i++ {
			n.layerList[i+1].State().Replace("x", n.layerList[i].State().Get("y"))
		}
		n.connected = true
	}
	n.ResizeBatch(x.Cols)
	first.State().Get("x").CopyFrom(x)

	for _, l := range n.layerList {
		l.Forward(testMode)
	}
}

// Train runs forward and update on a batch. There is no loss to report.
func (n *HebbianNetwork) Train(x *tensor.Tensor, lr float64) {
	n.Forward(x, false)
	n.Update(lr, 0)
}

// Test runs a forward pass in test mode.
func (n *HebbianNetwork) Test(x *tensor.Tensor) {
	n.Forward(x, true)
}
