package network

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mkowalik/gradnet/layers"
	"github.com/mkowalik/gradnet/optimize"
	"github.com/mkowalik/gradnet/tensor"
)

const networkVersion = 2

// Network is an ordered list of layers driven as one feed-forward model.
//
// On the first forward pass (and after any structural change) consecutive
// layers are connected: layer[i+1]'s input state handle is aliased to
// layer[i]'s output state, and layer[i]'s output gradient handle to
// layer[i+1]'s input gradient, so no data is copied between layers.
type Network struct {
	name      string
	layerList []layers.Layer
	connected bool
}

func New(name string) *Network {
	return &Network{name: name}
}

func (n *Network) Name() string {
	return n.name
}

// PushLayer appends a layer and invalidates the inter-layer aliasing.
func (n *Network) PushLayer(l layers.Layer) {
	n.layerList = append(n.layerList, l)
	n.connected = false
}

// PopLayers removes the last count layers.
func (n *Network) PopLayers(count int) {
	if count > len(n.layerList) {
		panic(fmt.Sprintf("network: cannot pop %d of %d layers", count, len(n.layerList)))
	}
	n.layerList = n.layerList[:len(n.layerList)-count]
	n.connected = false
}

// Layer returns the shared handle to the i-th layer.
func (n *Network) Layer(i int) layers.Layer {
	if i < 0 || i >= len(n.layerList) {
		panic(fmt.Sprintf("network: layer index %d out of range [0,%d)", i, len(n.layerList)))
	}
	return n.layerList[i]
}

// Size returns the number of layers.
func (n *Network) Size() int {
	return len(n.layerList)
}

// InstallOptimizer installs a fresh optimizer of the given kind on every
// parameter of every layer.
func (n *Network) InstallOptimizer(f optimize.Factory) {
	for _, l := range n.layerList {
		l.InstallOptimizer(f)
	}
}

// InstallRule installs a fresh Hebbian learning rule on every layer that
// learns through one.
func (n *Network) InstallRule(f optimize.RuleFactory) {
	for _, l := range n.layerList {
		if h, ok := l.(layers.HebbianLayer); ok {
			h.InstallRule(f)
		}
	}
}

// ResizeBatch propagates a batch-size change to every layer. It is a no-op
// when the first layer already holds the requested batch.
func (n *Network) ResizeBatch(batchSize int) {
	if len(n.layerList) == 0 {
		return
	}
	if n.layerList[0].State().Get("x").Cols == batchSize {
		return
	}
	for _, l := range n.layerList {
		l.ResizeBatch(batchSize)
	}
}

func (n *Network) connect() {
	if n.connected {
		return
	}
	for i := 0; i+1 < len(n.layerList); i++ {
		cur, next := n.layerList[i], n.layerList[i+1]
		next.State().Replace("x", cur.State().Get("y"))
		cur.Grad().Replace("y", next.Grad().Get("x"))
	}
	n.connected = true
}

// Forward runs the whole stack on the input batch (inputSize, batch),
// establishing the inter-layer aliasing first if needed.
func (n *Network) Forward(x *tensor.Tensor, testMode bool) {
	if len(n.layerList) == 0 {
		panic("network: forward on empty network")
	}
	first := n.layerList[0]
	if x.Rows != first.InputSize() {
		panic(fmt.Sprintf("network: input size %d does not match first layer input %d",
			x.Rows, first.InputSize()))
	}

	n.connect()
	n.ResizeBatch(x.Cols)
	first.State().Get("x").CopyFrom(x)

	for _, l := range n.layerList {
		l.Forward(testMode)
	}
}

// Backward propagates the output gradient down the stack in reverse order,
// resetting each layer's parameter gradients first.
func (n *Network) Backward(dy *tensor.Tensor) {
	if len(n.layerList) == 0 {
		panic("network: backward on empty network")
	}
	last := n.layerList[len(n.layerList)-1]
	last.Grad().Get("y").CopyFrom(dy)

	for i := len(n.layerList) - 1; i >= 0; i-- {
		n.layerList[i].ResetGrads()
		n.layerList[i].Backward()
	}
}

// Update applies one optimizer step to every layer. The gradients are sums
// over the batch, so the effective rate is lr divided by the batch size.
func (n *Network) Update(lr, decay float64) {
	if len(n.layerList) == 0 {
		return
	}
	lrBatch := lr / float64(n.layerList[0].BatchSize())
	for _, l := range n.layerList {
		l.Update(lrBatch, decay)
	}
}

// Predictions returns the handle to the last layer's output activations.
func (n *Network) Predictions() *tensor.Tensor {
	if len(n.layerList) == 0 {
		panic("network: predictions of empty network")
	}
	return n.layerList[len(n.layerList)-1].State().Get("y")
}

// CountCorrectPredictions compares per-column argmax of one-hot targets and
// predictions and returns the number of matches.
func (n *Network) CountCorrectPredictions(targets, predictions *tensor.Tensor) int {
	t := targets.ColMaxIndex()
	p := predictions.ColMaxIndex()
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return correct
}

// Save writes the network to a versioned text archive.
func (n *Network) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save network %s: %w", n.name, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := n.WriteTo(w); err != nil {
		return fmt.Errorf("save network %s: %w", n.name, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("save network %s: %w", n.name, err)
	}
	return nil
}

// WriteTo serializes the network: version, name, layer count, then each
// layer prefixed with its type tag.
func (n *Network) WriteTo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d\n", networkVersion); err != nil {
		return err
	}
	if err := tensor.WriteString(w, n.name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d\n", len(n.layerList)); err != nil {
		return err
	}
	for _, l := range n.layerList {
		if err := layers.Write(w, l); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the network contents from an archive. On any failure the
// layer list is left cleared.
func (n *Network) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		n.layerList = nil
		n.connected = false
		return fmt.Errorf("load network: %w", err)
	}
	defer f.Close()

	if err := n.ReadFrom(tensor.NewScanner(bufio.NewReader(f))); err != nil {
		return fmt.Errorf("load network: %w", err)
	}
	return nil
}

// ReadFrom deserializes a network written by WriteTo. The layer list is
// cleared before reading so a failed load never leaves stale layers behind.
func (n *Network) ReadFrom(s *tensor.Scanner) error {
	n.layerList = nil
	n.connected = false

	version, err := s.Int()
	if err != nil {
		return fmt.Errorf("network header: %w", err)
	}
	if version != networkVersion {
		return fmt.Errorf("unsupported network version %d", version)
	}
	name, err := s.String()
	if err != nil {
		return fmt.Errorf("network name: %w", err)
	}
	count, err := s.Int()
	if err != nil {
		return fmt.Errorf("network layer count: %w", err)
	}

	n.name = name
	for i := 0; i < count; i++ {
		l, err := layers.Read(s)
		if err != nil {
			n.layerList = nil
			return fmt.Errorf("layer %d: %w", i, err)
		}
		n.layerList = append(n.layerList, l)
	}
	return nil
}

func (n *Network) String() string {
	out := fmt.Sprintf("[%s]:\n", n.name)
	for _, l := range n.layerList {
		out += fmt.Sprintf("  [%s]: %s: %dx%d -> %dx%d\n",
			l.TypeTag(), l.DisplayName(), l.InputSize(), l.BatchSize(), l.OutputSize(), l.BatchSize())
	}
	return out
}
