package layers

import (
	"errors"
	"fmt"
	"io"

	"github.com/mkowalik/gradnet/tensor"
)

const layerVersion = 2

// ErrUnknownLayerType is wrapped by Read when an archive carries a layer
// type tag outside the recognized set.
var ErrUnknownLayerType = errors.New("unknown layer type")

type nameSettable interface {
	setDisplayName(name string)
}

func (b *base) setDisplayName(name string) {
	b.name = name
}

// Write serializes one layer: version, type tag, the construction scalars
// the tag dispatch needs, the batch size, the display name and the four
// bags.
func Write(w io.Writer, l Layer) error {
	if _, err := fmt.Fprintf(w, "%d\n", layerVersion); err != nil {
		return err
	}
	if err := tensor.WriteString(w, l.TypeTag()); err != nil {
		return err
	}
	if err := writeConfig(w, l); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d\n", l.BatchSize()); err != nil {
		return err
	}
	if err := tensor.WriteString(w, l.DisplayName()); err != nil {
		return err
	}
	for _, bag := range []*tensor.Bag{l.State(), l.Grad(), l.Params(), l.Memory()} {
		if err := bag.WriteTo(w); err != nil {
			return fmt.Errorf("layer %s: %w", l.DisplayName(), err)
		}
	}
	return nil
}

func writeConfig(w io.Writer, l Layer) error {
	d := l.Dims()
	switch t := l.(type) {
	case *Linear:
		_, err := fmt.Fprintf(w, "%d %d\n", l.InputSize(), l.OutputSize())
		return err
	case *ReLU, *Sigmoid, *ELU, *Softmax:
		_, err := fmt.Fprintf(w, "%d\n", l.InputSize())
		return err
	case *Convolution:
		_, err := fmt.Fprintf(w, "%d %d %d %d %d %d\n",
			d.InputHeight, d.InputWidth, d.InputDepth, t.filters, t.kernelSize, t.stride)
		return err
	case *MaxPooling:
		_, err := fmt.Fprintf(w, "%d %d %d %d\n", d.InputHeight, d.InputWidth, d.InputDepth, t.windowSize)
		return err
	case *Padding:
		_, err := fmt.Fprintf(w, "%d %d %d %d\n", d.InputHeight, d.InputWidth, d.InputDepth, t.padding)
		return err
	case *Cropping:
		_, err := fmt.Fprintf(w, "%d %d %d %d\n", d.InputHeight, d.InputWidth, d.InputDepth, t.cropping)
		return err
	case *Dropout:
		_, err := fmt.Fprintf(w, "%d %v\n", l.InputSize(), t.keepRatio)
		return err
	case *HebbianLinear:
		_, err := fmt.Fprintf(w, "%d %d\n", l.InputSize(), l.OutputSize())
		return err
	case *BinaryCorrelator:
		_, err := fmt.Fprintf(w, "%d %d %v %v\n",
			l.InputSize(), l.OutputSize(), t.permanenceThreshold, t.proximalThreshold)
		return err
	case *ConvHebbian:
		_, err := fmt.Fprintf(w, "%d %d %d %d %d %d\n",
			d.InputHeight, d.InputWidth, d.InputDepth, t.filters, t.filterSize, t.stride)
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnknownLayerType, l)
	}
}

// Read reconstructs a layer written by Write: the type tag selects the
// constructor, then the archived bags replace the freshly initialized state.
func Read(s *tensor.Scanner) (Layer, error) {
	version, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("layer header: %w", err)
	}
	if version != layerVersion {
		return nil, fmt.Errorf("unsupported layer version %d", version)
	}
	tag, err := s.String()
	if err != nil {
		return nil, fmt.Errorf("layer type tag: %w", err)
	}

	l, err := construct(tag, s)
	if err != nil {
		return nil, err
	}

	batchSize, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("layer batch size: %w", err)
	}
	name, err := s.String()
	if err != nil {
		return nil, fmt.Errorf("layer name: %w", err)
	}
	l.ResizeBatch(batchSize)
	l.(nameSettable).setDisplayName(name)

	for _, bag := range []*tensor.Bag{l.State(), l.Grad(), l.Params(), l.Memory()} {
		if err := bag.ReadFrom(s); err != nil {
			return nil, fmt.Errorf("layer %s: %w", tag, err)
		}
	}
	return l, nil
}

func construct(tag string, s *tensor.Scanner) (Layer, error) {
	ints := func(n int) ([]int, error) {
		out := make([]int, n)
		for i := range out {
			v, err := s.Int()
			if err != nil {
				return nil, fmt.Errorf("layer %s config: %w", tag, err)
			}
			out[i] = v
		}
		return out, nil
	}

	switch tag {
	case "Linear", "SparseLinear":
		c, err := ints(2)
		if err != nil {
			return nil, err
		}
		if tag == "SparseLinear" {
			return NewSparseLinear(c[0], c[1]), nil
		}
		return NewLinear(c[0], c[1]), nil
	case "ReLU":
		c, err := ints(1)
		if err != nil {
			return nil, err
		}
		return NewReLU(c[0]), nil
	case "Sigmoid":
		c, err := ints(1)
		if err != nil {
			return nil, err
		}
		return NewSigmoid(c[0]), nil
	case "ELU":
		c, err := ints(1)
		if err != nil {
			return nil, err
		}
		return NewELU(c[0]), nil
	case "Softmax":
		c, err := ints(1)
		if err != nil {
			return nil, err
		}
		return NewSoftmax(c[0]), nil
	case "Convolution":
		c, err := ints(6)
		if err != nil {
			return nil, err
		}
		return NewConvolution(c[0], c[1], c[2], c[3], c[4], c[5]), nil
	case "MaxPooling":
		c, err := ints(4)
		if err != nil {
			return nil, err
		}
		return NewMaxPooling(c[0], c[1], c[2], c[3]), nil
	case "Padding":
		c, err := ints(4)
		if err != nil {
			return nil, err
		}
		return NewPadding(c[0], c[1], c[2], c[3]), nil
	case "Cropping":
		c, err := ints(4)
		if err != nil {
			return nil, err
		}
		return NewCropping(c[0], c[1], c[2], c[3]), nil
	case "Dropout":
		c, err := ints(1)
		if err != nil {
			return nil, err
		}
		ratio, err := s.Float()
		if err != nil {
			return nil, fmt.Errorf("layer %s config: %w", tag, err)
		}
		return NewDropout(c[0], ratio), nil
	case "HebbianLinear":
		c, err := ints(2)
		if err != nil {
			return nil, err
		}
		return NewHebbianLinear(c[0], c[1]), nil
	case "BinaryCorrelator":
		c, err := ints(2)
		if err != nil {
			return nil, err
		}
		perm, err := s.Float()
		if err != nil {
			return nil, fmt.Errorf("layer %s config: %w", tag, err)
		}
		prox, err := s.Float()
		if err != nil {
			return nil, fmt.Errorf("layer %s config: %w", tag, err)
		}
		return NewBinaryCorrelator(c[0], c[1], perm, prox), nil
	case "ConvHebbian":
		c, err := ints(6)
		if err != nil {
			return nil, err
		}
		return NewConvHebbian(c[0], c[1], c[2], c[3], c[4], c[5]), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayerType, tag)
	}
}
