package layers

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mkowalik/gradnet/tensor"
)

func roundTrip(t *testing.T, l Layer) Layer {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, l); err != nil {
		t.Fatal(err)
	}
	restored, err := Read(tensor.NewScanner(&buf))
	if err != nil {
		t.Fatal(err)
	}
	return restored
}

func TestLayerRoundTripPreservesParams(t *testing.T) {
	cases := []Layer{
		NewLinear(6, 4),
		NewSparseLinear(6, 4),
		NewConvolution(5, 5, 2, 3, 3, 1),
		NewMaxPooling(4, 4, 2, 2),
		NewPadding(3, 3, 1, 2),
		NewCropping(5, 5, 1, 1),
		NewDropout(8, 0.75),
		NewReLU(5),
		NewSigmoid(5),
		NewELU(5),
		NewSoftmax(5),
		NewHebbianLinear(6, 3),
		NewBinaryCorrelator(6, 3, 0.4, 0.6),
		NewConvHebbian(5, 5, 1, 4, 3, 1),
	}

	for _, l := range cases {
		t.Run(l.TypeTag(), func(t *testing.T) {
			restored := roundTrip(t, l)

			if restored.TypeTag() != l.TypeTag() {
				t.Errorf("tag %q vs %q", restored.TypeTag(), l.TypeTag())
			}
			if restored.InputSize() != l.InputSize() || restored.OutputSize() != l.OutputSize() {
				t.Errorf("sizes differ: %dx%d vs %dx%d",
					restored.InputSize(), restored.OutputSize(), l.InputSize(), l.OutputSize())
			}
			if restored.DisplayName() != l.DisplayName() {
				t.Errorf("name %q vs %q", restored.DisplayName(), l.DisplayName())
			}
			for _, key := range l.Params().Keys() {
				if !restored.Params().Get(key).Equal(l.Params().Get(key)) {
					t.Errorf("param %q differs after round trip", key)
				}
			}
		})
	}
}

func TestLayerRoundTripPreservesBatchState(t *testing.T) {
	l := NewLinear(3, 2)
	x := tensor.New(3, 5)
	x.Rand(-1, 1)
	Apply(l, x)

	restored := roundTrip(t, l)
	if restored.BatchSize() != 5 {
		t.Errorf("batch = %d, want 5", restored.BatchSize())
	}
	if !restored.State().Get("y").Equal(l.State().Get("y")) {
		t.Error("output state differs after round trip")
	}
}

func TestDropoutRoundTripKeepsRatio(t *testing.T) {
	restored := roundTrip(t, NewDropout(8, 0.75))
	d, ok := restored.(*Dropout)
	if !ok {
		t.Fatalf("restored type %T", restored)
	}
	if d.KeepRatio() != 0.75 {
		t.Errorf("keep ratio = %v, want 0.75", d.KeepRatio())
	}
}

func TestReadUnknownTagFails(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("2\n\"Mystery\"\n")

	_, err := Read(tensor.NewScanner(&buf))
	if !errors.Is(err, ErrUnknownLayerType) {
		t.Errorf("err = %v, want ErrUnknownLayerType", err)
	}
}

func TestReadTruncatedArchiveFails(t *testing.T) {
	l := NewLinear(3, 2)
	var buf bytes.Buffer
	if err := Write(&buf, l); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()/2]

	if _, err := Read(tensor.NewScanner(bytes.NewReader(truncated))); err == nil {
		t.Fatal("expected an error for a truncated archive")
	}
}
