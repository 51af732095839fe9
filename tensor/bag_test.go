package tensor

import (
	"bytes"
	"testing"
)

func TestBagAddGet(t *testing.T) {
	b := NewBag("state")
	b.Add("x", 3, 2)
	b.Add("y", 4, 2)

	if b.Len() != 2 {
		t.Fatalf("len = %d", b.Len())
	}
	x := b.Get("x")
	if x.Rows != 3 || x.Cols != 2 {
		t.Errorf("x shape %dx%d", x.Rows, x.Cols)
	}
	if !b.Has("y") || b.Has("z") {
		t.Error("Has wrong")
	}
}

func TestBagDuplicateKeyPanics(t *testing.T) {
	b := NewBag("state")
	b.Add("x", 1, 1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate key")
		}
	}()
	b.Add("x", 2, 2)
}

func TestBagMissingKeyPanics(t *testing.T) {
	b := NewBag("state")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on missing key")
		}
	}()
	b.Get("nope")
}

func TestBagKeysPreserveInsertionOrder(t *testing.T) {
	b := NewBag("params")
	names := []string{"W", "b", "W00", "a"}
	for _, n := range names {
		b.Add(n, 1, 1)
	}
	keys := b.Keys()
	for i, n := range names {
		if keys[i] != n {
			t.Fatalf("keys = %v, want %v", keys, names)
		}
	}
}

func TestBagReplaceAliasesHandle(t *testing.T) {
	b1 := NewBag("a")
	b1.Add("y", 2, 1)
	b2 := NewBag("b")
	b2.Add("x", 2, 1)

	b2.Replace("x", b1.Get("y"))
	b1.Get("y").Data[0] = 7
	if b2.Get("x").Data[0] != 7 {
		t.Error("replace did not alias the underlying tensor")
	}
}

func TestBagZeroAll(t *testing.T) {
	b := NewBag("state")
	b.Add("x", 2, 2)
	b.Get("x").SetAll(3)
	b.ZeroAll()
	for _, v := range b.Get("x").Data {
		if v != 0 {
			t.Fatal("zeroall left nonzero values")
		}
	}
}

func TestBagCloneIsDeep(t *testing.T) {
	b := NewBag("state")
	b.Add("x", 2, 1)
	b.Get("x").SetAll(1)

	c := b.Clone()
	c.Get("x").Data[0] = 42
	if b.Get("x").Data[0] != 1 {
		t.Error("clone shares tensors")
	}
}

func TestBagSerializationRoundTrip(t *testing.T) {
	b := NewBag("my state bag")
	b.Add("x", 2, 3)
	b.Add("W", 3, 3)
	b.Get("x").Enumerate()
	b.Get("W").Rand(-1, 1)

	var buf bytes.Buffer
	if err := b.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	c := NewBag("other")
	c.Add("stale", 1, 1)
	if err := c.ReadFrom(NewScanner(&buf)); err != nil {
		t.Fatal(err)
	}

	if c.Name() != "my state bag" {
		t.Errorf("name = %q", c.Name())
	}
	if c.Has("stale") {
		t.Error("deserialization must clear first")
	}
	keys := c.Keys()
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "W" {
		t.Errorf("keys = %v", keys)
	}
	if !c.Get("x").Equal(b.Get("x")) || !c.Get("W").Equal(b.Get("W")) {
		t.Error("tensor contents differ after round trip")
	}
}
