// Package testutil has helpers for testing dataref.Ref implementations.
package testutil

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"

	"github.com/bobg/dataref"
)

// Data produces n pseudo-random bytes determined by seed.
func Data(n int, seed int64) []byte {
	out := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(out)
	return out
}

// ReadWrite writes data over the whole of r,
// then reads it back out every way a Ref allows
// to make sure it's the same.
// The length of data must equal r.Size().
func ReadWrite(t *testing.T, r dataref.Ref, data []byte) {
	t.Helper()

	if int64(len(data)) != r.Size() {
		t.Fatalf("have %d bytes for a ref of size %d", len(data), r.Size())
	}

	if err := r.SetRange(0, data); err != nil {
		t.Fatal(err)
	}

	got, err := r.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	Same(t, "Bytes", got, data)

	if len(data) > 0 {
		mid := int64(len(data) / 2)
		got, err = r.Range(mid, int64(len(data)))
		if err != nil {
			t.Fatal(err)
		}
		Same(t, "Range", got, data[mid:])
	}

	buf := make([]byte, len(data)+3)
	if err = r.CopyToBuf(buf, 3); err != nil {
		t.Fatal(err)
	}
	Same(t, "CopyToBuf", buf[3:], data)

	out := new(bytes.Buffer)
	n, err := r.WriteTo(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(data)) {
		t.Errorf("WriteTo wrote %d bytes, want %d", n, len(data))
	}
	Same(t, "WriteTo", out.Bytes(), data)

	for _, i := range []int64{0, int64(len(data)) / 3, int64(len(data)) - 1} {
		if i < 0 || i >= int64(len(data)) {
			continue
		}
		v := ^data[i]
		if err = r.Set(i, v); err != nil {
			t.Fatal(err)
		}
		b, err := r.At(i)
		if err != nil {
			t.Fatal(err)
		}
		if b != v {
			t.Errorf("after Set(%d, %d), At(%d) = %d", i, v, i, b)
		}
	}
}

// Bounds checks that out-of-range accesses to r fail with dataref.ErrOutOfRange
// and leave its content unchanged.
func Bounds(t *testing.T, r dataref.Ref) {
	t.Helper()

	before, err := r.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	size := r.Size()

	for _, i := range []int64{-1, size, size + 1} {
		if _, err := r.At(i); !errors.Is(err, dataref.ErrOutOfRange) {
			t.Errorf("At(%d) on size %d: got error %v, want out of range", i, size, err)
		}
		if err := r.Set(i, 1); !errors.Is(err, dataref.ErrOutOfRange) {
			t.Errorf("Set(%d) on size %d: got error %v, want out of range", i, size, err)
		}
	}

	ranges := [][2]int64{{-1, 0}, {0, size + 1}, {size, size + 1}}
	if size > 0 {
		ranges = append(ranges, [2]int64{1, 0})
	}
	for _, rg := range ranges {
		if _, err := r.Range(rg[0], rg[1]); !errors.Is(err, dataref.ErrOutOfRange) {
			t.Errorf("Range(%d, %d) on size %d: got error %v, want out of range", rg[0], rg[1], size, err)
		}
	}

	if err := r.SetRange(-1, []byte{1}); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Errorf("SetRange(-1) on size %d: got error %v, want out of range", size, err)
	}
	if err := r.SetRange(size, []byte{1}); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Errorf("SetRange(%d) on size %d: got error %v, want out of range", size, size, err)
	}
	if err := r.SetRange(0, make([]byte, size+1)); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Errorf("SetRange of %d bytes on size %d: got error %v, want out of range", size+1, size, err)
	}
	if err := r.CopyToBuf(make([]byte, size), 1); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Errorf("CopyToBuf at 1 into %d bytes: got error %v, want out of range", size, err)
	}
	if err := r.SetFrom(1, dataref.Wrap(make([]byte, size))); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Errorf("SetFrom(1) of %d bytes on size %d: got error %v, want out of range", size, size, err)
	}
	if _, err := r.Sub(0, size+1); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Errorf("Sub(0, %d) on size %d: got error %v, want out of range", size+1, size, err)
	}

	after, err := r.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	Same(t, "content after failed writes", after, before)
}

// Same reports a mismatch between got and want.
func Same(t *testing.T, what string, got, want []byte) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("%s: got length %d, want %d", what, len(got), len(want))
		return
	}
	for i := 0; i < len(got); i++ {
		if got[i] != want[i] {
			t.Errorf("%s: mismatch at position %d (of %d)", what, i, len(got))
			return
		}
	}
}
