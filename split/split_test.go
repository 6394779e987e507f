package split

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/dataref"
	"github.com/bobg/dataref/testutil"
)

func TestContentEmpty(t *testing.T) {
	chunks, err := Content(dataref.Wrap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunks of nothing, want 0", len(chunks))
	}
}

func TestContentTiles(t *testing.T) {
	data := testutil.Data(256*1024, 1)

	chunks, err := Content(dataref.Wrap(data), Bits(10), MinSize(64))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks of %d bytes, want several", len(chunks), len(data))
	}
	checkTiles(t, chunks, data)
}

func TestContentStable(t *testing.T) {
	data := testutil.Data(128*1024, 2)

	before, err := Content(dataref.Wrap(data), Bits(10), MinSize(64))
	if err != nil {
		t.Fatal(err)
	}

	// Change one byte near the end. Every chunk before it is unaffected.
	edited := append([]byte(nil), data...)
	edited[len(edited)-10] ^= 0xff
	after, err := Content(dataref.Wrap(edited), Bits(10), MinSize(64))
	if err != nil {
		t.Fatal(err)
	}

	n := len(before) - 2
	if n < 1 {
		t.Fatalf("only %d chunks", len(before))
	}
	for i := 0; i < n; i++ {
		if before[i].Offset != after[i].Offset || before[i].Size() != after[i].Size() {
			t.Errorf("chunk %d moved from %d+%d to %d+%d", i, before[i].Offset, before[i].Size(), after[i].Offset, after[i].Size())
		}
	}
}

func TestContentFile(t *testing.T) {
	data := testutil.Data(64*1024, 3)
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	h, err := dataref.Open(path, dataref.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := Content(h, Bits(9), MinSize(64))
	if err != nil {
		t.Fatal(err)
	}
	if rc := h.RefCount(); rc != int64(1+len(chunks)) {
		t.Errorf("refcount is %d, want %d (handle and one per chunk)", rc, 1+len(chunks))
	}
	if err = h.Release(); err != nil {
		t.Fatal(err)
	}
	checkTiles(t, chunks, data)

	if err = Release(chunks); err != nil {
		t.Fatal(err)
	}
	if rc := h.RefCount(); rc != 0 {
		t.Errorf("refcount after releasing every chunk is %d, want 0", rc)
	}
}

func checkTiles(t *testing.T, chunks []Chunk, data []byte) {
	t.Helper()

	var (
		got    []byte
		offset int64
	)
	for i, c := range chunks {
		if c.Offset != offset {
			t.Errorf("chunk %d at offset %d, want %d", i, c.Offset, offset)
		}
		b, err := c.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, b...)
		offset += c.Size()
	}
	testutil.Same(t, "concatenated chunks", got, data)
}
