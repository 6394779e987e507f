package testutil

import (
	"testing"

	"github.com/bobg/dataref"
)

// SplitCover splits r into chunks of chunkSize bytes
// and makes sure the chunks have the right sizes
// and together reproduce r.
// Each chunk is released after it is checked.
func SplitCover(t *testing.T, r dataref.Ref, chunkSize int) {
	t.Helper()

	want, err := r.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	var (
		size    = r.Size()
		n       = dataref.NumChunks(size, int64(chunkSize))
		got     []byte
		count   int64
		lastLen int64
	)

	chunks, err := r.Split(n, chunkSize)
	if err != nil {
		t.Fatal(err)
	}
	if chunks.Remaining() != n {
		t.Errorf("got %d remaining chunks before iterating, want %d", chunks.Remaining(), n)
	}
	for chunks.Next() {
		chunk := chunks.Ref()
		count++
		lastLen = chunk.Size()
		if chunks.Remaining() > 0 && lastLen != int64(chunkSize) {
			t.Errorf("chunk %d has size %d, want %d", count-1, lastLen, chunkSize)
		}
		b, err := chunk.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, b...)
		if err = chunk.Release(); err != nil {
			t.Fatal(err)
		}
	}
	if err = chunks.Err(); err != nil {
		t.Fatal(err)
	}
	if chunks.Next() {
		t.Error("Next succeeded after the end")
	}

	if count != n {
		t.Errorf("got %d chunks, want %d", count, n)
	}
	if n > 0 {
		wantLast := size % int64(chunkSize)
		if wantLast == 0 {
			wantLast = int64(chunkSize)
		}
		if lastLen != wantLast {
			t.Errorf("last chunk has size %d, want %d", lastLen, wantLast)
		}
	}
	Same(t, "concatenated chunks", got, want)
}
