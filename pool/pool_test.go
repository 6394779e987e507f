package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/dataref"
)

func writeFiles(t *testing.T, n int) []string {
	t.Helper()

	dir := t.TempDir()
	var paths []string
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%d", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("file %d", i)), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestReuse(t *testing.T) {
	paths := writeFiles(t, 1)

	p, err := New(4, dataref.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	h1, err := p.Get(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Get(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("two Gets of the same path produced different handles")
	}
	if rc := h1.RefCount(); rc != 3 {
		t.Errorf("refcount is %d, want 3 (pool and two callers)", rc)
	}
	for _, h := range []*dataref.FileHandle{h1, h2} {
		if err = h.Release(); err != nil {
			t.Fatal(err)
		}
	}
	if p.Len() != 1 {
		t.Errorf("pool has %d handles, want 1", p.Len())
	}
}

func TestEviction(t *testing.T) {
	paths := writeFiles(t, 3)

	p, err := New(2, dataref.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	held, err := p.Get(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range paths[1:] {
		h, err := p.Get(path)
		if err != nil {
			t.Fatal(err)
		}
		if err = h.Release(); err != nil {
			t.Fatal(err)
		}
	}

	if p.Len() != 2 {
		t.Fatalf("pool has %d handles, want 2", p.Len())
	}
	// Evicted from the pool, but still held here.
	if rc := held.RefCount(); rc != 1 {
		t.Fatalf("evicted handle has refcount %d, want 1", rc)
	}
	got, err := held.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "file 0" {
		t.Errorf("got %q, want %q", got, "file 0")
	}
	if err = held.Release(); err != nil {
		t.Fatal(err)
	}
	if rc := held.RefCount(); rc != 0 {
		t.Errorf("refcount after last release is %d, want 0", rc)
	}

	again, err := p.Get(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer again.Release()
	if again == held {
		t.Error("got the closed handle back after eviction")
	}
}

func TestWindow(t *testing.T) {
	paths := writeFiles(t, 1)

	p, err := New(1, dataref.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}

	w, err := p.Window(paths[0], 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rc := w.Handle().RefCount(); rc != 2 {
		t.Errorf("refcount is %d, want 2 (pool and window)", rc)
	}

	if err = p.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := w.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if b != '0' {
		t.Errorf("got %c, want 0", b)
	}
	if err = w.Release(); err != nil {
		t.Fatal(err)
	}

	if _, err = p.Get(paths[0]); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: got error %v, want %v", err, ErrClosed)
	}
	if _, err = p.Window(paths[0], -1, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Window after Close: got error %v, want %v", err, ErrClosed)
	}
}

func TestRemove(t *testing.T) {
	paths := writeFiles(t, 1)

	p, err := New(2, dataref.ReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	h, err := p.Get(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	h.MarkForDeletion()
	if err = h.Release(); err != nil {
		t.Fatal(err)
	}
	if !p.Remove(paths[0]) {
		t.Fatal("Remove reported the path absent")
	}
	if _, err = os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Errorf("file still present after removal from the pool (stat error %v)", err)
	}
	if p.Remove(paths[0]) {
		t.Error("second Remove reported the path present")
	}
}

func TestConcurrentGet(t *testing.T) {
	paths := writeFiles(t, 4)

	p, err := New(8, dataref.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		path := paths[i%len(paths)]
		g.Go(func() error {
			h, err := p.Get(path)
			if err != nil {
				return err
			}
			if _, err = h.Bytes(); err != nil {
				return err
			}
			return h.Release()
		})
	}
	if err = g.Wait(); err != nil {
		t.Fatal(err)
	}
	if p.Len() != len(paths) {
		t.Errorf("pool has %d handles, want %d", p.Len(), len(paths))
	}
}
