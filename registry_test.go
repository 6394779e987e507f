package dataref_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobg/dataref"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		typ      string
		conf     string
		wantSize int64
		wantErr  bool
	}{
		{name: "mem data", typ: "mem", conf: `{"data": "hello"}`, wantSize: 5},
		{name: "mem size", typ: "mem", conf: `{"size": 16}`, wantSize: 16},
		{name: "mem datasize", typ: "mem", conf: `{"size": "2KB"}`, wantSize: 2048},
		{name: "mem missing", typ: "mem", conf: `{}`, wantErr: true},
		{name: "mem negative", typ: "mem", conf: `{"size": -1}`, wantErr: true},
		{name: "mem bad size string", typ: "mem", conf: `{"size": "lots"}`, wantErr: true},
		{name: "mem bad size type", typ: "mem", conf: `{"size": true}`, wantErr: true},
		{name: "unknown", typ: "s3", conf: `{}`, wantErr: true},
		{name: "file missing path", typ: "file", conf: `{}`, wantErr: true},
		{name: "file bad mode", typ: "file", conf: `{"path": "x", "mode": "w"}`, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var conf map[string]interface{}
			dec := json.NewDecoder(strings.NewReader(c.conf))
			dec.UseNumber()
			if err := dec.Decode(&conf); err != nil {
				t.Fatal(err)
			}
			r, err := dataref.Create(ctx, c.typ, conf)
			if c.wantErr {
				if err == nil {
					t.Error("got no error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer r.Release()
			if r.Size() != c.wantSize {
				t.Errorf("got size %d, want %d", r.Size(), c.wantSize)
			}
		})
	}
}

func TestCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "made")
	conf := map[string]interface{}{
		"path":   path,
		"mode":   "rw",
		"size":   "4KB",
		"begin":  float64(10),
		"length": float64(100),
		"delete": true,
	}
	r, err := dataref.Create(context.Background(), "file", conf)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := r.(*dataref.FileWindow)
	if !ok {
		t.Fatalf("got %T, want *dataref.FileWindow", r)
	}
	if w.Size() != 100 || w.Begin() != 10 {
		t.Errorf("got window at %d of size %d, want 10 and 100", w.Begin(), w.Size())
	}
	if w.Handle().Size() != 4096 {
		t.Errorf("file size is %d, want 4096", w.Handle().Size())
	}
	if rc := w.Handle().RefCount(); rc != 1 {
		t.Errorf("window's handle has refcount %d, want 1", rc)
	}
	if err = w.SetRange(0, []byte("hi")); err != nil {
		t.Fatal(err)
	}

	if err = r.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err = os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file marked for deletion still present (stat error %v)", err)
	}
}

func TestCreateFileOutOfRange(t *testing.T) {
	path := tempFile(t, make([]byte, 10))
	conf := map[string]interface{}{
		"path":   path,
		"begin":  float64(5),
		"length": float64(6),
	}
	if _, err := dataref.Create(context.Background(), "file", conf); err == nil {
		t.Error("got no error for a window past the end of the file")
	}
}
