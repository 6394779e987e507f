package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/bobg/dataref"
	"github.com/bobg/dataref/testutil"
)

func TestRef(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	r := New(dataref.Wrap(make([]byte, 100)), log)
	testutil.ReadWrite(t, r, testutil.Data(100, 1))
	testutil.SplitCover(t, r, 32)

	if len(hook.AllEntries()) == 0 {
		t.Fatal("nothing logged")
	}

	hook.Reset()
	if _, err := r.At(100); !errors.Is(err, dataref.ErrOutOfRange) {
		t.Fatalf("got error %v, want out of range", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("failed At logged %v, want an error entry", entry)
	}
	if entry.Data["index"] != int64(100) {
		t.Errorf("logged index %v, want 100", entry.Data["index"])
	}
}

func TestSubIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	r := New(dataref.Wrap([]byte("hello")), log)
	sub, err := r.Sub(1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sub.(*Ref); !ok {
		t.Fatalf("Sub produced %T, want *Ref", sub)
	}
	hook.Reset()
	if _, err = sub.Bytes(); err != nil {
		t.Fatal(err)
	}
	if len(hook.AllEntries()) != 1 {
		t.Errorf("got %d log entries from Bytes on a sub-ref, want 1", len(hook.AllEntries()))
	}
}

func TestZeroCopyThroughLogging(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	if err := os.WriteFile(srcPath, []byte("zero copy"), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := dataref.Open(srcPath, dataref.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Release()
	dst, err := dataref.Open(filepath.Join(dir, "dst"), dataref.ReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err = dst.Truncate(src.Size()); err != nil {
		t.Fatal(err)
	}

	log, _ := test.NewNullLogger()
	ldst := New(dst, log)
	defer ldst.Release()

	if err = New(src, log).CopyTo(ldst, 0); err != nil {
		t.Fatal(err)
	}
	got, err := ldst.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	testutil.Same(t, "copied through logging refs", got, []byte("zero copy"))
}

func TestRegistry(t *testing.T) {
	conf := map[string]interface{}{
		"nested": map[string]interface{}{
			"type": "mem",
			"data": "nested",
		},
	}
	r, err := dataref.Create(context.Background(), "logging", conf)
	if err != nil {
		t.Fatal(err)
	}
	lr, ok := r.(*Ref)
	if !ok {
		t.Fatalf("got %T, want *Ref", r)
	}
	if _, ok = lr.Unwrap().(*dataref.ByteSlice); !ok {
		t.Errorf("nested ref is %T, want *dataref.ByteSlice", lr.Unwrap())
	}

	if _, err = dataref.Create(context.Background(), "logging", map[string]interface{}{}); err == nil {
		t.Error("got no error for a missing nested ref")
	}
}
