package dataref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	if err := os.WriteFile(srcPath, make([]byte, 5000), 0644); err != nil {
		t.Fatal(err)
	}

	var (
		opened      = testutil.ToFloat64(handlesOpened)
		closed      = testutil.ToFloat64(handlesClosed)
		deleted     = testutil.ToFloat64(filesDeleted)
		transferred = testutil.ToFloat64(bytesTransferred.WithLabelValues(methodCopyFileRange)) +
			testutil.ToFloat64(bytesTransferred.WithLabelValues(methodBuffered))
	)

	src, err := Open(srcPath, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := Open(filepath.Join(dir, "dst"), ReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	if err = dst.Truncate(5000); err != nil {
		t.Fatal(err)
	}
	if err = src.CopyTo(dst, 0); err != nil {
		t.Fatal(err)
	}
	dst.MarkForDeletion()
	if err = src.Release(); err != nil {
		t.Fatal(err)
	}
	if err = dst.Release(); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(handlesOpened) - opened; got != 2 {
		t.Errorf("opened %v handles, want 2", got)
	}
	if got := testutil.ToFloat64(handlesClosed) - closed; got != 2 {
		t.Errorf("closed %v handles, want 2", got)
	}
	if got := testutil.ToFloat64(filesDeleted) - deleted; got != 1 {
		t.Errorf("deleted %v files, want 1", got)
	}
	got := testutil.ToFloat64(bytesTransferred.WithLabelValues(methodCopyFileRange)) +
		testutil.ToFloat64(bytesTransferred.WithLabelValues(methodBuffered)) - transferred
	if got != 5000 {
		t.Errorf("transferred %v bytes, want 5000", got)
	}
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterMetrics(reg); err != nil {
		t.Fatal(err)
	}
	if err := RegisterMetrics(reg); err != nil {
		t.Errorf("registering twice: %v", err)
	}
}
