package dataref

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

var _ Ref = &FileWindow{}

// FileWindow is a Ref to the range [begin, begin+length) of a file,
// through a shared FileHandle.
// Offsets passed to its methods are relative to begin.
//
// A FileWindow holds one retain on its handle from construction on.
// It counts its own owners too:
// Retain and Release adjust both counts,
// and releasing a window more often than it was retained
// panics with a *UseAfterReleaseError
// instead of taking a hold that belongs to another owner of the handle.
type FileWindow struct {
	begin, length int64
	h             *FileHandle

	mu sync.Mutex
	rc int64
}

// NewWindow produces a window onto [begin, begin+length) of h,
// retaining h.
// The range is checked against the file on each access,
// not here,
// so a window may be made before its file is grown to cover it.
func NewWindow(h *FileHandle, begin, length int64) (*FileWindow, error) {
	if begin < 0 || length < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "window at %d of length %d", begin, length)
	}
	h.Retain()
	return &FileWindow{begin: begin, length: length, h: h, rc: 1}, nil
}

// Handle is the window's file handle.
func (w *FileWindow) Handle() *FileHandle {
	return w.h
}

// Begin is the absolute offset of the window in its file.
func (w *FileWindow) Begin() int64 {
	return w.begin
}

// RefCount is the number of owners of the window itself.
// It is meant for debugging and tests.
func (w *FileWindow) RefCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rc
}

func (w *FileWindow) live(op string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rc <= 0 {
		panic(&UseAfterReleaseError{Path: w.h.path, Op: op})
	}
}

func (w *FileWindow) region() (*FileHandle, int64, int64) {
	w.live("transfer")
	return w.h, w.begin, w.length
}

func (w *FileWindow) Size() int64 {
	return w.length
}

func (w *FileWindow) At(i int64) (byte, error) {
	w.live("read")
	if err := checkIndex(i, w.length); err != nil {
		return 0, err
	}
	return w.h.At(w.begin + i)
}

func (w *FileWindow) Range(start, end int64) ([]byte, error) {
	w.live("read")
	if err := checkRange(start, end, w.length); err != nil {
		return nil, err
	}
	return w.h.Range(w.begin+start, w.begin+end)
}

func (w *FileWindow) Bytes() ([]byte, error) {
	return w.Range(0, w.length)
}

func (w *FileWindow) Set(i int64, v byte) error {
	w.live("write")
	if err := checkIndex(i, w.length); err != nil {
		return err
	}
	return w.h.Set(w.begin+i, v)
}

func (w *FileWindow) SetRange(start int64, data []byte) error {
	w.live("write")
	if err := checkSpan(start, int64(len(data)), w.length); err != nil {
		return err
	}
	return w.h.SetRange(w.begin+start, data)
}

func (w *FileWindow) SetFrom(start int64, src Ref) error {
	w.live("write")
	if err := checkSpan(start, src.Size(), w.length); err != nil {
		return err
	}
	return w.h.SetFrom(w.begin+start, src)
}

func (w *FileWindow) CopyTo(target Ref, offset int64) error {
	w.live("read")
	return w.h.copyRegion(w.begin, w.length, target, offset)
}

func (w *FileWindow) CopyToBuf(target []byte, offset int) error {
	w.live("read")
	return w.h.copyRegionBuf(w.begin, w.length, target, offset)
}

func (w *FileWindow) WriteTo(out io.Writer) (int64, error) {
	w.live("read")
	return w.h.writeRegion(out, w.begin, w.length)
}

func (w *FileWindow) Sub(begin, length int64) (Ref, error) {
	w.live("sub")
	if err := checkSpan(begin, length, w.length); err != nil {
		return nil, err
	}
	return NewWindow(w.h, w.begin+begin, length)
}

func (w *FileWindow) Split(numChunks int64, chunkSize int) (*Chunks, error) {
	w.live("split")
	return NewChunks(w, numChunks, chunkSize)
}

// Retain adds an owner to the window and to its handle.
func (w *FileWindow) Retain() {
	w.mu.Lock()
	if w.rc <= 0 {
		w.mu.Unlock()
		panic(&UseAfterReleaseError{Path: w.h.path, Op: "retain"})
	}
	w.rc++
	w.mu.Unlock()
	w.h.Retain()
}

// Release drops an owner of the window and its hold on the handle.
func (w *FileWindow) Release() error {
	w.mu.Lock()
	if w.rc <= 0 {
		w.mu.Unlock()
		panic(&UseAfterReleaseError{Path: w.h.path, Op: "release"})
	}
	w.rc--
	w.mu.Unlock()
	return w.h.Release()
}
