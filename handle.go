package dataref

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ Ref = &FileHandle{}

// DefaultRetryLimit is the number of consecutive transfers
// that may make no progress
// before a copy gives up with ErrShortTransfer.
const DefaultRetryLimit = 16

// Mode tells how Open opens a file.
type Mode int

const (
	// ReadOnly opens an existing file for reading.
	ReadOnly Mode = iota

	// ReadWrite opens a file for reading and writing,
	// creating it (empty) if it does not exist.
	ReadWrite
)

func (m Mode) flag() int {
	if m == ReadWrite {
		return os.O_RDWR | os.O_CREATE
	}
	return os.O_RDONLY
}

func (m Mode) String() string {
	if m == ReadWrite {
		return "rw"
	}
	return "r"
}

// ParseMode parses "r" or "rw".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "":
		return ReadOnly, nil
	case "rw":
		return ReadWrite, nil
	}
	return 0, errors.Errorf("unknown mode %q", s)
}

// Option configures a FileHandle.
type Option func(*FileHandle)

// RetryLimit sets how many consecutive zero-progress transfers
// a copy from the handle tolerates.
// Values below 1 mean 1.
func RetryLimit(n int) Option {
	return func(h *FileHandle) {
		if n < 1 {
			n = 1
		}
		h.retryLimit = n
	}
}

// Logger sets the logger for the handle's lifecycle events.
func Logger(l logrus.FieldLogger) Option {
	return func(h *FileHandle) {
		h.log = l
	}
}

// FileHandle is a reference-counted open file,
// and a Ref to the whole of it.
//
// A new FileHandle has one owner.
// Retain adds an owner and Release drops one.
// When the last owner releases it,
// the file is closed,
// and removed if MarkForDeletion was called.
//
// Bounds are checked against the file size as the handle knows it:
// the size at open time,
// as changed by Truncate
// or refreshed with Refresh.
type FileHandle struct {
	path       string
	f          *os.File
	info       os.FileInfo
	size       atomic.Int64
	retryLimit int
	log        logrus.FieldLogger

	mu     sync.Mutex
	rc     int64
	delete bool
}

// Open opens the file at path.
func Open(path string, mode Mode, opts ...Option) (*FileHandle, error) {
	f, err := os.OpenFile(path, mode.flag(), 0644)
	if err != nil {
		return nil, ioErr(err, "opening %s", path)
	}
	h, err := newHandle(path, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return h, nil
}

// FromFile produces a FileHandle that takes ownership of an already open file.
// The file is closed when the handle's last owner releases it.
func FromFile(f *os.File, opts ...Option) (*FileHandle, error) {
	return newHandle(f.Name(), f, opts)
}

func newHandle(path string, f *os.File, opts []Option) (*FileHandle, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, ioErr(err, "statting %s", path)
	}
	h := &FileHandle{
		path:       path,
		f:          f,
		info:       info,
		retryLimit: DefaultRetryLimit,
		log:        logrus.StandardLogger(),
		rc:         1,
	}
	h.size.Store(info.Size())
	for _, opt := range opts {
		opt(h)
	}

	handlesOpened.Inc()
	openHandles.Inc()
	h.log.WithFields(logrus.Fields{"path": path, "size": info.Size()}).Debug("file handle opened")

	return h, nil
}

// Path is the path the handle was opened with.
func (h *FileHandle) Path() string {
	return h.path
}

// File is the underlying open file.
// It must not be closed by the caller.
func (h *FileHandle) File() *os.File {
	return h.f
}

// RefCount is the number of owners.
// It is meant for debugging and tests.
func (h *FileHandle) RefCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rc
}

// MarkForDeletion arranges for the file to be removed
// when the last owner releases the handle.
// Nothing is removed before then,
// so other windows onto the file keep working.
func (h *FileHandle) MarkForDeletion() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delete = true
}

// PendingDelete tells whether MarkForDeletion has been called.
func (h *FileHandle) PendingDelete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.delete
}

// Retain adds an owner.
// It panics with a *UseAfterReleaseError if the handle is already closed.
func (h *FileHandle) Retain() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rc <= 0 {
		panic(&UseAfterReleaseError{Path: h.path, Op: "retain"})
	}
	h.rc++
}

// Release drops an owner.
// Dropping the last one closes the file
// (and removes it, if it is marked for deletion),
// returning any error from doing so.
// Releasing a handle that is already closed
// panics with a *UseAfterReleaseError.
func (h *FileHandle) Release() error {
	h.mu.Lock()
	if h.rc <= 0 {
		h.mu.Unlock()
		panic(&UseAfterReleaseError{Path: h.path, Op: "release"})
	}
	h.rc--
	if h.rc > 0 {
		h.mu.Unlock()
		return nil
	}
	del := h.delete
	h.mu.Unlock()

	return h.close(del)
}

func (h *FileHandle) close(del bool) error {
	log := h.log.WithField("path", h.path)

	err := ioErr(h.f.Close(), "closing %s", h.path)
	handlesClosed.Inc()
	openHandles.Dec()
	log.Debug("file handle closed")

	if del {
		switch rmErr := os.Remove(h.path); {
		case rmErr == nil:
			filesDeleted.Inc()
			log.Debug("file deleted")
		case os.IsNotExist(rmErr):
			// already gone
		case err == nil:
			err = ioErr(rmErr, "removing %s", h.path)
		}
	}

	return err
}

// live panics unless the handle has an owner.
func (h *FileHandle) live(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rc <= 0 {
		panic(&UseAfterReleaseError{Path: h.path, Op: op})
	}
}

// Size is the length of the file as known to the handle.
// It is not re-read on each access:
// after the file is shortened by someone else,
// reads inside the old extent fail with ErrIO, not ErrOutOfRange,
// until Refresh is called.
func (h *FileHandle) Size() int64 {
	return h.size.Load()
}

// Truncate changes the size of the file.
// It is the only way for a handle to grow its file.
func (h *FileHandle) Truncate(size int64) error {
	h.live("truncate")
	if size < 0 {
		return errors.Wrapf(ErrOutOfRange, "negative size %d", size)
	}
	if err := h.f.Truncate(size); err != nil {
		return ioErr(err, "truncating %s to %d", h.path, size)
	}
	h.size.Store(size)
	return nil
}

// Refresh re-reads the file size from the file system,
// picking up changes made outside the handle.
func (h *FileHandle) Refresh() error {
	h.live("refresh")
	info, err := h.f.Stat()
	if err != nil {
		return ioErr(err, "statting %s", h.path)
	}
	h.size.Store(info.Size())
	return nil
}

// ReadAt reads len(p) bytes at off.
// Unlike os.File.ReadAt it fails with ErrOutOfRange
// instead of reading short at the end of the file.
func (h *FileHandle) ReadAt(p []byte, off int64) (int, error) {
	h.live("read")
	if err := checkSpan(off, int64(len(p)), h.Size()); err != nil {
		return 0, err
	}
	return h.readAt(p, off)
}

// WriteAt writes p at off.
// It fails with ErrOutOfRange rather than extend the file.
func (h *FileHandle) WriteAt(p []byte, off int64) (int, error) {
	h.live("write")
	if err := checkSpan(off, int64(len(p)), h.Size()); err != nil {
		return 0, err
	}
	return h.writeAt(p, off)
}

func (h *FileHandle) readAt(p []byte, off int64) (int, error) {
	n, err := h.f.ReadAt(p, off)
	if err == io.EOF && n == len(p) {
		err = nil
	}
	if err == nil && n < len(p) {
		err = io.ErrUnexpectedEOF
	}
	return n, ioErr(err, "reading %d bytes of %s at %d", len(p), h.path, off)
}

func (h *FileHandle) writeAt(p []byte, off int64) (int, error) {
	n, err := h.f.WriteAt(p, off)
	return n, ioErr(err, "writing %d bytes to %s at %d", len(p), h.path, off)
}

func (h *FileHandle) region() (*FileHandle, int64, int64) {
	return h, 0, h.Size()
}

func (h *FileHandle) At(i int64) (byte, error) {
	h.live("read")
	if err := checkIndex(i, h.Size()); err != nil {
		return 0, err
	}
	var b [1]byte
	_, err := h.readAt(b[:], i)
	return b[0], err
}

func (h *FileHandle) Range(start, end int64) ([]byte, error) {
	h.live("read")
	if err := checkRange(start, end, h.Size()); err != nil {
		return nil, err
	}
	out := make([]byte, end-start)
	if _, err := h.readAt(out, start); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *FileHandle) Bytes() ([]byte, error) {
	return h.Range(0, h.Size())
}

func (h *FileHandle) Set(i int64, v byte) error {
	h.live("write")
	if err := checkIndex(i, h.Size()); err != nil {
		return err
	}
	_, err := h.writeAt([]byte{v}, i)
	return err
}

func (h *FileHandle) SetRange(start int64, data []byte) error {
	_, err := h.WriteAt(data, start)
	return err
}

func (h *FileHandle) SetFrom(start int64, src Ref) error {
	h.live("write")
	n := src.Size()
	if err := checkSpan(start, n, h.Size()); err != nil {
		return err
	}
	if sh, sbegin, _, ok := fileRegion(src); ok {
		return copyFile(sh, sbegin, n, h, start)
	}
	_, err := src.WriteTo(io.NewOffsetWriter(h.f, start))
	return ioErr(err, "writing %d bytes to %s at %d", n, h.path, start)
}

func (h *FileHandle) CopyTo(target Ref, offset int64) error {
	return h.copyRegion(0, h.Size(), target, offset)
}

func (h *FileHandle) CopyToBuf(target []byte, offset int) error {
	return h.copyRegionBuf(0, h.Size(), target, offset)
}

func (h *FileHandle) WriteTo(w io.Writer) (int64, error) {
	return h.writeRegion(w, 0, h.Size())
}

func (h *FileHandle) Sub(begin, length int64) (Ref, error) {
	h.live("sub")
	if err := checkSpan(begin, length, h.Size()); err != nil {
		return nil, err
	}
	return NewWindow(h, begin, length)
}

func (h *FileHandle) Split(numChunks int64, chunkSize int) (*Chunks, error) {
	return NewChunks(h, numChunks, chunkSize)
}

// TransferTo moves up to n bytes at srcOff in h
// to dstOff in dst
// with a single operating-system transfer,
// without staging them in memory where the platform allows.
// It returns the number of bytes moved,
// which may be less than n.
// Callers wanting all n bytes must call again for the rest.
func (h *FileHandle) TransferTo(srcOff, n int64, dst *FileHandle, dstOff int64) (int64, error) {
	h.live("transfer")
	dst.live("transfer")
	if err := checkSpan(srcOff, n, h.Size()); err != nil {
		return 0, errors.Wrap(err, "transfer source")
	}
	if err := checkSpan(dstOff, n, dst.Size()); err != nil {
		return 0, errors.Wrap(err, "transfer destination")
	}
	if n == 0 {
		return 0, nil
	}
	m, method, err := transfer(h.f, srcOff, dst.f, dstOff, n)
	if m > 0 {
		bytesTransferred.WithLabelValues(method).Add(float64(m))
	}
	if err != nil {
		return m, ioErr(err, "transferring %d bytes from %s at %d to %s at %d", n, h.path, srcOff, dst.path, dstOff)
	}
	return m, nil
}

// copyRegion copies [begin, begin+length) of h into target at offset.
func (h *FileHandle) copyRegion(begin, length int64, target Ref, offset int64) error {
	h.live("read")
	if err := checkSpan(begin, length, h.Size()); err != nil {
		return err
	}
	if th, tbegin, tlength, ok := fileRegion(target); ok {
		if err := checkSpan(offset, length, tlength); err != nil {
			return err
		}
		return copyFile(h, begin, length, th, tbegin+offset)
	}
	if err := checkSpan(offset, length, target.Size()); err != nil {
		return err
	}
	if bs, ok := target.(*ByteSlice); ok {
		_, err := h.readAt(bs.view()[offset:offset+length], begin)
		return err
	}
	buf := make([]byte, length)
	if _, err := h.readAt(buf, begin); err != nil {
		return err
	}
	return target.SetRange(offset, buf)
}

func (h *FileHandle) copyRegionBuf(begin, length int64, target []byte, offset int) error {
	h.live("read")
	if err := checkSpan(begin, length, h.Size()); err != nil {
		return err
	}
	if err := checkSpan(int64(offset), length, int64(len(target))); err != nil {
		return err
	}
	_, err := h.readAt(target[offset:int64(offset)+length], begin)
	return err
}

// writeRegion streams [begin, begin+length) of h to w.
// A pass that ends early is not an error:
// the next pass resumes where it stopped.
// Only retryLimit consecutive passes without progress fail.
func (h *FileHandle) writeRegion(w io.Writer, begin, length int64) (int64, error) {
	h.live("read")
	if err := checkSpan(begin, length, h.Size()); err != nil {
		return 0, err
	}

	var (
		written int64
		stalls  int
	)
	for written < length {
		n, err := io.Copy(w, io.NewSectionReader(h.f, begin+written, length-written))
		written += n
		if err != nil {
			return written, ioErr(err, "streaming %s at %d", h.path, begin+written)
		}
		if written < length {
			shortTransfers.Inc()
		}
		if n > 0 {
			stalls = 0
			continue
		}
		stalls++
		if stalls >= h.retryLimit {
			return written, ioErr(ErrShortTransfer, "streaming %s: %d of %d bytes after %d attempts", h.path, written, length, stalls)
		}
	}
	return written, nil
}
