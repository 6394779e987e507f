package dataref

import "io"

// DefaultChunkSize is a reasonable chunk size for Split
// when nothing better is known about the consumer.
const DefaultChunkSize = 64 << 10

// Ref is a reference to a range of bytes.
// It is implemented by ByteSlice, FileHandle and FileWindow.
//
// All offsets are relative to the start of the ref.
// No method may change the ref's size:
// writes that would run past the end fail with ErrOutOfRange
// and leave the content unchanged.
type Ref interface {
	// Size is the number of bytes in the ref.
	Size() int64

	// At reads the byte at position i.
	At(i int64) (byte, error)

	// Range reads the bytes in [start, end) into a new slice.
	Range(start, end int64) ([]byte, error)

	// Bytes reads the whole ref into a new slice.
	Bytes() ([]byte, error)

	// Set writes v at position i.
	Set(i int64, v byte) error

	// SetRange writes data starting at position start.
	SetRange(start int64, data []byte) error

	// SetFrom writes the content of src starting at position start.
	// If src and the receiver are both file-backed,
	// the bytes are transferred without passing through memory.
	SetFrom(start int64, src Ref) error

	// CopyTo writes the whole ref into target starting at offset.
	// If target and the receiver are both file-backed,
	// the bytes are transferred without passing through memory.
	CopyTo(target Ref, offset int64) error

	// CopyToBuf copies the whole ref into target starting at offset.
	CopyToBuf(target []byte, offset int) error

	// WriteTo streams the whole ref to w.
	WriteTo(w io.Writer) (int64, error)

	// Sub produces a ref to the range [begin, begin+length) of this one.
	// The result shares storage with the receiver
	// and is independently owned:
	// file-backed results hold their own retain on the file handle
	// and must be released by the caller.
	Sub(begin, length int64) (Ref, error)

	// Split produces a lazy sequence of sub-refs covering this ref from its start,
	// each chunkSize bytes long except possibly the last.
	// The value of numChunks must equal NumChunks(Size(), chunkSize).
	// See Chunks.
	Split(numChunks int64, chunkSize int) (*Chunks, error)

	// Retain adds an owner.
	Retain()

	// Release drops an owner.
	// Dropping the last owner of a file-backed ref closes the file.
	Release() error
}

// NumChunks tells how many chunks of chunkSize bytes are needed to cover size bytes.
func NumChunks(size, chunkSize int64) int64 {
	if chunkSize <= 0 {
		return 0
	}
	return (size + chunkSize - 1) / chunkSize
}

type fileBacked interface {
	region() (h *FileHandle, begin, length int64)
}

// Unwrapper is implemented by refs that decorate another ref.
// Zero-copy transfer looks through decorators to find a file-backed ref.
type Unwrapper interface {
	Unwrap() Ref
}

func fileRegion(r Ref) (h *FileHandle, begin, length int64, ok bool) {
	for {
		switch v := r.(type) {
		case fileBacked:
			h, begin, length = v.region()
			return h, begin, length, true

		case Unwrapper:
			r = v.Unwrap()

		default:
			return nil, 0, 0, false
		}
	}
}
