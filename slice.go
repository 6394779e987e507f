package dataref

import (
	"bytes"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

var _ Ref = &ByteSlice{}

// ByteSlice is a Ref to the range [begin, begin+length) of a byte slice in memory.
// It never copies the backing slice:
// writes through a ByteSlice are visible in the backing slice and vice versa.
//
// Two ByteSlices are equal when their contents are,
// regardless of backing slice or offset.
//
// Retain and Release are no-ops.
type ByteSlice struct {
	begin, length int
	backing       []byte
}

// Wrap produces a ByteSlice covering all of b.
func Wrap(b []byte) *ByteSlice {
	return &ByteSlice{length: len(b), backing: b}
}

// NewByteSlice produces a ByteSlice covering [begin, begin+length) of b.
func NewByteSlice(b []byte, begin, length int) (*ByteSlice, error) {
	if err := checkSpan(int64(begin), int64(length), int64(len(b))); err != nil {
		return nil, err
	}
	return &ByteSlice{begin: begin, length: length, backing: b}, nil
}

// Slice produces a ByteSlice covering [begin, begin+length) of s,
// sharing its backing slice.
func (s *ByteSlice) Slice(begin, length int) (*ByteSlice, error) {
	if err := checkSpan(int64(begin), int64(length), int64(s.length)); err != nil {
		return nil, err
	}
	return &ByteSlice{begin: s.begin + begin, length: length, backing: s.backing}, nil
}

// Backing returns the whole backing slice (not a copy).
func (s *ByteSlice) Backing() []byte {
	return s.backing
}

// Begin is the offset of s in its backing slice.
func (s *ByteSlice) Begin() int {
	return s.begin
}

func (s *ByteSlice) view() []byte {
	return s.backing[s.begin : s.begin+s.length]
}

func (s *ByteSlice) Size() int64 {
	return int64(s.length)
}

func (s *ByteSlice) At(i int64) (byte, error) {
	if err := checkIndex(i, int64(s.length)); err != nil {
		return 0, err
	}
	return s.backing[s.begin+int(i)], nil
}

func (s *ByteSlice) Range(start, end int64) ([]byte, error) {
	if err := checkRange(start, end, int64(s.length)); err != nil {
		return nil, err
	}
	out := make([]byte, end-start)
	copy(out, s.view()[start:end])
	return out, nil
}

func (s *ByteSlice) Bytes() ([]byte, error) {
	return s.Range(0, int64(s.length))
}

func (s *ByteSlice) Set(i int64, v byte) error {
	if err := checkIndex(i, int64(s.length)); err != nil {
		return err
	}
	s.backing[s.begin+int(i)] = v
	return nil
}

func (s *ByteSlice) SetRange(start int64, data []byte) error {
	if err := checkSpan(start, int64(len(data)), int64(s.length)); err != nil {
		return err
	}
	copy(s.view()[start:], data)
	return nil
}

func (s *ByteSlice) SetFrom(start int64, src Ref) error {
	if err := checkSpan(start, src.Size(), int64(s.length)); err != nil {
		return err
	}
	return src.CopyToBuf(s.backing, s.begin+int(start))
}

func (s *ByteSlice) CopyTo(target Ref, offset int64) error {
	return target.SetRange(offset, s.view())
}

func (s *ByteSlice) CopyToBuf(target []byte, offset int) error {
	if err := checkSpan(int64(offset), int64(s.length), int64(len(target))); err != nil {
		return err
	}
	copy(target[offset:], s.view())
	return nil
}

func (s *ByteSlice) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.view())
	return int64(n), errors.Wrap(err, "writing byte slice")
}

func (s *ByteSlice) Sub(begin, length int64) (Ref, error) {
	if err := checkSpan(begin, length, int64(s.length)); err != nil {
		return nil, err
	}
	return &ByteSlice{begin: s.begin + int(begin), length: int(length), backing: s.backing}, nil
}

func (s *ByteSlice) Split(numChunks int64, chunkSize int) (*Chunks, error) {
	return NewChunks(s, numChunks, chunkSize)
}

func (s *ByteSlice) Retain() {}

func (s *ByteSlice) Release() error { return nil }

// Compare orders ByteSlices first by length,
// then lexicographically by unsigned byte value,
// as bytes.Compare does.
// Orderings built on signed bytes differ:
// there 0x80 sorts before 0x01, here after it.
// The result is negative, zero or positive
// as s is less than, equal to or greater than other.
func (s *ByteSlice) Compare(other *ByteSlice) int {
	return s.CompareBytes(other.view())
}

// CompareBytes is like Compare but takes a plain byte slice.
func (s *ByteSlice) CompareBytes(b []byte) int {
	if s.length != len(b) {
		if s.length < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(s.view(), b)
}

// Equal tells whether s and other have the same content.
func (s *ByteSlice) Equal(other *ByteSlice) bool {
	return bytes.Equal(s.view(), other.view())
}

// EqualBytes tells whether s has the content b.
func (s *ByteSlice) EqualBytes(b []byte) bool {
	return bytes.Equal(s.view(), b)
}

// Hash is a hash of the content of s,
// consistent with Equal.
// All empty slices,
// including those with a nil backing slice,
// hash to the same fixed value.
func (s *ByteSlice) Hash() uint64 {
	return xxhash.Sum64(s.view())
}

func (s *ByteSlice) String() string {
	return string(s.view())
}

// RangeEquals tells whether a[startA:startA+n] and b[startB:startB+n] are equal.
// It is false if either range runs off the end of its slice.
func RangeEquals(a []byte, startA int, b []byte, startB int, n int) bool {
	if startA < 0 || startB < 0 || n < 0 || len(a)-startA < n || len(b)-startB < n {
		return false
	}
	return bytes.Equal(a[startA:startA+n], b[startB:startB+n])
}
