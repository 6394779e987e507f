// Package split divides a ref into content-defined chunks.
// See github.com/bobg/hashsplit for more information.
//
// Unlike dataref.Ref.Split,
// which cuts at fixed intervals,
// the boundaries found here depend only on nearby content,
// so an insertion or deletion in one part of the data
// leaves the chunks elsewhere unchanged.
package split

import (
	"github.com/bobg/hashsplit"
	"github.com/pkg/errors"

	"github.com/bobg/dataref"
)

// Chunk is one content-defined piece of a ref.
type Chunk struct {
	dataref.Ref

	// Offset is the position of the chunk in the ref it came from.
	Offset int64

	// Level is the hashsplit level of the boundary ending the chunk.
	// Higher levels are rarer and mark more significant boundaries.
	Level uint
}

// Option configures the splitter used by Content.
type Option func(*hashsplit.Splitter)

// Bits sets the number of rolling-checksum bits that must be zero at a boundary.
// Chunks average 2^n bytes.
func Bits(n uint) Option {
	return func(s *hashsplit.Splitter) {
		s.SplitBits = n
	}
}

// MinSize sets the smallest chunk size, except for the final chunk.
func MinSize(n int) Option {
	return func(s *hashsplit.Splitter) {
		s.MinSize = n
	}
}

// Content streams r through a hashsplit splitter
// and produces the chunks it finds, in order.
// Each chunk is a sub-ref of r made with r.Sub,
// so nothing is copied,
// and each is independently owned:
// the caller must release every chunk.
func Content(r dataref.Ref, opts ...Option) ([]Chunk, error) {
	var (
		chunks []Chunk
		offset int64
	)
	spl := hashsplit.NewSplitter(func(b []byte, level uint) error {
		if len(b) == 0 {
			return nil
		}
		sub, err := r.Sub(offset, int64(len(b)))
		if err != nil {
			return errors.Wrapf(err, "taking chunk at %d", offset)
		}
		chunks = append(chunks, Chunk{Ref: sub, Offset: offset, Level: level})
		offset += int64(len(b))
		return nil
	})
	spl.MinSize = 1024
	spl.SplitBits = 14
	for _, opt := range opts {
		opt(spl)
	}

	_, err := r.WriteTo(spl)
	if err == nil {
		err = spl.Close()
	}
	if err == nil && offset != r.Size() {
		err = errors.Errorf("chunks cover %d bytes of %d", offset, r.Size())
	}
	if err != nil {
		Release(chunks)
		return nil, errors.Wrap(err, "splitting")
	}
	return chunks, nil
}

// Release releases every chunk,
// returning the first error.
func Release(chunks []Chunk) error {
	var first error
	for _, c := range chunks {
		if err := c.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
