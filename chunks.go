package dataref

import "github.com/pkg/errors"

// Chunks is a lazy, forward-only sequence of sub-refs produced by Split.
// Each call to Next computes one more chunk with the source's Sub method.
// A Chunks cannot be rewound;
// call Split again to start over.
//
// Every chunk is independently owned.
// For file-backed sources each chunk holds its own retain on the file handle,
// so the caller must release each chunk it obtains,
// and the source must still be live when Next is called.
//
// Typical use:
//
//	chunks, err := ref.Split(dataref.NumChunks(ref.Size(), n), n)
//	if err != nil { ... }
//	for chunks.Next() {
//	  chunk := chunks.Ref()
//	  ...
//	  chunk.Release()
//	}
//	if err := chunks.Err(); err != nil { ... }
type Chunks struct {
	src       Ref
	size      int64
	chunkSize int64
	pos       int64
	cur       Ref
	err       error
}

// NewChunks produces a Chunks over src.
// It is how Ref implementations,
// including decorators outside this package,
// implement Split.
func NewChunks(src Ref, numChunks int64, chunkSize int) (*Chunks, error) {
	if chunkSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidChunking, "chunk size %d", chunkSize)
	}
	size := src.Size()
	if want := NumChunks(size, int64(chunkSize)); numChunks != want {
		return nil, errors.Wrapf(ErrInvalidChunking, "%d chunks requested, but %d bytes in chunks of %d make %d", numChunks, size, chunkSize, want)
	}
	return &Chunks{
		src:       src,
		size:      size,
		chunkSize: int64(chunkSize),
	}, nil
}

// Next advances to the next chunk,
// which is then available from Ref.
// It returns false at the end of the sequence or on error.
func (c *Chunks) Next() bool {
	c.cur = nil
	if c.err != nil || c.pos >= c.size {
		return false
	}
	n := min(c.chunkSize, c.size-c.pos)
	r, err := c.src.Sub(c.pos, n)
	if err != nil {
		c.err = errors.Wrapf(err, "producing chunk at %d", c.pos)
		return false
	}
	c.cur = r
	c.pos += n
	return true
}

// Ref is the chunk produced by the latest call to Next.
func (c *Chunks) Ref() Ref {
	return c.cur
}

// Err is the error, if any, that stopped the sequence.
func (c *Chunks) Err() error {
	return c.err
}

// Remaining is the number of chunks not yet produced.
func (c *Chunks) Remaining() int64 {
	return NumChunks(c.size-c.pos, c.chunkSize)
}
