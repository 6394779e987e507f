package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/dataref"
	"github.com/bobg/dataref/split"
)

// cdc prints the content-defined chunks of a file:
// offset, size, level, and hash of each.
func (c maincmd) cdc(ctx context.Context, bits uint, minSize int, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cdc [-bits N] [-min N] FILE")
	}
	path := args[0]

	h, err := c.pool.Get(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer h.Release()

	chunks, err := split.Content(h, split.Bits(bits), split.MinSize(minSize))
	if err != nil {
		return errors.Wrapf(err, "splitting %s", path)
	}
	defer split.Release(chunks)

	for _, chunk := range chunks {
		b, err := chunk.Bytes()
		if err != nil {
			return errors.Wrapf(err, "reading chunk at %d", chunk.Offset)
		}
		fmt.Printf("%d\t%d\t%d\t%016x\n", chunk.Offset, chunk.Size(), chunk.Level, dataref.Wrap(b).Hash())
	}
	return nil
}
