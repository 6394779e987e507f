package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/dataref"
)

// cmp prints -1, 0, or 1
// as the contents of the first file sort before, the same as, or after the second.
// Shorter contents sort first.
func (c maincmd) cmp(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: cmp A B")
	}

	var slices [2]*dataref.ByteSlice
	for i, path := range args {
		s, err := c.load(path)
		if err != nil {
			return err
		}
		slices[i] = s
	}

	fmt.Println(slices[0].Compare(slices[1]))
	return nil
}

func (c maincmd) load(path string) (*dataref.ByteSlice, error) {
	h, err := c.pool.Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer h.Release()

	s := dataref.Wrap(make([]byte, h.Size()))
	if err = h.CopyTo(s, 0); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return s, nil
}
