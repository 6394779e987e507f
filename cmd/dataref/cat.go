package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

func (c maincmd) cat(ctx context.Context, begin, length int64, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cat [-begin N] [-length N] FILE")
	}
	path := args[0]

	w, err := c.window(path, begin, length)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer w.Release()

	_, err = w.WriteTo(os.Stdout)
	return errors.Wrapf(err, "writing %s", path)
}
