package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/dataref"
)

func (c maincmd) split(ctx context.Context, chunkStr string, parallel int, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: split [-chunk SIZE] [-parallel N] DIR FILE")
	}
	dir, path := args[0], args[1]

	chunk := c.conf.ChunkSize
	if chunkStr != "" {
		if err := chunk.UnmarshalText([]byte(chunkStr)); err != nil {
			return errors.Wrap(err, "parsing -chunk")
		}
	}
	if chunk == 0 {
		return errors.New("chunk size must be positive")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	h, err := c.pool.Get(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer h.Release()

	chunkSize := int(chunk.Bytes())
	chunks, err := h.Split(dataref.NumChunks(h.Size(), int64(chunkSize)), chunkSize)
	if err != nil {
		return errors.Wrapf(err, "splitting %s", path)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i := 0; chunks.Next(); i++ {
		i, r := i, chunks.Ref()
		g.Go(func() error {
			defer r.Release()
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeChunk(filepath.Join(dir, fmt.Sprintf("chunk-%06d", i)), r)
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}
	if err = chunks.Err(); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"file":  path,
		"dir":   dir,
		"chunk": datasize.ByteSize(chunkSize).HR(),
	}).Info("split")
	return nil
}

func writeChunk(filename string, r dataref.Ref) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	if _, err = r.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", filename)
	}
	return errors.Wrapf(f.Close(), "closing %s", filename)
}
