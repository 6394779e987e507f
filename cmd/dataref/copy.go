package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bobg/dataref"
)

func (c maincmd) copy(ctx context.Context, srcBegin, length, dstOffset int64, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: copy [-src-begin N] [-length N] [-dst-offset N] SRC DST")
	}
	srcPath, dstPath := args[0], args[1]

	src, err := c.window(srcPath, srcBegin, length)
	if err != nil {
		return errors.Wrapf(err, "opening source %s", srcPath)
	}
	defer src.Release()

	dst, err := dataref.Open(dstPath, dataref.ReadWrite, c.conf.HandleOptions(c.log)...)
	if err != nil {
		return errors.Wrapf(err, "opening destination %s", dstPath)
	}
	defer dst.Release()

	if end := dstOffset + src.Size(); dst.Size() < end {
		if err = dst.Truncate(end); err != nil {
			return errors.Wrapf(err, "extending %s", dstPath)
		}
	}

	err = src.CopyTo(dst, dstOffset)
	if err != nil {
		return errors.Wrapf(err, "copying %s to %s", srcPath, dstPath)
	}
	c.log.WithFields(logrus.Fields{
		"src":   srcPath,
		"dst":   dstPath,
		"bytes": src.Size(),
	}).Info("copied")
	return nil
}
