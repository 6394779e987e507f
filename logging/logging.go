// Package logging implements a ref that delegates everything to a nested ref,
// logging operations as they happen.
package logging

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bobg/dataref"
)

var (
	_ dataref.Ref       = &Ref{}
	_ dataref.Unwrapper = &Ref{}
)

// Ref logs each operation on a nested ref at debug level,
// and each failed operation at error level,
// then returns the nested ref's results unchanged.
// Zero-copy transfers see through it to the nested ref.
type Ref struct {
	r   dataref.Ref
	log logrus.FieldLogger
}

// New produces a logging Ref around r.
// A nil log means logrus's standard logger.
func New(r dataref.Ref, log logrus.FieldLogger) *Ref {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ref{r: r, log: log}
}

// Unwrap is the nested ref.
func (r *Ref) Unwrap() dataref.Ref {
	return r.r
}

func (r *Ref) done(op string, err error, fields logrus.Fields) {
	entry := r.log.WithFields(fields).WithField("size", r.r.Size())
	if err != nil {
		entry.WithError(err).Errorf("ERROR in %s", op)
		return
	}
	entry.Debug(op)
}

func (r *Ref) Size() int64 {
	return r.r.Size()
}

func (r *Ref) At(i int64) (byte, error) {
	b, err := r.r.At(i)
	r.done("At", err, logrus.Fields{"index": i})
	return b, err
}

func (r *Ref) Range(start, end int64) ([]byte, error) {
	b, err := r.r.Range(start, end)
	r.done("Range", err, logrus.Fields{"start": start, "end": end})
	return b, err
}

func (r *Ref) Bytes() ([]byte, error) {
	b, err := r.r.Bytes()
	r.done("Bytes", err, nil)
	return b, err
}

func (r *Ref) Set(i int64, v byte) error {
	err := r.r.Set(i, v)
	r.done("Set", err, logrus.Fields{"index": i})
	return err
}

func (r *Ref) SetRange(start int64, data []byte) error {
	err := r.r.SetRange(start, data)
	r.done("SetRange", err, logrus.Fields{"start": start, "len": len(data)})
	return err
}

func (r *Ref) SetFrom(start int64, src dataref.Ref) error {
	err := r.r.SetFrom(start, src)
	r.done("SetFrom", err, logrus.Fields{"start": start, "len": src.Size()})
	return err
}

func (r *Ref) CopyTo(target dataref.Ref, offset int64) error {
	err := r.r.CopyTo(target, offset)
	r.done("CopyTo", err, logrus.Fields{"offset": offset})
	return err
}

func (r *Ref) CopyToBuf(target []byte, offset int) error {
	err := r.r.CopyToBuf(target, offset)
	r.done("CopyToBuf", err, logrus.Fields{"offset": offset})
	return err
}

func (r *Ref) WriteTo(w io.Writer) (int64, error) {
	n, err := r.r.WriteTo(w)
	r.done("WriteTo", err, logrus.Fields{"written": n})
	return n, err
}

// Sub produces a logging Ref around the nested ref's Sub.
func (r *Ref) Sub(begin, length int64) (dataref.Ref, error) {
	sub, err := r.r.Sub(begin, length)
	r.done("Sub", err, logrus.Fields{"begin": begin, "length": length})
	if err != nil {
		return nil, err
	}
	return New(sub, r.log), nil
}

// Split produces chunks that are themselves logging Refs.
func (r *Ref) Split(numChunks int64, chunkSize int) (*dataref.Chunks, error) {
	chunks, err := dataref.NewChunks(r, numChunks, chunkSize)
	r.done("Split", err, logrus.Fields{"chunks": numChunks, "chunk_size": chunkSize})
	return chunks, err
}

func (r *Ref) Retain() {
	r.r.Retain()
	r.log.Debug("Retain")
}

func (r *Ref) Release() error {
	err := r.r.Release()
	r.done("Release", err, nil)
	return err
}

func init() {
	dataref.Register("logging", func(ctx context.Context, conf map[string]interface{}) (dataref.Ref, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedRef, err := dataref.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested ref")
		}
		return New(nestedRef, nil), nil
	})
}
