// Package pool keeps a bounded set of open file handles,
// so that refs onto the same file share one open descriptor.
package pool

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/bobg/dataref"
)

// ErrClosed is the error returned by a Pool after Close.
var ErrClosed = errors.New("pool closed")

// Pool is a least-recently-used cache of open dataref.FileHandles, keyed by path.
//
// The pool holds one retain on each handle it caches.
// Evicting a handle releases that hold,
// which closes the file only once every other holder has released it too.
type Pool struct {
	mode dataref.Mode
	opts []dataref.Option
	log  logrus.FieldLogger

	sf singleflight.Group

	mu     sync.Mutex // protects the fields below and every mutation of c
	c      *lru.Cache // path -> *dataref.FileHandle
	errs   []error
	closed bool
}

// New produces a new Pool caching up to size handles,
// opened with the given mode and options.
func New(size int, mode dataref.Mode, opts ...dataref.Option) (*Pool, error) {
	p := &Pool{
		mode: mode,
		opts: opts,
		log:  logrus.StandardLogger(),
	}
	c, err := lru.NewWithEvict(size, p.evicted)
	if err != nil {
		return nil, errors.Wrap(err, "creating handle cache")
	}
	p.c = c
	return p, nil
}

// Caller must hold p.mu.
func (p *Pool) evicted(key, value interface{}) {
	h := value.(*dataref.FileHandle)
	if err := h.Release(); err != nil {
		p.log.WithError(err).WithField("path", key).Warn("releasing evicted file handle")
		p.errs = append(p.errs, err)
	}
}

// Get produces the handle for path,
// opening the file if it is not already in the pool.
// The handle is retained for the caller,
// who must release it.
func (p *Pool) Get(path string) (*dataref.FileHandle, error) {
	for {
		h, err := p.lookup(path)
		if err != nil || h != nil {
			return h, err
		}
		_, err, _ = p.sf.Do(path, func() (interface{}, error) {
			return nil, p.open(path)
		})
		if err != nil {
			return nil, err
		}
	}
}

func (p *Pool) lookup(path string) (*dataref.FileHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if v, ok := p.c.Get(path); ok {
		h := v.(*dataref.FileHandle)
		h.Retain()
		return h, nil
	}
	return nil, nil
}

func (p *Pool) open(path string) error {
	p.mu.Lock()
	_, ok := p.c.Peek(path)
	p.mu.Unlock()
	if ok {
		return nil
	}

	h, err := dataref.Open(path, p.mode, p.opts...)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		if err := h.Release(); err != nil {
			return err
		}
		return ErrClosed
	}
	p.c.Add(path, h)
	return nil
}

// Window produces a window onto [begin, begin+length) of the file at path,
// through the pool's handle for it.
// The caller owns the window and must release it.
func (p *Pool) Window(path string, begin, length int64) (*dataref.FileWindow, error) {
	h, err := p.Get(path)
	if err != nil {
		return nil, err
	}
	w, err := dataref.NewWindow(h, begin, length)
	rerr := h.Release()
	switch {
	case err != nil && rerr != nil:
		return nil, errors.Wrapf(err, "(also releasing handle: %s)", rerr)
	case err != nil:
		return nil, err
	case rerr != nil:
		w.Release()
		return nil, rerr
	}
	return w, nil
}

// Remove drops path from the pool,
// releasing the pool's hold on its handle.
// It reports whether path was present.
func (p *Pool) Remove(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.c.Remove(path)
}

// Len is the number of handles in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.c.Len()
}

// Close releases the pool's hold on every handle
// and reports the first error encountered releasing a handle
// over the lifetime of the pool.
// Handles still held elsewhere stay open until their holders release them.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.c.Purge()

	if len(p.errs) > 0 {
		return errors.Wrapf(p.errs[0], "releasing pooled handles (%d errors)", len(p.errs))
	}
	return nil
}
