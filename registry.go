package dataref

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
)

// Factory produces a Ref from a configuration map,
// such as one decoded from JSON.
type Factory func(context.Context, map[string]interface{}) (Ref, error)

var registry = make(map[string]Factory)

// Register makes a Factory available to Create under the given key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create produces a Ref with the Factory registered under key.
// The caller owns the result and must release it.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Ref, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

func init() {
	Register("mem", func(_ context.Context, conf map[string]interface{}) (Ref, error) {
		if data, ok := conf["data"].(string); ok {
			return Wrap([]byte(data)), nil
		}
		size, ok, err := sizeParam(conf, "size")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(`missing "size" or "data" parameter`)
		}
		return Wrap(make([]byte, size)), nil
	})

	Register("file", func(_ context.Context, conf map[string]interface{}) (Ref, error) {
		path, ok := conf["path"].(string)
		if !ok {
			return nil, errors.New(`missing "path" parameter`)
		}
		modestr, _ := conf["mode"].(string)
		mode, err := ParseMode(modestr)
		if err != nil {
			return nil, err
		}

		var opts []Option
		limit, ok, err := sizeParam(conf, "retry_limit")
		if err != nil {
			return nil, err
		}
		if ok {
			opts = append(opts, RetryLimit(int(limit)))
		}

		h, err := Open(path, mode, opts...)
		if err != nil {
			return nil, err
		}
		w, err := windowFromConf(h, conf)
		// On success the window holds its own retain.
		if rerr := h.Release(); err == nil {
			err = rerr
		}
		if err != nil {
			if w != nil {
				w.Release()
			}
			return nil, errors.Wrapf(err, "window onto %s", path)
		}
		return w, nil
	})
}

func windowFromConf(h *FileHandle, conf map[string]interface{}) (*FileWindow, error) {
	if size, ok, err := sizeParam(conf, "size"); err != nil {
		return nil, err
	} else if ok {
		if err = h.Truncate(size); err != nil {
			return nil, err
		}
	}

	begin, _, err := sizeParam(conf, "begin")
	if err != nil {
		return nil, err
	}
	length, ok, err := sizeParam(conf, "length")
	if err != nil {
		return nil, err
	}
	if !ok {
		length = h.Size() - begin
	}
	if err = checkSpan(begin, length, h.Size()); err != nil {
		return nil, err
	}
	if del, _ := conf["delete"].(bool); del {
		h.MarkForDeletion()
	}

	return NewWindow(h, begin, length)
}

// sizeParam gets a non-negative byte count from conf.
// Strings are parsed as data sizes, such as "64KB".
func sizeParam(conf map[string]interface{}, key string) (int64, bool, error) {
	v, ok := conf[key]
	if !ok {
		return 0, false, nil
	}
	var n int64
	switch v := v.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false, errors.Wrapf(err, "parsing %q parameter", key)
		}
		n = i
	case string:
		s, err := datasize.ParseString(v)
		if err != nil {
			return 0, false, errors.Wrapf(err, "parsing %q parameter", key)
		}
		n = int64(s.Bytes())
	default:
		return 0, false, errors.Errorf("%q parameter has type %T", key, v)
	}
	if n < 0 {
		return 0, false, errors.Errorf("%q parameter is negative", key)
	}
	return n, true, nil
}
