// Command dataref reads, copies, and chunks files through dataref refs.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/bobg/subcmd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"

	"github.com/bobg/dataref"
	"github.com/bobg/dataref/config"
	"github.com/bobg/dataref/pool"
)

type maincmd struct {
	conf *config.Config
	log  *logrus.Logger
	pool *pool.Pool
}

func main() {
	var (
		confFile = flag.String("config", "", "path to config file (default: built-in defaults)")
		metrics  = flag.Bool("metrics", false, "print metrics to stderr on exit")
	)
	flag.Parse()

	log := logrus.New()

	conf := &config.Default
	if *confFile != "" {
		var err error
		conf, err = config.Load(*confFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	level, err := conf.Level()
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	mode, err := conf.FileMode()
	if err != nil {
		log.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	if err = dataref.RegisterMetrics(reg); err != nil {
		log.Fatal(err)
	}

	p, err := pool.New(conf.PoolSize, mode, conf.HandleOptions(log)...)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	c := maincmd{conf: conf, log: log, pool: p}

	err = subcmd.Run(ctx, c, flag.Args())
	if cerr := p.Close(); cerr != nil {
		log.WithError(cerr).Error("closing file pool")
	}
	if *metrics {
		if merr := dumpMetrics(reg); merr != nil {
			log.WithError(merr).Error("writing metrics")
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"cat", c.cat, subcmd.Params(
			"begin", subcmd.Int64, int64(0), "offset of the first byte to write",
			"length", subcmd.Int64, int64(-1), "number of bytes to write (default: through the end)",
		),
		"cdc", c.cdc, subcmd.Params(
			"bits", subcmd.Uint, uint(14), "boundary bits (chunks average 2^bits bytes)",
			"min", subcmd.Int, 1024, "minimum chunk size",
		),
		"cmp", c.cmp, nil,
		"copy", c.copy, subcmd.Params(
			"src-begin", subcmd.Int64, int64(0), "offset in the source of the first byte to copy",
			"length", subcmd.Int64, int64(-1), "number of bytes to copy (default: through the end of the source)",
			"dst-offset", subcmd.Int64, int64(0), "offset in the destination to copy to",
		),
		"split", c.split, subcmd.Params(
			"chunk", subcmd.String, "", "chunk size, e.g. 64KB (default from config)",
			"parallel", subcmd.Int, 4, "number of chunks to write at once",
		),
	)
}

func dumpMetrics(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(os.Stderr, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err = enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// window produces a window onto path from the pool.
// A negative length means through the end of the file.
func (c maincmd) window(path string, begin, length int64) (*dataref.FileWindow, error) {
	if length < 0 {
		h, err := c.pool.Get(path)
		if err != nil {
			return nil, err
		}
		length = h.Size() - begin
		if err = h.Release(); err != nil {
			return nil, err
		}
	}
	return c.pool.Window(path, begin, length)
}
