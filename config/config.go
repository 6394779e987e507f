// Package config holds the settings of the dataref command.
package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bobg/dataref"
)

// Config is the JSON configuration of the dataref command.
// Fields missing from the JSON keep their Default values.
type Config struct {
	// ChunkSize is the size of fixed-size chunks, e.g. "64KB".
	ChunkSize datasize.ByteSize `json:"chunk_size"`

	// RetryLimit bounds consecutive transfers that make no progress.
	RetryLimit int `json:"retry_limit"`

	// PoolSize is the number of open file handles to keep.
	PoolSize int `json:"pool_size"`

	// Mode is "r" or "rw".
	Mode string `json:"mode"`

	// LogLevel is a logrus level name.
	LogLevel string `json:"log_level"`
}

// Default is the configuration used when there is no config file.
var Default = Config{
	ChunkSize:  dataref.DefaultChunkSize * datasize.B,
	RetryLimit: dataref.DefaultRetryLimit,
	PoolSize:   64,
	Mode:       "r",
	LogLevel:   "info",
}

// Load reads the config file at filename.
func Load(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	c, err := Parse(f)
	return c, errors.Wrapf(err, "in config file %s", filename)
}

// Parse decodes a config from r and validates it.
func Parse(r io.Reader) (*Config, error) {
	c := Default
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if c.ChunkSize == 0 || c.ChunkSize.Bytes() > uint64(maxInt) {
		return errors.Errorf("chunk_size %s out of range", c.ChunkSize.HR())
	}
	if c.RetryLimit < 1 {
		return errors.Errorf("retry_limit %d is less than 1", c.RetryLimit)
	}
	if c.PoolSize < 1 {
		return errors.Errorf("pool_size %d is less than 1", c.PoolSize)
	}
	if _, err := c.FileMode(); err != nil {
		return err
	}
	_, err := c.Level()
	return err
}

const maxInt = int(^uint(0) >> 1)

// Chunk is the chunk size as an int.
func (c *Config) Chunk() int {
	return int(c.ChunkSize.Bytes())
}

// FileMode is the parsed Mode.
func (c *Config) FileMode() (dataref.Mode, error) {
	m, err := dataref.ParseMode(c.Mode)
	return m, errors.Wrap(err, "mode")
}

// Level is the parsed LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	l, err := logrus.ParseLevel(c.LogLevel)
	return l, errors.Wrap(err, "log_level")
}

// HandleOptions are the options for file handles opened under c,
// logging to log.
func (c *Config) HandleOptions(log logrus.FieldLogger) []dataref.Option {
	return []dataref.Option{
		dataref.RetryLimit(c.RetryLimit),
		dataref.Logger(log),
	}
}
