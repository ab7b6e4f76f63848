// Package config loads h5inspect configuration.
//
// Configuration comes from a single YAML file named with --config. Without
// one, Default applies. Keys left out of the file keep their defaults.
//
//	log_level: debug
//	dataset:
//	  layout: chunked
//	  chunks: [64, 64]
//	  compression: zstd
//	  shuffle: true
//	  checksum: blake3
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-h5/h5"
)

// Config is the h5inspect configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	// Default: warn
	LogLevel string `yaml:"log_level"`

	// Dataset holds defaults for datasets created from the command line.
	Dataset DatasetConfig `yaml:"dataset"`
}

// DatasetConfig holds dataset creation defaults.
type DatasetConfig struct {
	// Layout is compact, contiguous or chunked.
	// Default: contiguous (compact for scalars)
	Layout string `yaml:"layout"`

	// Chunks are the chunk dimensions of a chunked layout.
	Chunks []uint64 `yaml:"chunks"`

	// Compression is none, deflate, zstd or lz4.
	// Default: none
	Compression string `yaml:"compression"`

	// Level is the deflate level, 1-9.
	// Default: 6
	Level int `yaml:"level"`

	// Shuffle enables byte shuffling before compression.
	Shuffle bool `yaml:"shuffle"`

	// Checksum is none, fletcher32 or blake3.
	// Default: none
	Checksum string `yaml:"checksum"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Dataset: DatasetConfig{
			Compression: "none",
			Level:       6,
			Checksum:    "none",
		},
	}
}

// LoadFile loads the configuration at path over the defaults. An empty
// path returns Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every key and names the first offending one.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	d := c.Dataset
	switch strings.ToLower(d.Layout) {
	case "", "compact", "contiguous":
		if len(d.Chunks) > 0 {
			return fmt.Errorf("dataset.chunks: only valid with a chunked layout")
		}
	case "chunked":
		if len(d.Chunks) == 0 {
			return fmt.Errorf("dataset.chunks: required for a chunked layout")
		}
	default:
		return fmt.Errorf("dataset.layout: unknown layout %q", d.Layout)
	}
	filtered := d.Shuffle
	switch strings.ToLower(d.Compression) {
	case "", "none":
	case "deflate", "zstd", "lz4":
		filtered = true
	default:
		return fmt.Errorf("dataset.compression: unknown compressor %q", d.Compression)
	}
	if d.Level < 1 || d.Level > 9 {
		return fmt.Errorf("dataset.level: %d is not in 1-9", d.Level)
	}
	switch strings.ToLower(d.Checksum) {
	case "", "none":
	case "fletcher32", "blake3":
		filtered = true
	default:
		return fmt.Errorf("dataset.checksum: unknown checksum %q", d.Checksum)
	}
	if filtered && strings.ToLower(d.Layout) != "chunked" {
		return fmt.Errorf("dataset.layout: filters require a chunked layout")
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// DatasetOptions returns the creation options for the configured
// defaults.
func (c *Config) DatasetOptions() []h5.DatasetOption {
	d := c.Dataset
	var opts []h5.DatasetOption
	switch strings.ToLower(d.Layout) {
	case "compact":
		opts = append(opts, h5.WithCompact())
	case "contiguous":
		opts = append(opts, h5.WithContiguous())
	case "chunked":
		opts = append(opts, h5.WithChunks(d.Chunks...))
	}
	if d.Shuffle {
		opts = append(opts, h5.WithShuffle())
	}
	switch strings.ToLower(d.Compression) {
	case "deflate":
		opts = append(opts, h5.WithDeflate(d.Level))
	case "zstd":
		opts = append(opts, h5.WithZstd())
	case "lz4":
		opts = append(opts, h5.WithLZ4())
	}
	switch strings.ToLower(d.Checksum) {
	case "fletcher32":
		opts = append(opts, h5.WithFletcher32())
	case "blake3":
		opts = append(opts, h5.WithChecksum())
	}
	return opts
}
