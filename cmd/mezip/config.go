package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/update"
)

// Config is the mezip configuration file, overridden by command line flags.
type Config struct {
	Threads          int      `toml:"threads"`
	Methods          []string `toml:"methods"`
	Level            int      `toml:"level"`
	MemoryPerThread  int64    `toml:"memory_per_thread"`
	BlockSize        int      `toml:"block_size"`
	AESStrength      int      `toml:"aes_strength"`
	Comment          *string  `toml:"comment"`
	ProgressInterval string   `toml:"progress_interval"`
}

func defaultConfig() *Config {
	return &Config{
		Threads:          runtime.NumCPU(),
		Methods:          []string{"deflate"},
		MemoryPerThread:  update.DefaultMemoryPerThread,
		BlockSize:        update.DefaultBlockSize,
		ProgressInterval: "2s",
	}
}

// loadConfig reads path over the defaults. A missing file is not an error
// unless required is set.
func loadConfig(path string, required bool) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}

		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) progressInterval() (time.Duration, error) {
	if c.ProgressInterval == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.ProgressInterval)
	if err != nil {
		return 0, fmt.Errorf("%w: progress_interval: %w", errs.ErrInvalidConfig, err)
	}

	return d, nil
}

func aesStrength(bits int) (uint8, error) {
	switch bits {
	case 128:
		return archive.AES128, nil
	case 192:
		return archive.AES192, nil
	case 256:
		return archive.AES256, nil
	default:
		return 0, fmt.Errorf("%w: aes strength %d, want 128, 192 or 256", errs.ErrInvalidConfig, bits)
	}
}

// options converts the configuration into coordinator options.
func (c *Config) options() ([]update.Option, error) {
	methods := make([]format.Method, 0, len(c.Methods))
	for _, name := range c.Methods {
		m, err := format.ParseMethod(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
		}
		methods = append(methods, m)
	}

	opts := []update.Option{
		update.WithThreads(c.Threads),
		update.WithMethods(methods...),
		update.WithLevel(c.Level),
		update.WithMemoryPerThread(c.MemoryPerThread),
		update.WithBlockSize(c.BlockSize),
	}
	if c.AESStrength != 0 {
		strength, err := aesStrength(c.AESStrength)
		if err != nil {
			return nil, err
		}
		opts = append(opts, update.WithEncryption(strength))
	}
	if c.Comment != nil {
		opts = append(opts, update.WithComment(*c.Comment))
	}

	return opts, nil
}
