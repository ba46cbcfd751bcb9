package update

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/options"
	"github.com/arloliu/mezip/internal/pool"
	"github.com/arloliu/mezip/progress"
)

const (
	// MaxThreads caps the configured thread count.
	MaxThreads = 1 << 10

	// DefaultMemoryPerThread is the buffer budget of one worker.
	DefaultMemoryPerThread int64 = 1 << 25 // 32MiB

	// DefaultBlockSize is the size of one buffer block.
	DefaultBlockSize = 1 << 16 // 64KiB
)

// Config holds the settings of a Coordinator.
type Config struct {
	Threads         int
	MemoryPerThread int64
	BlockSize       int
	MaxReservation  int64
	Methods         []format.Method
	Level           int
	Encryption      bool
	AESStrength     uint8
	Comment         []byte
	CommentSet      bool
	SplitPolicy     SplitPolicy
	Registry        *compress.Registry
	Logger          zerolog.Logger
	Progress        progress.Sink
	Prior           *archive.Prior
}

// Option configures a Coordinator.
type Option = options.Option[*Config]

func defaultConfig() *Config {
	return &Config{
		Threads:         runtime.NumCPU(),
		MemoryPerThread: DefaultMemoryPerThread,
		BlockSize:       DefaultBlockSize,
		MaxReservation:  pool.DefaultMaxReservation,
		Methods:         []format.Method{format.MethodDeflate},
		AESStrength:     archive.AES256,
		SplitPolicy:     DefaultSplitPolicy,
		Logger:          zerolog.Nop(),
		Progress:        progress.Nop{},
	}
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	if int64(c.BlockSize) > c.MemoryPerThread {
		return fmt.Errorf("%w: block size %d exceeds memory per thread %d",
			errs.ErrInvalidConfig, c.BlockSize, c.MemoryPerThread)
	}
	if c.Registry == nil {
		c.Registry = compress.NewRegistry()
	}

	return nil
}

// WithThreads sets the thread budget. Values above MaxThreads are capped.
func WithThreads(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: threads must be >= 1, got %d", errs.ErrInvalidConfig, n)
		}
		c.Threads = min(n, MaxThreads)

		return nil
	})
}

// WithMemoryPerThread sets the buffer budget of one worker in bytes.
func WithMemoryPerThread(n int64) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: memory per thread must be positive, got %d", errs.ErrInvalidConfig, n)
		}
		c.MemoryPerThread = n

		return nil
	})
}

// WithBlockSize sets the size of one buffer block in bytes.
func WithBlockSize(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: block size must be positive, got %d", errs.ErrInvalidConfig, n)
		}
		c.BlockSize = n

		return nil
	})
}

// WithMaxReservation caps the buffer arena reserved for a multithreaded run.
func WithMaxReservation(n int64) Option {
	return options.NoError(func(c *Config) {
		c.MaxReservation = n
	})
}

// WithMethods sets the preferred method sequence. The first method with a
// registered codec is used for every new entry.
func WithMethods(methods ...format.Method) Option {
	return options.New(func(c *Config) error {
		if len(methods) == 0 {
			return fmt.Errorf("%w: empty method sequence", errs.ErrInvalidConfig)
		}
		c.Methods = append([]format.Method(nil), methods...)

		return nil
	})
}

// WithLevel sets the codec level, 0 selects the codec default.
func WithLevel(level int) Option {
	return options.NoError(func(c *Config) {
		c.Level = level
	})
}

// WithEncryption marks new file entries as AES encrypted with the given strength.
func WithEncryption(strength uint8) Option {
	return options.New(func(c *Config) error {
		if strength < archive.AES128 || strength > archive.AES256 {
			return fmt.Errorf("%w: AES strength %d", errs.ErrInvalidConfig, strength)
		}
		c.Encryption = true
		c.AESStrength = strength

		return nil
	})
}

// WithComment sets the archive comment. Without it the prior comment is kept.
func WithComment(comment string) Option {
	return options.NoError(func(c *Config) {
		c.Comment = []byte(comment)
		c.CommentSet = true
	})
}

// WithSplitPolicy replaces the thread split policy for internally parallel codecs.
func WithSplitPolicy(p SplitPolicy) Option {
	return options.New(func(c *Config) error {
		if p == nil {
			return fmt.Errorf("%w: nil split policy", errs.ErrInvalidConfig)
		}
		c.SplitPolicy = p

		return nil
	})
}

// WithRegistry sets the codec registry.
func WithRegistry(r *compress.Registry) Option {
	return options.NoError(func(c *Config) {
		c.Registry = r
	})
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return options.NoError(func(c *Config) {
		c.Logger = l
	})
}

// WithProgress sets the progress sink.
func WithProgress(s progress.Sink) Option {
	return options.NoError(func(c *Config) {
		if s == nil {
			s = progress.Nop{}
		}
		c.Progress = s
	})
}

// WithPrior sets the existing archive whose entries items may reuse.
func WithPrior(p *archive.Prior) Option {
	return options.NoError(func(c *Config) {
		c.Prior = p
	})
}
