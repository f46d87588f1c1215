package pak

import (
	"log/slog"

	"github.com/Benborbar/gfp/core/internal/file"
)

// DecompressPool holds reusable zlib decoders. A pool may be shared by many
// archives, including archives used from different goroutines.
type DecompressPool = file.DecompressPool

// NewDecompressPool creates an empty decoder pool.
func NewDecompressPool() *DecompressPool {
	return file.NewDecompressPool()
}

// DefaultMaxBlockSize is the default limit for one stored compression block.
const DefaultMaxBlockSize = file.DefaultMaxBlockSize

// Option configures Open and OpenSource.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	mmap         bool
	maxBlockSize uint64
	pool         *DecompressPool
}

func newConfig(opts []Option) *config {
	cfg := &config{maxBlockSize: DefaultMaxBlockSize}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func (c *config) extractorOptions() []file.Option {
	opts := []file.Option{file.WithMaxBlockSize(c.maxBlockSize)}
	if c.pool != nil {
		opts = append(opts, file.WithPool(c.pool))
	}
	return opts
}

// WithLogger sets the logger for stage loads and extraction.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMmap makes Open map the file into memory instead of issuing
// positional reads. It has no effect on OpenSource.
func WithMmap(enabled bool) Option {
	return func(c *config) {
		c.mmap = enabled
	}
}

// WithMaxBlockSize limits the stored size of a single compression block.
// Set limit to 0 to disable the limit.
func WithMaxBlockSize(limit uint64) Option {
	return func(c *config) {
		c.maxBlockSize = limit
	}
}

// WithDecompressPool shares a zlib decoder pool across archives.
func WithDecompressPool(pool *DecompressPool) Option {
	return func(c *config) {
		c.pool = pool
	}
}
