package gfp

import (
	"io"
	"log/slog"
	"runtime"

	pak "github.com/Benborbar/gfp/core"
)

// Option configures OpenGlob, Unpack and WriteIndex.
type Option func(*config)

type config struct {
	workers      int
	logger       *slog.Logger
	progress     ProgressFunc
	skipExisting bool
	digests      bool
	echo         io.Writer
	archiveOpts  []pak.Option
}

func newConfig(opts []Option) *config {
	c := &config{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// archiveOptions returns the options passed to pak.Open. Options set with
// WithArchiveOptions come last and win.
func (c *config) archiveOptions() []pak.Option {
	opts := make([]pak.Option, 0, len(c.archiveOpts)+1)
	if c.logger != nil {
		opts = append(opts, pak.WithLogger(c.logger))
	}
	return append(opts, c.archiveOpts...)
}

func (c *config) emit(event ProgressEvent) {
	if c.progress != nil {
		c.progress(event)
	}
}

// WithWorkers sets how many paks are processed at once (default GOMAXPROCS).
// Each worker owns its own archive. Values < 1 mean one worker.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLogger sets the logger for batch operations and the archives they open.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithProgress sets a callback for progress events. It is called from
// several workers and must be safe for concurrent use.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithSkipExisting makes Unpack keep files that already exist in the
// destination. By default, they are replaced.
func WithSkipExisting(skip bool) Option {
	return func(c *config) {
		c.skipExisting = skip
	}
}

// WithDigests makes WriteIndex prefix each line with the entry's sha256
// digest and decoded size. Every entry is decoded to compute it.
func WithDigests(enabled bool) Option {
	return func(c *config) {
		c.digests = enabled
	}
}

// WithEcho makes WriteIndex also write each index line to w.
// Lines from different paks are not interleaved.
func WithEcho(w io.Writer) Option {
	return func(c *config) {
		c.echo = w
	}
}

// WithArchiveOptions passes options to pak.Open for every archive.
func WithArchiveOptions(opts ...pak.Option) Option {
	return func(c *config) {
		c.archiveOpts = append(c.archiveOpts, opts...)
	}
}
