package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/sizing"
	"github.com/Benborbar/gfp/core/internal/xorkey"
)

const (
	// RawHeaderSize is the duplicate entry header stored in front of a raw payload.
	RawHeaderSize = 74

	// ChunkSize bounds each read of a raw payload.
	ChunkSize = 64 << 10

	// DefaultMaxBlockSize is the default limit for one stored or decoded block (256MB).
	DefaultMaxBlockSize = 256 << 20
)

// Extractor decodes entry payloads from a ByteSource.
//
// Output is written block by block (or chunk by chunk for raw entries), so
// memory use is bounded by one block regardless of entry size.
type Extractor struct {
	source       ByteSource
	pool         *DecompressPool
	maxBlockSize uint64
	logger       *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBlockSize sets the largest stored or decoded block size accepted.
// Set to 0 to disable the limit.
func WithMaxBlockSize(limit uint64) Option {
	return func(x *Extractor) {
		x.maxBlockSize = limit
	}
}

// WithPool sets the zlib reader pool. By default each extractor has its own.
func WithPool(pool *DecompressPool) Option {
	return func(x *Extractor) {
		x.pool = pool
	}
}

// WithLogger sets the logger for extraction.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) {
		x.logger = logger
	}
}

// NewExtractor creates an Extractor reading from source.
func NewExtractor(source ByteSource, opts ...Option) *Extractor {
	x := &Extractor{
		source:       source,
		maxBlockSize: DefaultMaxBlockSize,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.pool == nil {
		x.pool = NewDecompressPool()
	}
	return x
}

// Source returns the underlying ByteSource.
func (x *Extractor) Source() ByteSource {
	return x.source
}

// log returns the logger, falling back to a discard logger if nil.
func (x *Extractor) log() *slog.Logger {
	if x.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.logger
}

// Extract writes the decoded payload of entry to w.
//
// Entries with compression blocks are inflated block by block; entries
// without blocks are copied from the raw payload area.
func (x *Extractor) Extract(entry *Entry, w io.Writer) error {
	if len(entry.Blocks) > 0 {
		x.log().Debug("extracting blocks", "blocks", len(entry.Blocks), "size", entry.FileSize)
		return x.extractBlocks(entry, w)
	}
	x.log().Debug("extracting raw", "offset", entry.FileOffset, "size", entry.FileSize)
	return x.extractRaw(entry, w)
}

func (x *Extractor) extractBlocks(entry *Entry, w io.Writer) error {
	if err := ValidateBlocks(entry, x.maxBlockSize); err != nil {
		return err
	}

	hint := outputHint(entry)
	var (
		stored []byte
		out    bytes.Buffer
	)
	for i, block := range entry.Blocks {
		size := int(block.Size()) //nolint:gosec // bounded by ValidateBlocks
		off := int64(block.Start) //nolint:gosec // bounded by ValidateBlocks
		if cap(stored) < size {
			stored = make([]byte, size)
		}
		stored = stored[:size]

		n, err := x.source.ReadAt(stored, off)
		if n != size {
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read block %d at %d: %w", i, off, err)
			}
			return paktype.InvalidDataf("failed to read compressed chunk at %08X, read/expected: %d/%d", block.Start, n, size)
		}

		if entry.Encrypted {
			xorkey.Bytes(stored, xorkey.Stream)
		}

		if entry.Compression() != paktype.CompressionZlib {
			return paktype.InvalidDataf("unknown compression method %d, only %d is supported",
				entry.CompressionMethod, paktype.CompressionZlib)
		}

		out.Reset()
		out.Grow(hint)
		if err := x.pool.Inflate(&out, stored); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if _, err := w.Write(out.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// outputHint returns the initial capacity for one decoded block. The
// block size field is untrusted, so it is capped at ChunkSize and larger
// blocks grow the buffer while they inflate.
func outputHint(entry *Entry) int {
	return int(min(uint64(entry.CompressedBlockSize), ChunkSize))
}

func (x *Extractor) extractRaw(entry *Entry, w io.Writer) error {
	start, ok := sizing.AddUint64(entry.FileOffset, RawHeaderSize)
	if !ok {
		return paktype.ErrSizeOverflow
	}
	end, ok := sizing.AddUint64(start, entry.FileSize)
	if !ok {
		return paktype.ErrSizeOverflow
	}
	if _, err := sizing.ToInt64(end); err != nil {
		return err
	}

	off := int64(start) //nolint:gosec // end fits in int64
	remaining := entry.FileSize
	buf := make([]byte, min(remaining, ChunkSize))
	for remaining > 0 {
		chunk := buf[:min(remaining, ChunkSize)]

		n, err := x.source.ReadAt(chunk, off)
		if n < len(chunk) {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read entry data at %d: %w", off, err)
		}

		if entry.Encrypted {
			xorkey.Bytes(chunk, xorkey.Stream)
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}

		remaining -= uint64(len(chunk))
		off += int64(len(chunk))
	}
	return nil
}
