// Package avatarpak decodes tag 7 ("avatar") paks.
//
// Avatar paks store each entry's path inline in the entry table and
// obfuscate the index size in the trailer. Resolved paths are the inline
// paths exactly; the mount point is not prepended.
package avatarpak

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Benborbar/gfp/core/internal/cursor"
	"github.com/Benborbar/gfp/core/internal/file"
	"github.com/Benborbar/gfp/core/internal/index"
	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/trailer"
	"github.com/Benborbar/gfp/core/internal/xorkey"
)

// MaxPathSize is the exclusive upper bound of an inline path size field.
const MaxPathSize = 8192

// Archive is an avatar pak opened for reading.
//
// Stages load lazily on first use and are kept for the archive's lifetime.
// An Archive is not safe for concurrent use.
type Archive struct {
	source    file.ByteSource
	closer    io.Closer
	extractor *file.Extractor
	logger    *slog.Logger

	stage      paktype.Stage
	trailer    paktype.Trailer
	mountPoint string
	entries    []paktype.Entry
}

// Option configures an Archive.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	closer      io.Closer
	extractOpts []file.Option
}

// WithLogger sets the logger for stage loads and extraction.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCloser sets a resource released by Close, usually the open file
// behind the source.
func WithCloser(closer io.Closer) Option {
	return func(c *config) {
		c.closer = closer
	}
}

// WithExtractorOptions passes options to the payload extractor.
func WithExtractorOptions(opts ...file.Option) Option {
	return func(c *config) {
		c.extractOpts = append(c.extractOpts, opts...)
	}
}

// New creates an Archive over source. No I/O is performed.
func New(source file.ByteSource, opts ...Option) *Archive {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("dialect", paktype.DialectAvatar.String())

	extractOpts := append([]file.Option{file.WithLogger(logger)}, cfg.extractOpts...)
	return &Archive{
		source:    source,
		closer:    cfg.closer,
		extractor: file.NewExtractor(source, extractOpts...),
		logger:    logger,
	}
}

// Dialect returns paktype.DialectAvatar.
func (a *Archive) Dialect() paktype.Dialect {
	return paktype.DialectAvatar
}

// Stage returns the furthest stage loaded so far.
func (a *Archive) Stage() paktype.Stage {
	return a.stage
}

// Trailer returns the deobfuscated trailer.
func (a *Archive) Trailer() (paktype.Trailer, error) {
	if err := a.loadTrailer(); err != nil {
		return paktype.Trailer{}, err
	}
	return a.trailer, nil
}

// Encrypted reports whether the index block is obfuscated.
func (a *Archive) Encrypted() (bool, error) {
	if err := a.loadTrailer(); err != nil {
		return false, err
	}
	return a.trailer.Encrypted, nil
}

// Version returns the format version stored in the trailer.
func (a *Archive) Version() (uint32, error) {
	if err := a.loadTrailer(); err != nil {
		return 0, err
	}
	return a.trailer.Version, nil
}

// MountPoint returns the mount point string of the index.
func (a *Archive) MountPoint() (string, error) {
	if err := a.loadEntries(); err != nil {
		return "", err
	}
	return a.mountPoint, nil
}

// EntryCount returns the number of entries.
func (a *Archive) EntryCount() (uint64, error) {
	if err := a.loadEntries(); err != nil {
		return 0, err
	}
	return uint64(len(a.entries)), nil
}

// EntryPath returns the inline path of entry id.
func (a *Archive) EntryPath(id uint64) (string, error) {
	e, err := a.entry(id)
	if err != nil {
		return "", err
	}
	return e.Path, nil
}

// EntryInfo returns metadata for entry id.
func (a *Archive) EntryInfo(id uint64) (paktype.EntryInfo, error) {
	e, err := a.entry(id)
	if err != nil {
		return paktype.EntryInfo{}, err
	}
	return e.Info(id, e.Path), nil
}

// ExtractEntry writes the decoded payload of entry id to w.
// A failure affects only this call; the entry table stays loaded.
func (a *Archive) ExtractEntry(id uint64, w io.Writer) error {
	e, err := a.entry(id)
	if err != nil {
		return err
	}
	if err := a.extractor.Extract(e, w); err != nil {
		return fmt.Errorf("extract entry %d: %w", id, err)
	}
	return nil
}

// Close releases the resource set with WithCloser, if any.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	closer := a.closer
	a.closer = nil
	return closer.Close()
}

func (a *Archive) entry(id uint64) (*paktype.Entry, error) {
	if err := a.loadEntries(); err != nil {
		return nil, err
	}
	if id >= uint64(len(a.entries)) {
		return nil, fmt.Errorf("%w: id %d, archive has %d entries", paktype.ErrEntryNotFound, id, len(a.entries))
	}
	return &a.entries[id], nil
}

func (a *Archive) loadTrailer() error {
	if a.stage >= paktype.StageTrailerLoaded {
		return nil
	}

	raw, err := trailer.Read(a.source, a.source.Size())
	if err != nil {
		return err
	}

	t := paktype.Trailer{
		Encrypted:   raw.Encrypted^xorkey.EncryptedFlag != 0,
		Version:     raw.Version,
		Hash:        raw.Hash,
		IndexSize:   raw.IndexSize ^ xorkey.IndexSize,
		IndexOffset: raw.IndexOffset ^ xorkey.IndexOffset,
	}
	xorkey.HashBytes(&t.Hash)
	if t.IndexSize > paktype.MaxIndexSize {
		return paktype.InvalidDataf("invalid index data size: %d", t.IndexSize)
	}

	a.trailer = t
	a.stage = paktype.StageTrailerLoaded
	a.logger.Debug("trailer loaded",
		"encrypted", t.Encrypted,
		"version", t.Version,
		"index_offset", t.IndexOffset,
		"index_size", t.IndexSize)
	return nil
}

func (a *Archive) loadEntries() error {
	if a.stage >= paktype.StageEntriesLoaded {
		return nil
	}
	if err := a.loadTrailer(); err != nil {
		return err
	}

	buf, err := index.ReadBlock(a.source, a.trailer)
	if err != nil {
		return err
	}

	c := cursor.New(buf)
	mountPoint, err := index.ReadMountPoint(c)
	if err != nil {
		return fmt.Errorf("mount point: %w", err)
	}
	count, err := index.ReadEntryCount(c)
	if err != nil {
		return err
	}

	entries := make([]paktype.Entry, count)
	for i := range entries {
		if err := readEntry(c, &entries[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	a.mountPoint = mountPoint
	a.entries = entries
	a.stage = paktype.StageEntriesLoaded
	a.logger.Debug("entries loaded", "mount_point", mountPoint, "entries", count)
	return nil
}

// readEntry reads an inline path followed by the common entry record.
func readEntry(c *cursor.Cursor, e *paktype.Entry) error {
	size, err := c.Int32()
	if err != nil {
		return err
	}
	if size >= MaxPathSize {
		return paktype.InvalidDataf("entry path too long: %d", size)
	}
	if e.Path, err = index.ReadName(c, size); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	return index.ReadEntry(c, e)
}
