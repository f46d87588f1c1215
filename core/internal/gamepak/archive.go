// Package gamepak decodes tag 10 ("game") paks.
//
// Game paks derive the index size from the index offset and keep entry
// paths in a directory table that follows the entry records. Resolved paths
// are the mount point, directory name and file name concatenated as stored.
package gamepak

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

// Archive is a game pak opened for reading.
//
// Stages load lazily on first use and are kept for the archive's lifetime.
// Extraction needs only the entries stage; paths are resolved on the first
// path lookup. An Archive is not safe for concurrent use.
type Archive struct {
	source    file.ByteSource
	closer    io.Closer
	extractor *file.Extractor
	logger    *slog.Logger

	stage      paktype.Stage
	trailer    paktype.Trailer
	index      []byte
	tableStart int
	mountPoint string
	entries    []paktype.Entry
	paths      []string
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

// WithCloser sets a resource released by Close.
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
	logger = logger.With("dialect", paktype.DialectGame.String())

	extractOpts := append([]file.Option{file.WithLogger(logger)}, cfg.extractOpts...)
	return &Archive{
		source:    source,
		closer:    cfg.closer,
		extractor: file.NewExtractor(source, extractOpts...),
		logger:    logger,
	}
}

// Dialect returns paktype.DialectGame.
func (a *Archive) Dialect() paktype.Dialect {
	return paktype.DialectGame
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

// EntryPath returns the resolved path of entry id. An entry the directory
// table never names resolves to the empty string.
func (a *Archive) EntryPath(id uint64) (string, error) {
	if _, err := a.entry(id); err != nil {
		return "", err
	}
	if err := a.loadPaths(); err != nil {
		return "", err
	}
	if id >= uint64(len(a.paths)) {
		return "", paktype.InvalidDataf("entry %d is outside the %d-entry path table", id, len(a.paths))
	}
	return a.paths[id], nil
}

// EntryInfo returns metadata for entry id, including its resolved path.
func (a *Archive) EntryInfo(id uint64) (paktype.EntryInfo, error) {
	path, err := a.EntryPath(id)
	if err != nil {
		return paktype.EntryInfo{}, err
	}
	return a.entries[id].Info(id, path), nil
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

	size := a.source.Size()
	raw, err := trailer.Read(a.source, size)
	if err != nil {
		return err
	}

	// The index runs from its offset up to the trailer.
	offset := raw.IndexOffset ^ xorkey.IndexOffset
	fileLen := uint64(size) //nolint:gosec // trailer.Read rejects sizes below the trailer size
	if offset > fileLen || fileLen-offset < paktype.TrailerSize {
		return paktype.InvalidDataf("index offset %d is outside the %d-byte file", offset, fileLen)
	}
	indexSize := fileLen - offset - paktype.TrailerSize
	if indexSize > paktype.MaxIndexSize {
		return paktype.InvalidDataf("invalid index data size: %d", indexSize)
	}

	a.trailer = paktype.Trailer{
		Encrypted:   raw.Encrypted^xorkey.EncryptedFlag != 0,
		Version:     raw.Version,
		Hash:        raw.Hash,
		IndexSize:   indexSize,
		IndexOffset: offset,
	}
	a.stage = paktype.StageTrailerLoaded
	a.logger.Debug("trailer loaded",
		"encrypted", a.trailer.Encrypted,
		"version", a.trailer.Version,
		"index_offset", offset,
		"index_size", indexSize)
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
		if err := index.ReadEntry(c, &entries[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	a.index = buf
	a.tableStart = c.Offset()
	a.mountPoint = mountPoint
	a.entries = entries
	a.stage = paktype.StageEntriesLoaded
	a.logger.Debug("entries loaded", "mount_point", mountPoint, "entries", count, "table_offset", a.tableStart)
	return nil
}

func (a *Archive) loadPaths() error {
	if a.stage >= paktype.StagePathsLoaded {
		return nil
	}
	if err := a.loadEntries(); err != nil {
		return err
	}

	paths, err := readPathTable(cursor.NewAt(a.index, a.tableStart), a.mountPoint)
	if err != nil {
		return fmt.Errorf("path table: %w", err)
	}

	a.paths = paths
	// The path table was the last consumer of the raw index.
	a.index = nil
	a.stage = paktype.StagePathsLoaded
	a.logger.Debug("paths loaded", "paths", len(paths))
	return nil
}
