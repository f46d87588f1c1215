package pak

import (
	"fmt"
	"io"
	"os"

	"github.com/Benborbar/gfp/core/internal/avatarpak"
	"github.com/Benborbar/gfp/core/internal/file"
	"github.com/Benborbar/gfp/core/internal/gamepak"
	"github.com/Benborbar/gfp/core/internal/paktype"
)

// Re-export types from internal/paktype for public API.
type (
	// Dialect selects one of the two known pak layouts.
	Dialect = paktype.Dialect

	// Trailer holds the deobfuscated trailer fields.
	Trailer = paktype.Trailer

	// EntryInfo is a read-only summary of an entry.
	EntryInfo = paktype.EntryInfo

	// Compression identifies the compression method of an entry.
	Compression = paktype.Compression

	// Stage is the load state of an archive.
	Stage = paktype.Stage

	// ProgressEvent represents a progress update during batch operations.
	ProgressEvent = paktype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = paktype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = paktype.ProgressFunc
)

// Re-export dialect tags.
const (
	DialectAvatar = paktype.DialectAvatar
	DialectGame   = paktype.DialectGame
)

// Re-export compression constants.
const (
	CompressionNone = paktype.CompressionNone
	CompressionZlib = paktype.CompressionZlib
)

// Re-export archive load stages.
const (
	StageUnopened      = paktype.StageUnopened
	StageTrailerLoaded = paktype.StageTrailerLoaded
	StageEntriesLoaded = paktype.StageEntriesLoaded
	StagePathsLoaded   = paktype.StagePathsLoaded
)

// Re-export progress stage constants.
const (
	StageOpening    = paktype.StageOpening
	StageIndexing   = paktype.StageIndexing
	StageExtracting = paktype.StageExtracting
	StageDone       = paktype.StageDone
)

// TrailerSize is the size of the record at the end of every pak.
const TrailerSize = paktype.TrailerSize

// Archive is the read contract shared by both dialects.
//
// Entry ids are zero-based positions in the entry table and are stable for
// the archive's lifetime. Every accessor loads the stages it needs; a stage
// that fails to load stays unloaded and fails the same way on retry.
type Archive interface {
	// Dialect returns the layout the archive was opened with.
	Dialect() Dialect

	// Stage returns the furthest stage loaded so far.
	Stage() Stage

	// Trailer returns the deobfuscated trailer.
	Trailer() (Trailer, error)

	// Encrypted reports whether the index block is obfuscated.
	Encrypted() (bool, error)

	// Version returns the format version stored in the trailer.
	Version() (uint32, error)

	// MountPoint returns the index mount point.
	MountPoint() (string, error)

	// EntryCount returns the number of entries.
	EntryCount() (uint64, error)

	// EntryPath returns the resolved path of an entry.
	EntryPath(id uint64) (string, error)

	// EntryInfo returns metadata for an entry, including its resolved path.
	EntryInfo(id uint64) (EntryInfo, error)

	// ExtractEntry writes the decoded payload of an entry to w.
	// Output is streamed one block or chunk at a time.
	ExtractEntry(id uint64, w io.Writer) error

	// Close releases the underlying file, if the archive owns one.
	Close() error
}

// Interface compliance.
var (
	_ Archive = (*avatarpak.Archive)(nil)
	_ Archive = (*gamepak.Archive)(nil)
)

// ByteSource provides random access to a pak.
//
// Implementations exist for local files, memory-mapped files and HTTP range
// requests. SourceID must return a stable identifier for the underlying content.
type ByteSource = file.ByteSource

// Open opens the pak at path with the given dialect.
//
// Only the file is opened; the trailer is read on first use. Close releases
// the file.
func Open(path string, dialect Dialect, opts ...Option) (Archive, error) {
	if !dialect.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDialect, int(dialect))
	}
	cfg := newConfig(opts)

	if cfg.mmap {
		src, err := openMmapSource(path)
		if err != nil {
			return nil, err
		}
		return newArchive(src, dialect, src, cfg), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := newFileSource(f, "")
	if err != nil {
		_ = f.Close() //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return newArchive(src, dialect, f, cfg), nil
}

// OpenSource returns an Archive reading from src with the given dialect.
//
// The archive does not own src, and its Close is a no-op.
func OpenSource(src ByteSource, dialect Dialect, opts ...Option) (Archive, error) {
	if !dialect.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDialect, int(dialect))
	}
	return newArchive(src, dialect, nil, newConfig(opts)), nil
}

func newArchive(src ByteSource, dialect Dialect, closer io.Closer, cfg *config) Archive {
	logger := cfg.log().With("source", src.SourceID())
	extractOpts := cfg.extractorOptions()

	if dialect == DialectAvatar {
		return avatarpak.New(src,
			avatarpak.WithLogger(logger),
			avatarpak.WithCloser(closer),
			avatarpak.WithExtractorOptions(extractOpts...))
	}
	return gamepak.New(src,
		gamepak.WithLogger(logger),
		gamepak.WithCloser(closer),
		gamepak.WithExtractorOptions(extractOpts...))
}
