package gfp

import (
	"github.com/bmatcuk/doublestar/v4"

	pak "github.com/Benborbar/gfp/core"
)

// Errors re-exported from core.
var (
	// ErrInvalidData is returned when archive metadata or payload bytes are malformed.
	ErrInvalidData = pak.ErrInvalidData

	// ErrOutOfBounds is returned when a parse runs past the end of the index.
	ErrOutOfBounds = pak.ErrOutOfBounds

	// ErrDecompression is returned when a compressed block fails to inflate.
	ErrDecompression = pak.ErrDecompression

	// ErrSizeOverflow is returned when a size value overflows.
	ErrSizeOverflow = pak.ErrSizeOverflow

	// ErrUnsupportedDialect is returned for dialect tags other than 7 and 10.
	ErrUnsupportedDialect = pak.ErrUnsupportedDialect

	// ErrEntryNotFound is returned for entry ids outside the entry table.
	ErrEntryNotFound = pak.ErrEntryNotFound
)

// ErrBadPattern is returned when a glob pattern is malformed.
var ErrBadPattern = doublestar.ErrBadPattern
