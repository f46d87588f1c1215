package pak

import "github.com/Benborbar/gfp/core/internal/paktype"

// Sentinel errors re-exported from internal/paktype.
var (
	// ErrInvalidData is returned when archive metadata or payload bytes are malformed.
	ErrInvalidData = paktype.ErrInvalidData

	// ErrOutOfBounds is returned when a parse runs past the end of the index.
	// It wraps ErrInvalidData.
	ErrOutOfBounds = paktype.ErrOutOfBounds

	// ErrDecompression is returned when a compressed block fails to inflate.
	ErrDecompression = paktype.ErrDecompression

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = paktype.ErrSizeOverflow

	// ErrUnsupportedDialect is returned for dialect tags other than 7 and 10.
	ErrUnsupportedDialect = paktype.ErrUnsupportedDialect

	// ErrEntryNotFound is returned for entry ids outside the entry table.
	ErrEntryNotFound = paktype.ErrEntryNotFound
)
