package paktype

import (
	"errors"
	"fmt"
)

// Sentinel errors for pak operations.
var (
	// ErrInvalidData is returned when archive metadata or payload bytes are malformed.
	ErrInvalidData = errors.New("pak: invalid data")

	// ErrOutOfBounds is returned when a read runs past the end of a buffer.
	// It wraps ErrInvalidData.
	ErrOutOfBounds = fmt.Errorf("%w: read past end of buffer", ErrInvalidData)

	// ErrDecompression is returned when a compressed block fails to inflate.
	ErrDecompression = errors.New("pak: decompression failed")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("pak: size overflow")

	// ErrUnsupportedDialect is returned for dialect tags other than 7 and 10.
	ErrUnsupportedDialect = errors.New("pak: unsupported dialect")

	// ErrEntryNotFound is returned for entry ids outside the entry table.
	ErrEntryNotFound = errors.New("pak: entry not found")
)

// InvalidDataf formats a message and wraps it with ErrInvalidData.
func InvalidDataf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, fmt.Sprintf(format, args...))
}
