package file

import (
	"io"

	"github.com/Benborbar/gfp/core/internal/paktype"
)

// Re-export types from paktype to avoid import changes throughout file.
type (
	Entry            = paktype.Entry
	CompressionBlock = paktype.CompressionBlock
)

// ByteSource provides random access to a pak.
// SourceID must return a stable identifier for the underlying content.
type ByteSource interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}
