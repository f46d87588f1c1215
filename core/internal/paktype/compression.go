package paktype

// Compression identifies the codec recorded in an entry's compression_method field.
type Compression uint32

const (
	CompressionNone Compression = iota
	CompressionZlib
)

// String returns the human-readable name of the compression method.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	default:
		return "unknown"
	}
}
