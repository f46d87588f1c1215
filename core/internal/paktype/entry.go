package paktype

// TrailerSize is the size in bytes of the record at the end of every pak.
const TrailerSize = 45

// MaxIndexSize is the largest index block a pak may declare (50 MiB).
const MaxIndexSize = 52428800

// Trailer holds the deobfuscated fields of the pak trailer.
type Trailer struct {
	// Encrypted reports whether the index block is XOR-obfuscated.
	Encrypted bool

	// Version is the format version recorded by the writer.
	Version uint32

	// Hash is unused by the decoder. Avatar paks store it obfuscated.
	Hash [20]byte

	// IndexSize is the length in bytes of the index block.
	IndexSize uint64

	// IndexOffset is the absolute file offset of the index block.
	IndexOffset uint64
}

// CompressionBlock is one independently compressed chunk of an entry's payload.
// Start and End are absolute file offsets.
type CompressionBlock struct {
	Start uint64
	End   uint64
}

// Size returns the number of stored bytes in the block.
// Callers must check End >= Start first.
func (b CompressionBlock) Size() uint64 {
	return b.End - b.Start
}

// Entry describes one file stored in a pak.
type Entry struct {
	// Path is the inline path of avatar (dialect 7) entries.
	// Game (dialect 10) entries resolve their paths through the directory table.
	Path string

	// FileOffset is the absolute offset of the entry's duplicate header.
	// Raw payloads start 74 bytes after it.
	FileOffset uint64

	// FileSize is the decoded size of the entry.
	FileSize uint64

	// CompressionMethod is the raw compression_method field.
	CompressionMethod uint32

	// CompressedLength is the stored size of the entry.
	CompressedLength uint64

	// CompressedBlockSize is the decoded size of one compression block.
	CompressedBlockSize uint32

	// Encrypted reports whether the payload bytes are XOR-obfuscated.
	Encrypted bool

	// Blocks lists the compression blocks in payload order.
	// It is empty iff CompressionMethod is zero.
	Blocks []CompressionBlock
}

// Compression returns the entry's compression method.
func (e *Entry) Compression() Compression {
	return Compression(e.CompressionMethod)
}

// EntryInfo is a read-only summary of an entry.
type EntryInfo struct {
	ID             uint64
	Path           string
	Size           uint64
	CompressedSize uint64
	Compression    Compression
	Blocks         int
	Encrypted      bool
}

// Info builds an EntryInfo for the entry with the given id and resolved path.
func (e *Entry) Info(id uint64, path string) EntryInfo {
	return EntryInfo{
		ID:             id,
		Path:           path,
		Size:           e.FileSize,
		CompressedSize: e.CompressedLength,
		Compression:    e.Compression(),
		Blocks:         len(e.Blocks),
		Encrypted:      e.Encrypted,
	}
}
