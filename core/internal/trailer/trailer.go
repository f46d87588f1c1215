// Package trailer reads the fixed 45-byte record at the end of a pak.
//
// The fields are returned exactly as stored; each dialect applies its own
// deobfuscation.
package trailer

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Benborbar/gfp/core/internal/cursor"
	"github.com/Benborbar/gfp/core/internal/paktype"
)

// Size is the length of the trailer record.
const Size = paktype.TrailerSize

// Raw is the trailer as stored on disk.
type Raw struct {
	Encrypted   uint8
	Magic       uint32
	Version     uint32
	Hash        [20]byte
	IndexSize   uint64
	IndexOffset uint64
}

// Decode parses a trailer from b, which must hold exactly Size bytes.
func Decode(b []byte) (Raw, error) {
	var raw Raw
	if len(b) != Size {
		return raw, paktype.InvalidDataf("trailer is %d bytes, want %d", len(b), Size)
	}

	// The length check above covers every field.
	c := cursor.New(b)
	raw.Encrypted = c.Next(1)[0]
	raw.Magic = binary.LittleEndian.Uint32(c.Next(4))
	raw.Version = binary.LittleEndian.Uint32(c.Next(4))
	copy(raw.Hash[:], c.Next(len(raw.Hash)))
	raw.IndexSize = binary.LittleEndian.Uint64(c.Next(8))
	raw.IndexOffset = binary.LittleEndian.Uint64(c.Next(8))
	return raw, nil
}

// Read reads and decodes the trailer of a source of the given size.
func Read(r io.ReaderAt, size int64) (Raw, error) {
	if size < Size {
		return Raw{}, paktype.InvalidDataf("file is %d bytes, too small for a %d-byte trailer", size, Size)
	}

	buf := make([]byte, Size)
	off := size - Size
	n, err := r.ReadAt(buf, off)
	if n < Size {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Raw{}, fmt.Errorf("read trailer at %d: %w", off, err)
	}
	return Decode(buf)
}
