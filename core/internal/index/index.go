package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Benborbar/gfp/core/internal/cursor"
	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/sizing"
	"github.com/Benborbar/gfp/core/internal/utf16le"
	"github.com/Benborbar/gfp/core/internal/xorkey"
)

const (
	// mountPrefixSize is the unused prefix counted in the mount point length.
	mountPrefixSize = 9

	// recordSize covers hash, offset, size, method, compressed length and reserved bytes.
	recordSize = 20 + 8 + 8 + 4 + 8 + 21

	// MinEntrySize is the smallest encoded entry: a record without blocks,
	// the block size and the encrypted flag.
	MinEntrySize = recordSize + 4 + 1

	blockSize = 16
)

// ReadBlock reads the index block located by t. If the trailer marks the
// index encrypted, the stream key is removed before returning.
func ReadBlock(r io.ReaderAt, t paktype.Trailer) ([]byte, error) {
	size, err := sizing.ToInt(t.IndexSize)
	if err != nil {
		return nil, err
	}
	off, err := sizing.ToInt64(t.IndexOffset)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	n, err := r.ReadAt(buf, off)
	if n < size {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read index at %d: %w", off, err)
	}
	if t.Encrypted {
		xorkey.Bytes(buf, xorkey.Stream)
	}
	return buf, nil
}

// ReadMountPoint reads the mount point header at the start of an index block.
func ReadMountPoint(c *cursor.Cursor) (string, error) {
	length, err := c.Uint32()
	if err != nil {
		return "", err
	}
	if length < mountPrefixSize {
		return "", paktype.InvalidDataf("mount point length %d is shorter than its %d-byte prefix", length, mountPrefixSize)
	}
	if err := c.Skip(mountPrefixSize); err != nil {
		return "", err
	}
	n := int64(length) - mountPrefixSize
	if n > int64(c.Remaining()) {
		return "", c.Require(int(min(n, math.MaxInt32)))
	}
	return c.CString(int(n))
}

// ReadEntryCount reads the signed entry count that follows the mount point.
func ReadEntryCount(c *cursor.Cursor) (int, error) {
	count, err := c.Int32()
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, paktype.InvalidDataf("negative entry count %d", count)
	}
	if int64(count)*MinEntrySize > int64(c.Remaining()) {
		return 0, paktype.InvalidDataf("entry count %d exceeds the %d bytes left in the index", count, c.Remaining())
	}
	return int(count), nil
}

// ReadEntry decodes the record shared by both dialects into e.
// The 20-byte hash and the 21 reserved bytes are discarded.
func ReadEntry(c *cursor.Cursor, e *paktype.Entry) error {
	if err := c.Require(recordSize); err != nil {
		return err
	}
	c.Next(20)
	e.FileOffset = binary.LittleEndian.Uint64(c.Next(8))
	e.FileSize = binary.LittleEndian.Uint64(c.Next(8))
	e.CompressionMethod = binary.LittleEndian.Uint32(c.Next(4))
	e.CompressedLength = binary.LittleEndian.Uint64(c.Next(8))
	c.Next(21)

	e.Blocks = nil
	if e.CompressionMethod != 0 {
		count, err := c.Uint32()
		if err != nil {
			return err
		}
		if int64(count)*blockSize > int64(c.Remaining()) {
			return c.Require(int(min(int64(count)*blockSize, math.MaxInt32)))
		}
		e.Blocks = make([]paktype.CompressionBlock, count)
		for i := range e.Blocks {
			e.Blocks[i].Start = binary.LittleEndian.Uint64(c.Next(8))
			e.Blocks[i].End = binary.LittleEndian.Uint64(c.Next(8))
		}
	}

	var err error
	if e.CompressedBlockSize, err = c.Uint32(); err != nil {
		return err
	}
	flag, err := c.Uint8()
	if err != nil {
		return err
	}
	e.Encrypted = flag != 0
	return nil
}

// ReadName reads a name whose size was given by a preceding signed field.
// A positive size counts UTF-8 bytes; a negative size counts UTF-16LE code
// units. Either form must be NUL-terminated.
func ReadName(c *cursor.Cursor, size int32) (string, error) {
	if size >= 0 {
		return c.CString(int(size))
	}

	n := -int64(size) * 2
	if n > int64(c.Remaining()) {
		return "", c.Require(int(min(n, math.MaxInt32)))
	}
	b, err := utf16le.ToUTF8(c.Next(int(n)))
	if err != nil {
		return "", paktype.InvalidDataf("name: %v", err)
	}
	return cursor.DecodeCString(b)
}
