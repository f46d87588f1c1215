// Package cursor provides a bounds-checked sequential reader over an index buffer.
package cursor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/Benborbar/gfp/core/internal/paktype"
)

// Cursor reads little-endian fields from a byte buffer and tracks the
// absolute offset of the next unread byte.
type Cursor struct {
	buf []byte
	off int
}

// New returns a cursor positioned at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewAt returns a cursor positioned at off, so that a later parse phase can
// resume where an earlier one stopped.
func NewAt(buf []byte, off int) *Cursor {
	return &Cursor{buf: buf, off: off}
}

// Offset returns the absolute offset of the next unread byte.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	if c.off >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.off
}

// Require returns ErrOutOfBounds unless at least n bytes remain.
func (c *Cursor) Require(n int) error {
	if n < 0 || n > c.Remaining() {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", paktype.ErrOutOfBounds, n, c.off, c.Remaining())
	}
	return nil
}

// Read returns the next n bytes and advances past them.
// The returned slice aliases the buffer.
func (c *Cursor) Read(n int) ([]byte, error) {
	if err := c.Require(n); err != nil {
		return nil, err
	}
	return c.Next(n), nil
}

// Next returns the next n bytes without bounds verification.
// Callers must have established n <= Remaining(), e.g. with Require.
func (c *Cursor) Next(n int) []byte {
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

// Skip advances past n bytes without reading them.
func (c *Cursor) Skip(n int) error {
	if err := c.Require(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint32 reads a little-endian uint32.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a little-endian int32.
func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err //nolint:gosec // two's complement reinterpretation
}

// Uint64 reads a little-endian uint64.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// CString reads n bytes holding a NUL-terminated UTF-8 string.
func (c *Cursor) CString(n int) (string, error) {
	b, err := c.Read(n)
	if err != nil {
		return "", err
	}
	return DecodeCString(b)
}

// DecodeCString converts b, which must end with its only NUL byte, into a string.
func DecodeCString(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", paktype.InvalidDataf("string of %d bytes is not NUL-terminated", len(b))
	}
	b = b[:len(b)-1]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return "", paktype.InvalidDataf("string has interior NUL at byte %d", i)
	}
	if !utf8.Valid(b) {
		return "", paktype.InvalidDataf("string is not valid UTF-8")
	}
	return string(b), nil
}
