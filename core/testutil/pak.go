package testutil

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"

	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/xorkey"
)

// TestEntry describes one file to store in a generated pak.
type TestEntry struct {
	// Path is the full entry path. For game paks it is split at the last '/'
	// into a directory and a file name; the mount point is not part of it.
	Path string
	Data []byte

	// Compressed stores Data as zlib blocks of BlockSize decoded bytes.
	Compressed bool
	BlockSize  int

	// Encrypted XORs the stored payload bytes.
	Encrypted bool

	// UTF16 stores the name as UTF-16LE with a negative size field.
	UTF16 bool

	// Method overrides the compression_method written for compressed entries.
	Method uint32
}

// TestPak describes a generated pak.
type TestPak struct {
	Dialect      paktype.Dialect
	Version      uint32
	MountPoint   string
	EncryptIndex bool
	Entries      []TestEntry

	// EntryIDs overrides the entry ids written in the game path table,
	// indexed like Entries.
	EntryIDs []int32

	// IndexSize overrides the index size stored in an avatar trailer.
	IndexSize uint64
}

const (
	rawHeaderSize    = 74
	defaultBlockSize = 64 << 10
	trailerMagic     = 0x5A6F12E1
)

type builtEntry struct {
	offset    uint64
	size      uint64
	method    uint32
	stored    uint64
	blockSize uint32
	blocks    []paktype.CompressionBlock
}

// BuildPak encodes p into a complete pak file image.
//
// Payloads are laid out first, each behind a 74-byte header, followed by the
// index block and the trailer.
func BuildPak(tb testing.TB, p TestPak) []byte {
	tb.Helper()

	var buf bytes.Buffer
	built := make([]builtEntry, len(p.Entries))
	for i, e := range p.Entries {
		built[i] = writePayload(tb, &buf, e)
	}

	indexOffset := uint64(buf.Len())
	index := buildIndex(p, built)
	if p.EncryptIndex {
		xorkey.Bytes(index, xorkey.Stream)
	}
	buf.Write(index)

	buf.Write(buildTrailer(p, indexOffset, uint64(len(index))))
	return buf.Bytes()
}

func writePayload(tb testing.TB, buf *bytes.Buffer, e TestEntry) builtEntry {
	tb.Helper()

	b := builtEntry{
		offset: uint64(buf.Len()),
		size:   uint64(len(e.Data)),
	}
	buf.Write(bytes.Repeat([]byte{0xEE}, rawHeaderSize))

	if !e.Compressed {
		data := bytes.Clone(e.Data)
		if e.Encrypted {
			xorkey.Bytes(data, xorkey.Stream)
		}
		buf.Write(data)
		b.stored = uint64(len(data))
		return b
	}

	b.method = uint32(paktype.CompressionZlib)
	if e.Method != 0 {
		b.method = e.Method
	}
	blockSize := e.BlockSize
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	b.blockSize = uint32(blockSize) //nolint:gosec // test sizes are small

	for chunk := range chunks(e.Data, blockSize) {
		stored := deflate(tb, chunk)
		if e.Encrypted {
			xorkey.Bytes(stored, xorkey.Stream)
		}
		start := uint64(buf.Len())
		buf.Write(stored)
		b.blocks = append(b.blocks, paktype.CompressionBlock{Start: start, End: uint64(buf.Len())})
		b.stored += uint64(len(stored))
	}
	return b
}

// chunks yields data in pieces of size n. Empty data yields one empty piece
// so every compressed entry has at least one block.
func chunks(data []byte, n int) func(func([]byte) bool) {
	return func(yield func([]byte) bool) {
		if len(data) == 0 {
			yield(nil)
			return
		}
		for len(data) > 0 {
			k := min(n, len(data))
			if !yield(data[:k]) {
				return
			}
			data = data[k:]
		}
	}
}

func deflate(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("deflate: %v", err)
	}
	return out.Bytes()
}

func buildIndex(p TestPak, built []builtEntry) []byte {
	var w writer
	mount := p.MountPoint
	w.u32(uint32(9 + len(mount) + 1)) //nolint:gosec // test sizes are small
	w.raw(make([]byte, 9))
	w.cstring(mount)
	w.u32(uint32(len(p.Entries))) //nolint:gosec // test sizes are small

	for i, e := range p.Entries {
		if p.Dialect == paktype.DialectAvatar {
			w.name(e.Path, e.UTF16)
		}
		b := built[i]
		w.raw(make([]byte, 20))
		w.u64(b.offset)
		w.u64(b.size)
		w.u32(b.method)
		w.u64(b.stored)
		w.raw(make([]byte, 21))
		if b.method != 0 {
			w.u32(uint32(len(b.blocks))) //nolint:gosec // test sizes are small
			for _, blk := range b.blocks {
				w.u64(blk.Start)
				w.u64(blk.End)
			}
		}
		w.u32(b.blockSize)
		if e.Encrypted {
			w.u8(1)
		} else {
			w.u8(0)
		}
	}

	if p.Dialect == paktype.DialectGame {
		writePathTable(&w, p)
	}
	return w.buf.Bytes()
}

type dirGroup struct {
	name  string
	files []int
}

func writePathTable(w *writer, p TestPak) {
	var dirs []*dirGroup
	byName := make(map[string]*dirGroup)
	for i, e := range p.Entries {
		dir := e.Path[:strings.LastIndex(e.Path, "/")+1]
		g, ok := byName[dir]
		if !ok {
			g = &dirGroup{name: dir}
			byName[dir] = g
			dirs = append(dirs, g)
		}
		g.files = append(g.files, i)
	}

	w.u64(uint64(len(p.Entries)))
	w.u64(uint64(len(dirs)))
	for _, g := range dirs {
		w.u32(uint32(len(g.name) + 1)) //nolint:gosec // test sizes are small
		w.cstring(g.name)
		w.u64(uint64(len(g.files)))
		for _, i := range g.files {
			e := p.Entries[i]
			w.name(e.Path[len(g.name):], e.UTF16)
			id := int32(i) //nolint:gosec // test sizes are small
			if i < len(p.EntryIDs) {
				id = p.EntryIDs[i]
			}
			w.u32(uint32(id)) //nolint:gosec // two's complement on the wire
		}
	}
}

func buildTrailer(p TestPak, indexOffset, indexSize uint64) []byte {
	var w writer
	var flag byte
	if p.EncryptIndex {
		flag = 1
	}
	w.u8(flag ^ xorkey.EncryptedFlag)
	w.u32(trailerMagic)
	w.u32(p.Version)

	var hash [20]byte
	size := indexSize
	if p.IndexSize != 0 {
		size = p.IndexSize
	}
	if p.Dialect == paktype.DialectAvatar {
		xorkey.HashBytes(&hash)
		size ^= xorkey.IndexSize
	} else {
		size = 0
	}
	w.raw(hash[:])
	w.u64(size)
	w.u64(indexOffset ^ xorkey.IndexOffset)
	return w.buf.Bytes()
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) raw(b []byte) { w.buf.Write(b) }
func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }

func (w *writer) u32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (w *writer) u64(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (w *writer) cstring(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// name writes a signed size field and a NUL-terminated name.
func (w *writer) name(s string, wide bool) {
	if !wide {
		w.u32(uint32(len(s) + 1)) //nolint:gosec // test sizes are small
		w.cstring(s)
		return
	}
	units := append(utf16.Encode([]rune(s)), 0)
	w.u32(uint32(-int32(len(units)))) //nolint:gosec // two's complement on the wire
	for _, u := range units {
		w.buf.Write(binary.LittleEndian.AppendUint16(nil, u))
	}
}
