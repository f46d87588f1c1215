package pak

import (
	"bytes"
	"context"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benborbar/gfp/core/testutil"
)

var goldenEntries = []testutil.TestEntry{
	{Path: "Game/Config/Default.ini", Data: []byte("[Core]\nLevel=Warn\n")},
	{Path: "Game/Content/hero.uasset", Data: bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 40000), Compressed: true},
	{Path: "Game/Content/hero.uexp", Data: bytes.Repeat([]byte("export table "), 3000), Compressed: true, Encrypted: true, BlockSize: 16 << 10},
	{Path: "Game/Content/名字.txt", Data: []byte("utf-16 named"), Encrypted: true, UTF16: true},
}

func writePak(t *testing.T, dialect Dialect, encryptIndex bool) string {
	t.Helper()
	image := testutil.BuildPak(t, testutil.TestPak{
		Dialect:      dialect,
		Version:      uint32(dialect),
		MountPoint:   "../../../",
		EncryptIndex: encryptIndex,
		Entries:      goldenEntries,
	})
	path := filepath.Join(t.TempDir(), "test.pak")
	require.NoError(t, os.WriteFile(path, image, 0o600))
	return path
}

func wantPath(dialect Dialect, entryPath string) string {
	if dialect == DialectGame {
		return "../../../" + entryPath
	}
	return entryPath
}

func TestOpen_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, dialect := range []Dialect{DialectAvatar, DialectGame} {
		for _, mmap := range []bool{false, true} {
			t.Run(dialect.String(), func(t *testing.T) {
				t.Parallel()

				a, err := Open(writePak(t, dialect, true), dialect, WithMmap(mmap))
				require.NoError(t, err)
				defer a.Close()

				assert.Equal(t, dialect, a.Dialect())
				assert.Equal(t, StageUnopened, a.Stage())

				version, err := a.Version()
				require.NoError(t, err)
				assert.Equal(t, uint32(dialect), version)
				encrypted, err := a.Encrypted()
				require.NoError(t, err)
				assert.True(t, encrypted)

				count, err := a.EntryCount()
				require.NoError(t, err)
				require.Equal(t, uint64(len(goldenEntries)), count)

				for id, want := range goldenEntries {
					path, err := a.EntryPath(uint64(id))
					require.NoError(t, err)
					assert.NotEmpty(t, path)
					assert.Equal(t, wantPath(dialect, want.Path), path)

					var out bytes.Buffer
					require.NoError(t, a.ExtractEntry(uint64(id), &out))
					assert.True(t, bytes.Equal(want.Data, out.Bytes()), "entry %d", id)
				}
			})
		}
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.pak"), DialectGame)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = Open(writePak(t, DialectGame, false), Dialect(8))
	assert.ErrorIs(t, err, ErrUnsupportedDialect)

	_, err = OpenSource(testutil.NewMockByteSource(nil), Dialect(0))
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestOpenSource_SharedPool(t *testing.T) {
	t.Parallel()

	pool := NewDecompressPool()
	for _, dialect := range []Dialect{DialectAvatar, DialectGame} {
		image := testutil.BuildPak(t, testutil.TestPak{Dialect: dialect, Entries: goldenEntries})
		a, err := OpenSource(testutil.NewMockByteSource(image), dialect, WithDecompressPool(pool))
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, a.ExtractEntry(2, &out))
		assert.Equal(t, goldenEntries[2].Data, out.Bytes())
		require.NoError(t, a.Close())
	}
}

func TestOpenSource_MaxBlockSize(t *testing.T) {
	t.Parallel()

	image := testutil.BuildPak(t, testutil.TestPak{Dialect: DialectGame, Entries: goldenEntries})
	a, err := OpenSource(testutil.NewMockByteSource(image), DialectGame, WithMaxBlockSize(16))
	require.NoError(t, err)

	assert.ErrorIs(t, a.ExtractEntry(1, &bytes.Buffer{}), ErrSizeOverflow)
	// Raw entries have no blocks and are unaffected.
	require.NoError(t, a.ExtractEntry(0, &bytes.Buffer{}))
}

func TestExtractAll(t *testing.T) {
	t.Parallel()

	for _, dialect := range []Dialect{DialectAvatar, DialectGame} {
		t.Run(dialect.String(), func(t *testing.T) {
			t.Parallel()

			a, err := Open(writePak(t, dialect, false), dialect)
			require.NoError(t, err)
			defer a.Close()

			var events []ProgressEvent
			dest := filepath.Join(t.TempDir(), "out")
			stats, err := ExtractAll(context.Background(), a, dest,
				ExtractWithProgress("test.pak", func(ev ProgressEvent) { events = append(events, ev) }))
			require.NoError(t, err)
			assert.Equal(t, len(goldenEntries), stats.Processed)
			assert.Len(t, events, len(goldenEntries))

			for _, e := range goldenEntries {
				got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(e.Path)))
				require.NoError(t, err)
				assert.Equal(t, e.Data, got)
			}

			stats, err = ExtractAll(context.Background(), a, dest)
			require.NoError(t, err)
			assert.Equal(t, len(goldenEntries), stats.Skipped)
		})
	}
}

func TestExtractEntryToPath(t *testing.T) {
	t.Parallel()

	a, err := Open(writePak(t, DialectGame, false), DialectGame)
	require.NoError(t, err)
	defer a.Close()

	dest := filepath.Join(t.TempDir(), "nested", "dir", "hero.uexp")
	require.NoError(t, ExtractEntryToPath(a, 2, dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, goldenEntries[2].Data, got)

	// Replacing an existing file works; a directory is refused.
	require.NoError(t, ExtractEntryToPath(a, 0, dest))
	got, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, goldenEntries[0].Data, got)

	assert.Error(t, ExtractEntryToPath(a, 0, filepath.Dir(dest)))
	assert.ErrorIs(t, ExtractEntryToPath(a, 99, dest), ErrEntryNotFound)

	left, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, left, 1, "temp files are cleaned up")
}

func TestEntryDigest(t *testing.T) {
	t.Parallel()

	image := testutil.BuildPak(t, testutil.TestPak{Dialect: DialectAvatar, Entries: goldenEntries})
	a, err := OpenSource(testutil.NewMockByteSource(image), DialectAvatar)
	require.NoError(t, err)

	for id, e := range goldenEntries {
		d, size, err := EntryDigest(a, uint64(id))
		require.NoError(t, err)
		assert.Equal(t, digest.FromBytes(e.Data), d)
		assert.Equal(t, uint64(len(e.Data)), size)
	}
}

// Hand-assembled paks. Trailers are literal bytes with every obfuscation
// constant already applied, so these fixtures do not share code with the
// decoder or with testutil.BuildPak.

func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func le64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

// entryRecord is the 69-byte record plus block size and encrypted flag of a
// raw entry at offset 0.
func entryRecord(size uint64) []byte {
	var b []byte
	b = append(b, make([]byte, 20)...) // hash
	b = append(b, le64(0)...)          // file offset
	b = append(b, le64(size)...)       // file size
	b = append(b, le32(0)...)          // compression method
	b = append(b, le64(size)...)       // compressed length
	b = append(b, make([]byte, 21)...) // reserved
	b = append(b, le32(0)...)          // block size
	return append(b, 0)                // encrypted
}

func mountHeader() []byte {
	b := le32(13) // 9-byte prefix + "../\x00"
	b = append(b, make([]byte, 9)...)
	return append(b, "../\x00"...)
}

func handAssembledGamePak() []byte {
	image := make([]byte, 74)         // duplicate entry header
	image = append(image, "hello"...) // payload, index starts at 79

	image = append(image, mountHeader()...)
	image = append(image, le32(1)...) // entry count
	image = append(image, entryRecord(5)...)
	image = append(image, le64(1)...) // path table entry count
	image = append(image, le64(1)...) // directories
	image = append(image, le32(6)...)
	image = append(image, "Game/\x00"...)
	image = append(image, le64(1)...) // files in directory
	image = append(image, le32(7)...)
	image = append(image, "hi.txt\x00"...)
	image = append(image, le32(0)...) // entry id

	return append(image,
		0x6C,                   // not encrypted
		0xE1, 0x12, 0x6F, 0x5A, // magic
		0x0A, 0x00, 0x00, 0x00, // version 10
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // hash
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // index size, unused
		0x42, 0x02, 0x6B, 0xAA, 0x7F, 0xF3, 0x4A, 0xD7, // index offset 79
	)
}

func handAssembledAvatarPak() []byte {
	image := make([]byte, 74)
	image = append(image, "avatar"...) // index starts at 80

	var index []byte
	index = append(index, mountHeader()...)
	index = append(index, le32(1)...)
	index = append(index, le32(6)...)
	index = append(index, "a.txt\x00"...)
	index = append(index, entryRecord(6)...)
	for i := range index {
		index[i] ^= 0x79
	}
	image = append(image, index...)

	return append(image,
		0x6D,                   // encrypted
		0xE1, 0x12, 0x6F, 0x5A, // magic
		0x07, 0x00, 0x00, 0x00, // version 7
		0x9B, 0x31, 0x24, 0x61, 0xCB, 0xD3, 0xF5, 0x18, 0x20, 0xA1,
		0x1B, 0xFB, 0xFD, 0x40, 0xB6, 0x00, 0x1E, 0x53, 0x5C, 0x24, // zero hash
		0x00, 0x70, 0x8B, 0x29, 0xE3, 0xB0, 0x24, 0x89, // index size 105
		0x5D, 0x02, 0x6B, 0xAA, 0x7F, 0xF3, 0x4A, 0xD7, // index offset 80
	)
}

func TestOpenSource_HandAssembled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		image   []byte
		trailer Trailer
		path    string
		content string
	}{
		{
			name:    "game",
			dialect: DialectGame,
			image:   handAssembledGamePak(),
			trailer: Trailer{Version: 10, IndexSize: 144, IndexOffset: 79},
			path:    "../Game/hi.txt",
			content: "hello",
		},
		{
			name:    "avatar",
			dialect: DialectAvatar,
			image:   handAssembledAvatarPak(),
			trailer: Trailer{Encrypted: true, Version: 7, IndexSize: 105, IndexOffset: 80},
			path:    "a.txt",
			content: "avatar",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := OpenSource(testutil.NewMockByteSource(tt.image), tt.dialect)
			require.NoError(t, err)

			trailer, err := a.Trailer()
			require.NoError(t, err)
			assert.Equal(t, tt.trailer, trailer)

			mount, err := a.MountPoint()
			require.NoError(t, err)
			assert.Equal(t, "../", mount)

			count, err := a.EntryCount()
			require.NoError(t, err)
			require.Equal(t, uint64(1), count)

			path, err := a.EntryPath(0)
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)

			var out bytes.Buffer
			require.NoError(t, a.ExtractEntry(0, &out))
			assert.Equal(t, tt.content, out.String())
		})
	}
}
