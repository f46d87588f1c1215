package gamepak

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/xorkey"
	"github.com/Benborbar/gfp/core/testutil"
)

var (
	configData = []byte("[Core]\nLevel=1\n")
	levelData  = bytes.Repeat([]byte("level geometry "), 2000)
)

func samplePak() testutil.TestPak {
	return testutil.TestPak{
		Dialect:    paktype.DialectGame,
		Version:    10,
		MountPoint: "../../../",
		Entries: []testutil.TestEntry{
			{Path: "Game/Config/Default.ini", Data: configData},
			{Path: "Game/Maps/level.umap", Data: levelData, Compressed: true, BlockSize: 8192},
			{Path: "Game/Maps/level.uexp", Data: levelData, Compressed: true, Encrypted: true},
			{Path: "Game/Config/中文.ini", Data: configData, Encrypted: true, UTF16: true},
			{Path: "root.txt", Data: nil},
		},
	}
}

func openPak(t *testing.T, p testutil.TestPak) *Archive {
	t.Helper()
	return New(testutil.NewMockByteSource(testutil.BuildPak(t, p)))
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, encryptIndex := range []bool{false, true} {
		p := samplePak()
		p.EncryptIndex = encryptIndex
		a := openPak(t, p)

		encrypted, err := a.Encrypted()
		require.NoError(t, err)
		assert.Equal(t, encryptIndex, encrypted)
		version, err := a.Version()
		require.NoError(t, err)
		assert.Equal(t, uint32(10), version)

		count, err := a.EntryCount()
		require.NoError(t, err)
		require.Equal(t, uint64(len(p.Entries)), count)

		for id, want := range p.Entries {
			path, err := a.EntryPath(uint64(id))
			require.NoError(t, err)
			assert.Equal(t, "../../../"+want.Path, path)

			var out bytes.Buffer
			require.NoError(t, a.ExtractEntry(uint64(id), &out))
			assert.Equal(t, len(want.Data), out.Len(), "entry %d", id)
			assert.True(t, bytes.Equal(want.Data, out.Bytes()), "entry %d", id)
		}
		assert.Equal(t, paktype.StagePathsLoaded, a.Stage())
	}
}

func TestArchive_ExtractWithoutPaths(t *testing.T) {
	t.Parallel()

	a := openPak(t, samplePak())
	var out bytes.Buffer
	require.NoError(t, a.ExtractEntry(1, &out))
	assert.Equal(t, levelData, out.Bytes())
	assert.Equal(t, paktype.StageEntriesLoaded, a.Stage())
}

func TestArchive_EntryInfo(t *testing.T) {
	t.Parallel()

	a := openPak(t, samplePak())
	info, err := a.EntryInfo(2)
	require.NoError(t, err)
	assert.Equal(t, "../../../Game/Maps/level.uexp", info.Path)
	assert.Equal(t, uint64(len(levelData)), info.Size)
	assert.Equal(t, paktype.CompressionZlib, info.Compression)
	assert.Equal(t, 1, info.Blocks)
	assert.True(t, info.Encrypted)

	_, err = a.EntryInfo(5)
	assert.ErrorIs(t, err, paktype.ErrEntryNotFound)
}

func TestArchive_PathTableErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ids  []int32
		msg  string
	}{
		{name: "negative entry id", ids: []int32{0, -1}, msg: "negative entry_id: -1"},
		{name: "entry id past table", ids: []int32{0, 1, 2, 3, 5}, msg: "outside the 5-entry path table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := samplePak()
			p.EntryIDs = tt.ids
			a := openPak(t, p)

			_, err := a.EntryPath(0)
			require.Error(t, err)
			assert.ErrorIs(t, err, paktype.ErrInvalidData)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, paktype.StageEntriesLoaded, a.Stage())

			// Retrying fails the same way; extraction is unaffected.
			_, again := a.EntryPath(0)
			assert.Equal(t, err.Error(), again.Error())
			var out bytes.Buffer
			require.NoError(t, a.ExtractEntry(0, &out))
			assert.Equal(t, configData, out.Bytes())
		})
	}
}

func TestArchive_UnnamedEntry(t *testing.T) {
	t.Parallel()

	p := samplePak()
	// Entry 4 is never named; entry 3's record names slot 0 again.
	p.EntryIDs = []int32{0, 1, 2, 0, 3}
	a := openPak(t, p)

	path, err := a.EntryPath(4)
	require.NoError(t, err)
	assert.Empty(t, path)
	path, err = a.EntryPath(0)
	require.NoError(t, err)
	assert.Equal(t, "../../../Game/Config/中文.ini", path)
}

// sparseSource is a large source that is zero everywhere except its trailer.
type sparseSource struct {
	size    int64
	trailer []byte
}

func (s *sparseSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	n := int(min(int64(len(p)), s.size-off))
	clear(p[:n])
	tail := s.size - int64(len(s.trailer))
	for i := range n {
		if pos := off + int64(i); pos >= tail {
			p[i] = s.trailer[pos-tail]
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *sparseSource) Size() int64      { return s.size }
func (s *sparseSource) SourceID() string { return "sparse" }

func rawTrailer(indexOffset uint64) []byte {
	b := []byte{xorkey.EncryptedFlag}
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint32(b, 10)
	b = append(b, make([]byte, 20)...)
	b = binary.LittleEndian.AppendUint64(b, 0)
	return binary.LittleEndian.AppendUint64(b, indexOffset^xorkey.IndexOffset)
}

func TestArchive_OversizedIndex(t *testing.T) {
	t.Parallel()

	src := &sparseSource{
		size:    paktype.MaxIndexSize + paktype.TrailerSize + 1,
		trailer: rawTrailer(0),
	}
	a := New(src)

	_, err := a.EntryCount()
	require.Error(t, err)
	assert.ErrorIs(t, err, paktype.ErrInvalidData)
	assert.Contains(t, err.Error(), "invalid index data size: 52428801")
	assert.Equal(t, paktype.StageUnopened, a.Stage())
}

func TestArchive_MaxIndexAccepted(t *testing.T) {
	t.Parallel()

	src := &sparseSource{
		size:    paktype.MaxIndexSize + paktype.TrailerSize,
		trailer: rawTrailer(0),
	}
	a := New(src)

	trailer, err := a.Trailer()
	require.NoError(t, err)
	assert.Equal(t, uint64(paktype.MaxIndexSize), trailer.IndexSize)
	assert.False(t, trailer.Encrypted)
}

func TestArchive_IndexOffsetOutsideFile(t *testing.T) {
	t.Parallel()

	for _, offset := range []uint64{100, 60, 1 << 40} {
		a := New(&sparseSource{size: 100, trailer: rawTrailer(offset)})
		_, err := a.Version()
		assert.ErrorIs(t, err, paktype.ErrInvalidData, "offset %d", offset)
	}
}
