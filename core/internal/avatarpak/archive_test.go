package avatarpak

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/trailer"
	"github.com/Benborbar/gfp/core/internal/xorkey"
	"github.com/Benborbar/gfp/core/testutil"
)

var (
	textData  = []byte("plain text entry\n")
	largeData = bytes.Repeat([]byte("avatar mesh data "), 600)
	wideData  = []byte{0x00, 0x01, 0x02, 0x03, 0xFF}
)

func samplePak() testutil.TestPak {
	return testutil.TestPak{
		Dialect:      paktype.DialectAvatar,
		Version:      7,
		MountPoint:   "../../../",
		EncryptIndex: true,
		Entries: []testutil.TestEntry{
			{Path: "Avatar/readme.txt", Data: textData},
			{Path: "Avatar/Mesh/body.bin", Data: largeData, Compressed: true, BlockSize: 1024},
			{Path: "Avatar/Mesh/head.bin", Data: largeData, Compressed: true, Encrypted: true, BlockSize: 4096},
			{Path: "Avatar/角色/skin.bin", Data: wideData, Encrypted: true, UTF16: true},
		},
	}
}

func openPak(t *testing.T, p testutil.TestPak) *Archive {
	t.Helper()
	return New(testutil.NewMockByteSource(testutil.BuildPak(t, p)))
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	p := samplePak()
	a := openPak(t, p)
	assert.Equal(t, paktype.StageUnopened, a.Stage())

	encrypted, err := a.Encrypted()
	require.NoError(t, err)
	assert.True(t, encrypted)
	version, err := a.Version()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), version)
	assert.Equal(t, paktype.StageTrailerLoaded, a.Stage())

	count, err := a.EntryCount()
	require.NoError(t, err)
	require.Equal(t, uint64(len(p.Entries)), count)
	assert.Equal(t, paktype.StageEntriesLoaded, a.Stage())

	mount, err := a.MountPoint()
	require.NoError(t, err)
	assert.Equal(t, "../../../", mount)

	for id, want := range p.Entries {
		path, err := a.EntryPath(uint64(id))
		require.NoError(t, err)
		// Avatar paths are used as stored, without the mount point.
		assert.Equal(t, want.Path, path)

		var out bytes.Buffer
		require.NoError(t, a.ExtractEntry(uint64(id), &out))
		assert.Equal(t, want.Data, out.Bytes(), "entry %d", id)
	}
}

func TestArchive_EntryInfo(t *testing.T) {
	t.Parallel()

	a := openPak(t, samplePak())

	info, err := a.EntryInfo(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.ID)
	assert.Equal(t, "Avatar/Mesh/body.bin", info.Path)
	assert.Equal(t, uint64(len(largeData)), info.Size)
	assert.Equal(t, paktype.CompressionZlib, info.Compression)
	assert.Equal(t, (len(largeData)+1023)/1024, info.Blocks)
	assert.False(t, info.Encrypted)

	info, err = a.EntryInfo(3)
	require.NoError(t, err)
	assert.Equal(t, paktype.CompressionNone, info.Compression)
	assert.Zero(t, info.Blocks)
	assert.True(t, info.Encrypted)
}

func TestArchive_Idempotent(t *testing.T) {
	t.Parallel()

	a := openPak(t, samplePak())
	for range 3 {
		encrypted, err := a.Encrypted()
		require.NoError(t, err)
		assert.True(t, encrypted)
		version, err := a.Version()
		require.NoError(t, err)
		assert.Equal(t, uint32(7), version)
		count, err := a.EntryCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(4), count)
	}
}

func TestArchive_EntryNotFound(t *testing.T) {
	t.Parallel()

	a := openPak(t, samplePak())
	_, err := a.EntryPath(4)
	assert.ErrorIs(t, err, paktype.ErrEntryNotFound)
	assert.ErrorIs(t, a.ExtractEntry(99, &bytes.Buffer{}), paktype.ErrEntryNotFound)
}

func TestArchive_UnknownMethodIsPerEntry(t *testing.T) {
	t.Parallel()

	p := samplePak()
	p.Entries[1].Method = 2
	a := openPak(t, p)

	err := a.ExtractEntry(1, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, paktype.ErrInvalidData)
	assert.Contains(t, err.Error(), "unknown compression method")
	assert.Equal(t, paktype.StageEntriesLoaded, a.Stage())

	var out bytes.Buffer
	require.NoError(t, a.ExtractEntry(2, &out))
	assert.Equal(t, largeData, out.Bytes())
}

func TestArchive_OversizedIndex(t *testing.T) {
	t.Parallel()

	p := samplePak()
	p.IndexSize = paktype.MaxIndexSize + 1
	a := openPak(t, p)

	_, err := a.Version()
	assert.ErrorIs(t, err, paktype.ErrInvalidData)
	_, err = a.EntryCount()
	assert.ErrorIs(t, err, paktype.ErrInvalidData)
	assert.Equal(t, paktype.StageUnopened, a.Stage())
}

// pathSizeOffset returns the file offset of the first entry's path size field.
func pathSizeOffset(t *testing.T, image []byte, mountPoint string) int {
	t.Helper()
	raw, err := trailer.Read(bytes.NewReader(image), int64(len(image)))
	require.NoError(t, err)
	return int(raw.IndexOffset^xorkey.IndexOffset) + 4 + 9 + len(mountPoint) + 1 + 4
}

func TestArchive_PathErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int32
		msg  string
	}{
		{name: "too long", size: MaxPathSize, msg: "entry path too long: 8192"},
		{name: "zero", size: 0, msg: "not NUL-terminated"},
		{name: "past end", size: MaxPathSize - 1, msg: "read past end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := samplePak()
			p.EncryptIndex = false
			p.Entries = p.Entries[:1]
			image := testutil.BuildPak(t, p)
			off := pathSizeOffset(t, image, p.MountPoint)
			binary.LittleEndian.PutUint32(image[off:], uint32(tt.size)) //nolint:gosec // test values

			a := New(testutil.NewMockByteSource(image))
			_, err := a.EntryCount()
			require.Error(t, err)
			assert.ErrorIs(t, err, paktype.ErrInvalidData)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, paktype.StageTrailerLoaded, a.Stage())

			// A failed stage fails again on retry.
			_, again := a.EntryCount()
			assert.Equal(t, err.Error(), again.Error())
		})
	}
}

func TestArchive_TooSmall(t *testing.T) {
	t.Parallel()

	a := New(testutil.NewMockByteSource(make([]byte, 44)))
	_, err := a.Encrypted()
	assert.ErrorIs(t, err, paktype.ErrInvalidData)
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

func TestArchive_Close(t *testing.T) {
	t.Parallel()

	var cc closeCounter
	a := New(testutil.NewMockByteSource(testutil.BuildPak(t, samplePak())), WithCloser(&cc))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, cc.n)
}
