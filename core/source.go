package pak

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file     *os.File
	size     int64
	sourceID string
}

// newFileSource creates a fileSource from an open file.
func newFileSource(f *os.File, sourceID string) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pak file: %w", err)
	}
	if sourceID == "" {
		sourceID = fallbackFileSourceID(f.Name(), info)
	}
	return &fileSource{file: f, size: info.Size(), sourceID: sourceID}, nil
}

// ReadAt implements io.ReaderAt.
func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (fs *fileSource) Size() int64 {
	return fs.size
}

// SourceID returns a stable identifier for the file content.
func (fs *fileSource) SourceID() string {
	return fs.sourceID
}

// mmapSource serves reads from a memory-mapped file.
type mmapSource struct {
	*mmap.ReaderAt
	sourceID string
}

func openMmapSource(path string) (*mmapSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &mmapSource{ReaderAt: r, sourceID: fallbackFileSourceID(path, info)}, nil
}

// Size returns the length of the mapping.
func (ms *mmapSource) Size() int64 {
	return int64(ms.Len())
}

// SourceID returns a stable identifier for the file content.
func (ms *mmapSource) SourceID() string {
	return ms.sourceID
}

func fallbackFileSourceID(path string, info os.FileInfo) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return fmt.Sprintf("file:%s:%d:%d", absPath, info.Size(), info.ModTime().UnixNano())
}
