package gamepak

import (
	"fmt"

	"github.com/Benborbar/gfp/core/internal/cursor"
	"github.com/Benborbar/gfp/core/internal/index"
	"github.com/Benborbar/gfp/core/internal/paktype"
)

// minFileRecord is the smallest encoded file record: a size field, a
// one-byte name and an entry id.
const minFileRecord = 4 + 1 + 4

// readPathTable decodes the directory table into a slice indexed by entry id.
//
// Layout: u64 entry count, u64 directory count, then per directory a
// length-prefixed name, a u64 file count and per file a signed-size name
// followed by a signed entry id.
func readPathTable(c *cursor.Cursor, mountPoint string) ([]string, error) {
	count, err := c.Uint64()
	if err != nil {
		return nil, err
	}
	if count > uint64(c.Remaining()) {
		return nil, paktype.InvalidDataf("path table declares %d entries in %d bytes", count, c.Remaining())
	}
	dirs, err := c.Uint64()
	if err != nil {
		return nil, err
	}

	paths := make([]string, count)
	for d := range dirs {
		dir, err := readDirName(c)
		if err != nil {
			return nil, fmt.Errorf("directory %d: %w", d, err)
		}
		files, err := c.Uint64()
		if err != nil {
			return nil, fmt.Errorf("directory %d: %w", d, err)
		}
		if files > uint64(c.Remaining()/minFileRecord) {
			return nil, paktype.InvalidDataf("directory %q declares %d files in %d bytes", dir, files, c.Remaining())
		}

		for range files {
			name, id, err := readFile(c)
			if err != nil {
				return nil, fmt.Errorf("directory %q: %w", dir, err)
			}
			if uint64(id) >= count {
				return nil, paktype.InvalidDataf("entry_id %d is outside the %d-entry path table", id, count)
			}
			paths[id] = mountPoint + dir + name
		}
	}
	return paths, nil
}

func readDirName(c *cursor.Cursor) (string, error) {
	n, err := c.Uint32()
	if err != nil {
		return "", err
	}
	return c.CString(int(n))
}

func readFile(c *cursor.Cursor) (string, int32, error) {
	size, err := c.Int32()
	if err != nil {
		return "", 0, err
	}
	name, err := index.ReadName(c, size)
	if err != nil {
		return "", 0, err
	}
	id, err := c.Int32()
	if err != nil {
		return "", 0, err
	}
	if id < 0 {
		return "", 0, paktype.InvalidDataf("negative entry_id: %d", id)
	}
	return name, id, nil
}
