// Package pathutil turns resolved pak entry paths into safe relative paths.
package pathutil

import (
	"errors"
	"path"
	"strings"
)

// ErrEmptyPath is returned when nothing remains of a path after cleaning.
var ErrEmptyPath = errors.New("pathutil: empty path")

// Clean converts an entry path into a slash-separated relative path that
// cannot escape its destination directory.
//
// Backslashes become '/', and empty, "." and ".." components are dropped,
// so "../../../Game/x" becomes "Game/x".
func Clean(p string) (string, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".", "..":
			continue
		}
		kept = append(kept, part)
	}
	if len(kept) == 0 {
		return "", ErrEmptyPath
	}
	return path.Join(kept...), nil
}
