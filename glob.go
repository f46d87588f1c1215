package gfp

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	pak "github.com/Benborbar/gfp/core"
)

// defaultPattern matches every pak below the working directory.
const defaultPattern = "**/*.pak"

// PreparePattern turns a directory or pak path into a glob pattern.
//
// A pattern that already ends in ".pak" is returned unchanged. Anything else
// is treated as a directory and gets "**/*.pak" appended, so "./Paks" and
// "./Paks/" both become "./Paks/**/*.pak". An empty pattern matches every
// pak below the working directory.
func PreparePattern(pattern string) string {
	if pattern == "" {
		return defaultPattern
	}
	if strings.HasSuffix(pattern, ".pak") {
		return pattern
	}
	if !strings.HasSuffix(pattern, "/") && !strings.HasSuffix(pattern, `\`) {
		pattern += "/"
	}
	return pattern + defaultPattern
}

// Glob returns the files matching pattern, in lexical order.
// Directories are never returned. A malformed pattern wraps ErrBadPattern.
func Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}

// OpenGlob returns a sequence over the paks matching pattern.
//
// The pattern is expanded before OpenGlob returns, so a malformed pattern is
// reported immediately. Each pak is opened when the sequence reaches it and
// closed once the loop body returns; callers must not keep the archive. Paks
// that fail to open are logged and skipped.
func OpenGlob(pattern string, dialect Dialect, opts ...Option) (iter.Seq2[string, Archive], error) {
	matches, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(opts)
	logger := cfg.log()

	return func(yield func(string, Archive) bool) {
		for _, path := range matches {
			a, err := pak.Open(path, dialect, cfg.archiveOptions()...)
			if err != nil {
				logger.Warn("skipping pak", "pak", path, "error", err)
				continue
			}
			more := yield(path, a)
			if err := a.Close(); err != nil {
				logger.Warn("close pak failed", "pak", path, "error", err)
			}
			if !more {
				return
			}
		}
	}, nil
}
