package batch

import (
	"io"

	"github.com/Benborbar/gfp/core/internal/paktype"
)

// EntryInfo is an alias for paktype.EntryInfo.
type EntryInfo = paktype.EntryInfo

// Sink receives decoded entry content during batch extraction.
//
// Implementations determine where content is written (filesystem, memory,
// etc.) and can filter which entries to process.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped.
	// This allows implementations to skip files that already exist.
	ShouldProcess(info EntryInfo) bool

	// Writer returns a writer for the entry's content.
	// The returned Committer must have Commit() called after a successful
	// extraction, or Discard() called on any error.
	Writer(info EntryInfo) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
//
// Implementations should buffer or stage writes until Commit is called.
// For example, a file-based implementation might write to a temp file
// and rename it on Commit, or delete it on Discard.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
