package pak

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/Benborbar/gfp/core/internal/batch"
	"github.com/Benborbar/gfp/core/internal/file"
)

// Re-export batch types so callers can extract into their own destinations.
type (
	// Sink receives decoded entry content during ExtractTo.
	Sink = batch.Sink

	// Committer is a writer that can be committed or discarded.
	Committer = batch.Committer

	// FileSink writes entries below a destination directory.
	FileSink = batch.FileSink

	// ExtractStats contains statistics from an extraction.
	ExtractStats = batch.ProcessStats
)

// NewFileSink creates a FileSink that writes below destDir.
// Existing files are skipped unless overwrite is set.
func NewFileSink(destDir string, overwrite bool) *FileSink {
	return batch.NewFileSink(destDir, batch.WithOverwrite(overwrite))
}

// ExtractOption configures ExtractAll and ExtractTo.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite   bool
	directWrite bool
	name        string
	progress    ProgressFunc
	logger      *slog.Logger
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithDirectWrites writes straight to the final paths instead of
// renaming temp files into place.
func ExtractWithDirectWrites(enabled bool) ExtractOption {
	return func(c *extractConfig) {
		c.directWrite = enabled
	}
}

// ExtractWithProgress sets a callback that receives an event after each entry.
// name is reported as ProgressEvent.Pak.
func ExtractWithProgress(name string, fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.name = name
		c.progress = fn
	}
}

// ExtractWithLogger sets the logger for per-entry debug output.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(c *extractConfig) {
		c.logger = logger
	}
}

// ExtractAll extracts every entry of a below destDir.
//
// Entry paths are cleaned so that mount point prefixes such as "../../../"
// stay inside destDir. Extraction stops at the first failing entry; files
// already written are kept.
func ExtractAll(ctx context.Context, a Archive, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return ExtractStats{}, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	sink := batch.NewFileSink(destDir,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithDirectWrites(cfg.directWrite))
	return extractTo(ctx, a, sink, &cfg)
}

// ExtractTo extracts every entry of a into sink.
func ExtractTo(ctx context.Context, a Archive, sink Sink, opts ...ExtractOption) (ExtractStats, error) {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return extractTo(ctx, a, sink, &cfg)
}

func extractTo(ctx context.Context, a Archive, sink Sink, cfg *extractConfig) (ExtractStats, error) {
	proc := batch.NewProcessor(
		batch.WithName(cfg.name),
		batch.WithProgress(cfg.progress),
		batch.WithProcessorLogger(cfg.logger))
	return proc.Process(ctx, a, sink)
}

// ExtractEntryToPath writes entry id to the file at path, creating parent
// directories as needed.
//
// Content is written to a temp file in the same directory and renamed into
// place, so path never holds a partial entry.
func ExtractEntryToPath(a Archive, id uint64, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pak-")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()        //nolint:errcheck // best-effort cleanup
			_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		}
	}()

	if err := a.ExtractEntry(id, tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// On Windows, os.Rename fails if destination exists. Refuse to replace
	// a directory with a file.
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return &fs.PathError{Op: "extract", Path: path, Err: errors.New("is a directory")}
		}
		_ = os.Remove(path) //nolint:errcheck // rename reports any real failure
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming to destination: %w", err)
	}
	success = true
	return nil
}

// EntryDigest returns the sha256 digest and decoded size of entry id.
func EntryDigest(a Archive, id uint64) (digest.Digest, uint64, error) {
	digester := digest.Canonical.Digester()
	cw := &file.CountingWriter{W: digester.Hash()}
	if err := a.ExtractEntry(id, cw); err != nil {
		return "", 0, err
	}
	return digester.Digest(), cw.N, nil
}
