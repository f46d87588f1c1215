package gfp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	pak "github.com/Benborbar/gfp/core"
	"github.com/Benborbar/gfp/internal/pathutil"
)

// Report describes how one pak fared in a batch.
type Report struct {
	// Pak is the path of the archive as matched by the pattern.
	Pak string

	// Output is the index file written by WriteIndex. Empty for Unpack.
	Output string

	// Entries is the number of entries in the archive, if it was parsed.
	Entries uint64

	// Shadowed is the number of entries Unpack left to a later pak that
	// writes the same destination. They are counted in Stats.Skipped.
	Shadowed int

	// Stats holds the extraction counters for Unpack.
	Stats pak.ExtractStats

	// Err is the error that stopped this pak, or nil.
	Err error
}

// Failed returns the reports whose pak did not complete.
func Failed(reports []Report) []Report {
	var failed []Report
	for _, r := range reports {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Unpack extracts every pak matching pattern below destDir.
//
// Paks layer in match order: when several paks hold the same destination
// path, the last match wins, so "game_patch_1.1.pak" overrides
// "game_patch_1.0.pak". This holds for any worker count, since every pak's
// entry paths are read before anything is extracted. Existing files are
// replaced unless WithSkipExisting is set.
//
// Paks are processed by a bounded pool of workers (see WithWorkers), each
// owning its archive. A pak that fails is logged and recorded in its Report;
// the remaining paks still run. Unpack itself only fails for a malformed
// pattern, an unusable destDir or a canceled context. Reports are in match
// order.
func Unpack(ctx context.Context, pattern string, dialect Dialect, destDir string, opts ...Option) ([]Report, error) {
	cfg := newConfig(opts)
	matches, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	cfg.log().Debug("unpack", "pattern", pattern, "paks", len(matches), "workers", cfg.workers)

	sink := pak.NewFileSink(destDir, !cfg.skipExisting)
	reports := make([]Report, len(matches))
	dests := make([][]string, len(matches))
	err = forEachPak(ctx, cfg, matches, func(_ context.Context, i int, path string) {
		reports[i], dests[i] = scanPak(cfg, sink, path, dialect)
	})
	if err != nil {
		return reports, err
	}

	owners := layerOwners(dests)
	for i := range reports {
		reports[i].Shadowed = owners.shadowed(i, dests[i])
	}

	err = forEachPak(ctx, cfg, matches, func(ctx context.Context, i int, path string) {
		if reports[i].Err != nil {
			return
		}
		layer := &layerSink{FileSink: sink, owners: owners, layer: i}
		unpackOne(ctx, cfg, &reports[i], layer, dialect)
	})
	return reports, err
}

// scanPak resolves the destination of every entry of the pak at path.
// Entries whose path cannot be placed below the destination get "".
func scanPak(cfg *config, sink *pak.FileSink, path string, dialect Dialect) (Report, []string) {
	r := Report{Pak: path}
	var dests []string

	cfg.emit(ProgressEvent{Stage: StageOpening, Pak: path})
	r.Err = withArchive(cfg, path, dialect, func(a Archive) error {
		count, err := a.EntryCount()
		if err != nil {
			return err
		}
		r.Entries = count
		cfg.emit(ProgressEvent{Stage: StageIndexing, Pak: path, EntriesTotal: count})

		dests = make([]string, count)
		for id := range count {
			entryPath, err := a.EntryPath(id)
			if err != nil {
				return fmt.Errorf("entry %d: %w", id, err)
			}
			if dest, err := sink.DestPath(entryPath); err == nil {
				dests[id] = dest
			}
		}
		return nil
	})
	if r.Err != nil {
		cfg.log().Error("unpack failed", "pak", path, "error", r.Err)
		return r, nil
	}
	return r, dests
}

func unpackOne(ctx context.Context, cfg *config, r *Report, sink pak.Sink, dialect Dialect) {
	logger := cfg.log().With("pak", r.Pak)

	r.Err = withArchive(cfg, r.Pak, dialect, func(a Archive) error {
		var err error
		r.Stats, err = pak.ExtractTo(ctx, a, sink,
			pak.ExtractWithProgress(r.Pak, cfg.progress),
			pak.ExtractWithLogger(logger))
		return err
	})
	if r.Err != nil {
		logger.Error("unpack failed", "error", r.Err)
		return
	}

	cfg.emit(ProgressEvent{
		Stage:        StageDone,
		Pak:          r.Pak,
		BytesDone:    r.Stats.TotalBytes,
		EntriesDone:  r.Entries,
		EntriesTotal: r.Entries,
	})
	logger.Info("unpacked",
		"entries", r.Entries,
		"written", r.Stats.Processed,
		"skipped", r.Stats.Skipped,
		"shadowed", r.Shadowed,
		"bytes", r.Stats.TotalBytes)
}

// WriteIndex writes a listing of every pak matching pattern below outDir.
//
// Each pak gets a text file at outDir/<pak path relative to baseDir>, with
// one resolved entry path per line. With WithDigests, each line reads
// "<digest> <size> <path>" instead. Failure handling follows Unpack.
func WriteIndex(ctx context.Context, pattern string, dialect Dialect, baseDir, outDir string, opts ...Option) ([]Report, error) {
	cfg := newConfig(opts)
	matches, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	var echoMu sync.Mutex
	reports := make([]Report, len(matches))
	err = forEachPak(ctx, cfg, matches, func(ctx context.Context, i int, path string) {
		reports[i] = indexOne(ctx, cfg, path, dialect, absBase, outDir, &echoMu)
	})
	return reports, err
}

func indexOne(ctx context.Context, cfg *config, path string, dialect Dialect, absBase, outDir string, echoMu *sync.Mutex) Report {
	r := Report{Pak: path}
	logger := cfg.log().With("pak", path)

	rel, err := IndexPath(absBase, path)
	if err != nil {
		r.Err = err
		logger.Error("index failed", "error", err)
		return r
	}
	r.Output = filepath.Join(outDir, rel)

	var lines []byte
	cfg.emit(ProgressEvent{Stage: StageOpening, Pak: path})
	r.Err = withArchive(cfg, path, dialect, func(a Archive) error {
		count, err := a.EntryCount()
		if err != nil {
			return err
		}
		r.Entries = count
		cfg.emit(ProgressEvent{Stage: StageIndexing, Pak: path, EntriesTotal: count})

		for id := range count {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := indexLine(cfg, a, id)
			if err != nil {
				return fmt.Errorf("entry %d: %w", id, err)
			}
			lines = append(lines, line...)
		}
		return writeFileAtomic(r.Output, lines)
	})
	if r.Err != nil {
		logger.Error("index failed", "error", r.Err)
		return r
	}

	if cfg.echo != nil {
		echoMu.Lock()
		_, err := cfg.echo.Write(lines)
		echoMu.Unlock()
		if err != nil {
			logger.Warn("echo index failed", "error", err)
		}
	}
	cfg.emit(ProgressEvent{Stage: StageDone, Pak: path, EntriesDone: r.Entries, EntriesTotal: r.Entries})
	logger.Info("indexed", "entries", r.Entries, "output", r.Output)
	return r
}

func indexLine(cfg *config, a Archive, id uint64) (string, error) {
	path, err := a.EntryPath(id)
	if err != nil {
		return "", err
	}
	if !cfg.digests {
		return path + "\n", nil
	}
	d, size, err := pak.EntryDigest(a, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %d %s\n", d, size, path), nil
}

// IndexPath returns the location of a pak relative to absBase, cleaned so it
// can be joined below an output directory. Paks outside absBase keep their
// path components minus any "..".
func IndexPath(absBase, pakPath string) (string, error) {
	absPak, err := filepath.Abs(pakPath)
	if err != nil {
		return "", fmt.Errorf("resolve pak path: %w", err)
	}
	rel, err := filepath.Rel(absBase, absPak)
	if err != nil {
		return "", fmt.Errorf("relative pak path: %w", err)
	}
	clean, err := pathutil.Clean(filepath.ToSlash(rel))
	if err != nil {
		return "", fmt.Errorf("relative pak path %q: %w", rel, err)
	}
	return filepath.FromSlash(clean), nil
}

// forEachPak runs fn for every path on at most cfg.workers goroutines.
// It stops scheduling once ctx is done and returns ctx's error.
func forEachPak(ctx context.Context, cfg *config, paths []string, fn func(context.Context, int, string)) error {
	var g errgroup.Group
	g.SetLimit(cfg.workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, i, path)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record errors in their reports
	return ctx.Err()
}

func withArchive(cfg *config, path string, dialect Dialect, fn func(Archive) error) (err error) {
	a, err := pak.Open(path, dialect, cfg.archiveOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

// writeFileAtomic writes data to path through a temp file in the same
// directory, creating parents as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-")
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

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	// On Windows, os.Rename fails if destination exists.
	_ = os.Remove(path) //nolint:errcheck // rename reports any real failure
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming to destination: %w", err)
	}
	success = true
	return nil
}
